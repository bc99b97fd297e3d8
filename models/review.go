package models

import (
	"time"
)

// AssignmentStatus tracks one reviewer's progress on one submission.
type AssignmentStatus string

const (
	AssignmentPending        AssignmentStatus = "pending"
	AssignmentUnderReview    AssignmentStatus = "under_review"
	AssignmentReviewComplete AssignmentStatus = "review_complete"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentUnderReview, AssignmentReviewComplete:
		return true
	}
	return false
}

// Active reports whether the assignment still occupies a reviewer slot.
// Conflicted assignments are hard-deleted, so every persisted row is
// active; the helper exists for readability at call sites.
func (s AssignmentStatus) Active() bool {
	return s.Valid()
}

// ReviewerAssignment binds one reviewer to one submission for one review
// cycle. Removed assignments are deleted outright so their slot can be
// refilled without double-counting.
type ReviewerAssignment struct {
	AssignmentID uint             `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	SubmissionID uint             `gorm:"column:submission_id" json:"submission_id"`
	ReviewerID   int              `gorm:"column:reviewer_id" json:"reviewer_id"`
	Status       AssignmentStatus `gorm:"column:status" json:"status"`
	AssignedAt   time.Time        `gorm:"column:assigned_at" json:"assigned_at"`
	DueDate      time.Time        `gorm:"column:due_date" json:"due_date"`
	CompletedAt  *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`

	// Relations
	Reviewer   *User       `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Submission *Submission `gorm:"foreignKey:SubmissionID;references:SubmissionID" json:"submission,omitempty"`
}

func (ReviewerAssignment) TableName() string {
	return "reviewer_assignments"
}

// Recommendation is the ordered verdict vocabulary used on both the
// protocol and informed-consent sections of a review.
type Recommendation string

const (
	RecommendationApproved      Recommendation = "Approved (No Revision)"
	RecommendationMinorRevision Recommendation = "Approved with Minor Revision/s"
	RecommendationMajorRevision Recommendation = "Major Revision/s"
	RecommendationDisapproved   Recommendation = "Disapproved"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationApproved, RecommendationMinorRevision,
		RecommendationMajorRevision, RecommendationDisapproved:
		return true
	}
	return false
}

// BlocksApproval reports whether this verdict vetoes an approved outcome.
func (r Recommendation) BlocksApproval() bool {
	return r == RecommendationMajorRevision || r == RecommendationDisapproved
}

type ReviewStatus string

const (
	ReviewDraft     ReviewStatus = "draft"
	ReviewSubmitted ReviewStatus = "submitted"
)

// Review holds one reviewer's verdict for one submission, bound to
// exactly one assignment. Once submitted it is immutable except for
// appended replies.
type Review struct {
	ReviewID     uint         `gorm:"primaryKey;column:review_id" json:"review_id"`
	SubmissionID uint         `gorm:"column:submission_id" json:"submission_id"`
	ReviewerID   int          `gorm:"column:reviewer_id" json:"reviewer_id"`
	AssignmentID uint         `gorm:"column:assignment_id" json:"assignment_id"`
	Status       ReviewStatus `gorm:"column:status" json:"status"`
	SubmittedAt  *time.Time   `gorm:"column:submitted_at" json:"submitted_at,omitempty"`

	// Protocol section
	ProtocolRecommendation       Recommendation `gorm:"column:protocol_recommendation" json:"protocol_recommendation"`
	ProtocolEthicsRecommendation *string        `gorm:"column:protocol_ethics_recommendation" json:"protocol_ethics_recommendation,omitempty"`
	ProtocolSuggestions          *string        `gorm:"column:protocol_suggestions" json:"protocol_suggestions,omitempty"`

	// Informed consent section
	ICFRecommendation       Recommendation `gorm:"column:icf_recommendation" json:"icf_recommendation"`
	ICFEthicsRecommendation *string        `gorm:"column:icf_ethics_recommendation" json:"icf_ethics_recommendation,omitempty"`
	ICFSuggestions          *string        `gorm:"column:icf_suggestions" json:"icf_suggestions,omitempty"`

	// Relations
	Reviewer *User         `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Replies  []ReviewReply `gorm:"foreignKey:ReviewID" json:"replies,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}

// BlocksApproval reports whether either section of the review carries a
// disqualifying verdict.
func (r *Review) BlocksApproval() bool {
	return r.ProtocolRecommendation.BlocksApproval() || r.ICFRecommendation.BlocksApproval()
}

// ReviewReply is a threaded follow-up comment appended to a submitted
// review, ordered by creation time.
type ReviewReply struct {
	ReplyID    uint      `gorm:"primaryKey;column:reply_id" json:"reply_id"`
	ReviewID   uint      `gorm:"column:review_id" json:"review_id"`
	ReviewerID int       `gorm:"column:reviewer_id" json:"reviewer_id"`
	ReplyText  string    `gorm:"column:reply_text" json:"reply_text"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (ReviewReply) TableName() string {
	return "review_replies"
}
