package models

import (
	"time"
)

// SubmissionStatus is the closed set of workflow states. Only the
// state machine service writes Submission.Status.
type SubmissionStatus string

const (
	StatusNewSubmission          SubmissionStatus = "new_submission"
	StatusAwaitingClassification SubmissionStatus = "awaiting_classification"
	StatusClassified             SubmissionStatus = "classified"
	StatusUnderReview            SubmissionStatus = "under_review"
	StatusNeedsRevision          SubmissionStatus = "needs_revision"
	StatusConflictOfInterest     SubmissionStatus = "conflict_of_interest"
	StatusApproved               SubmissionStatus = "approved"
	StatusReviewComplete         SubmissionStatus = "review_complete"
	StatusRejected               SubmissionStatus = "rejected"
)

// Valid reports whether the value belongs to the status enumeration.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNewSubmission, StatusAwaitingClassification, StatusClassified,
		StatusUnderReview, StatusNeedsRevision, StatusConflictOfInterest,
		StatusApproved, StatusReviewComplete, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further workflow transitions are allowed.
// Approved is not terminal on its own: it always chains into review_complete.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusReviewComplete || s == StatusRejected
}

// Classification determines the reviewer quota for a submission.
type Classification string

const (
	ClassificationExempted   Classification = "exempted"
	ClassificationExpedited  Classification = "expedited"
	ClassificationFullReview Classification = "full_review"
)

func (c Classification) Valid() bool {
	switch c {
	case ClassificationExempted, ClassificationExpedited, ClassificationFullReview:
		return true
	}
	return false
}

type Submission struct {
	SubmissionID   uint             `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	TrackingCode   string           `gorm:"column:tracking_code;unique" json:"tracking_code"`
	UserID         int              `gorm:"column:user_id" json:"user_id"`
	Title          string           `gorm:"column:title" json:"title"`
	Status         SubmissionStatus `gorm:"column:status" json:"status"`
	Classification *Classification  `gorm:"column:classification" json:"classification,omitempty"`
	College        *string          `gorm:"column:college" json:"college,omitempty"`
	SubmittedAt    *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt      *time.Time       `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	// Relations
	User        *User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Documents   []UploadedDocument   `gorm:"foreignKey:SubmissionID" json:"documents,omitempty"`
	Assignments []ReviewerAssignment `gorm:"foreignKey:SubmissionID" json:"assignments,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionStatusHistory records every status write with the actor and
// an optional reason. The revision loop reads it back to find the state a
// submission was in before revision was requested.
type SubmissionStatusHistory struct {
	HistoryID    uint              `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID uint              `gorm:"column:submission_id" json:"submission_id"`
	OldStatus    *SubmissionStatus `gorm:"column:old_status" json:"old_status,omitempty"`
	NewStatus    SubmissionStatus  `gorm:"column:new_status" json:"new_status"`
	ChangedBy    int               `gorm:"column:changed_by" json:"changed_by"`
	Reason       *string           `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}
