package models

import (
	"time"
)

// ConflictOfInterestForm is a reviewer's self-declaration of
// disqualifying relationships for a specific submission. A form with
// every flag false is a valid "no conflict" record.
type ConflictOfInterestForm struct {
	FormID       uint   `gorm:"primaryKey;column:form_id" json:"form_id"`
	SubmissionID uint   `gorm:"column:submission_id" json:"submission_id"`
	ReviewerID   int    `gorm:"column:reviewer_id" json:"reviewer_id"`

	HasStockOwnership     bool `gorm:"column:has_stock_ownership" json:"has_stock_ownership"`
	HasCompensation       bool `gorm:"column:has_compensation" json:"has_compensation"`
	HasOfficialRole       bool `gorm:"column:has_official_role" json:"has_official_role"`
	HasPriorWork          bool `gorm:"column:has_prior_work" json:"has_prior_work"`
	HasStandingIssue      bool `gorm:"column:has_standing_issue" json:"has_standing_issue"`
	HasSocialRelationship bool `gorm:"column:has_social_relationship" json:"has_social_relationship"`
	HasOwnershipInterest  bool `gorm:"column:has_ownership_interest" json:"has_ownership_interest"`

	Remarks   *string   `gorm:"column:remarks" json:"remarks,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (ConflictOfInterestForm) TableName() string {
	return "conflict_of_interest_forms"
}

// HasConflict reports whether any flag disqualifies the reviewer.
func (f *ConflictOfInterestForm) HasConflict() bool {
	return f.HasStockOwnership ||
		f.HasCompensation ||
		f.HasOfficialRole ||
		f.HasPriorWork ||
		f.HasStandingIssue ||
		f.HasSocialRelationship ||
		f.HasOwnershipInterest
}
