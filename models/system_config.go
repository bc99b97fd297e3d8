package models

import (
	"strconv"
)

// SystemConfig represents key-value configuration settings such as
// reviewer quotas and the review window.
type SystemConfig struct {
	Key   string `gorm:"primaryKey;column:key" json:"key"`
	Value string `gorm:"column:value" json:"value"`
}

// TableName specifies the table name for GORM
func (SystemConfig) TableName() string {
	return "system_config"
}

// Configuration keys consulted by the workflow services. Quotas are
// policy, not law: staff may adjust them through the admin settings
// endpoints and the assignment logic reads them fresh on every call.
const (
	ConfigKeyQuotaExempted    = "quota_exempted"
	ConfigKeyQuotaExpedited   = "quota_expedited"
	ConfigKeyQuotaFullReview  = "quota_full_review"
	ConfigKeyReviewWindowDays = "review_window_days"
)

// Review window bounds in days.
const (
	MinReviewWindowDays = 7
	MaxReviewWindowDays = 30
)

var configDefaults = map[string]int{
	ConfigKeyQuotaExempted:    0,
	ConfigKeyQuotaExpedited:   3,
	ConfigKeyQuotaFullReview:  5,
	ConfigKeyReviewWindowDays: 14,
}

// QuotaKeyFor maps a classification to its quota config key.
func QuotaKeyFor(c Classification) string {
	switch c {
	case ClassificationExempted:
		return ConfigKeyQuotaExempted
	case ClassificationExpedited:
		return ConfigKeyQuotaExpedited
	case ClassificationFullReview:
		return ConfigKeyQuotaFullReview
	}
	return ""
}

// ConfigDefault returns the built-in fallback for a config key.
func ConfigDefault(key string) (int, bool) {
	v, ok := configDefaults[key]
	return v, ok
}

// IntValue parses the stored value, falling back to the key's default
// when the row is missing or malformed.
func (c *SystemConfig) IntValue() (int, bool) {
	if c == nil {
		return 0, false
	}
	n, err := strconv.Atoi(c.Value)
	if err != nil {
		return ConfigDefault(c.Key)
	}
	return n, true
}
