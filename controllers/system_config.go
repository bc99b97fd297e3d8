package controllers

import (
	"net/http"
	"strconv"

	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
)

var reviewSettingKeys = []string{
	models.ConfigKeyQuotaExempted,
	models.ConfigKeyQuotaExpedited,
	models.ConfigKeyQuotaFullReview,
	models.ConfigKeyReviewWindowDays,
}

// GetReviewSettings returns the effective quota and window settings,
// defaults filled in where no row exists.
func GetReviewSettings(c *gin.Context) {
	ctx := c.Request.Context()

	settings := make(map[string]int, len(reviewSettingKeys))
	for _, key := range reviewSettingKeys {
		value, err := svc.Store.ConfigInt(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read settings"})
			return
		}
		settings[key] = value
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settings": settings,
	})
}

type updateSettingsRequest struct {
	Settings map[string]int `json:"settings" binding:"required"`
}

// UpdateReviewSettings writes quota and window overrides. Unknown keys
// are rejected, window values are bounds-checked, quotas must not be
// negative. Changes apply to future assignment decisions only.
func UpdateReviewSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Settings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "settings is required"})
		return
	}

	known := make(map[string]bool, len(reviewSettingKeys))
	for _, key := range reviewSettingKeys {
		known[key] = true
	}
	for key, value := range req.Settings {
		if !known[key] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown setting: " + key})
			return
		}
		if key == models.ConfigKeyReviewWindowDays {
			if value < models.MinReviewWindowDays || value > models.MaxReviewWindowDays {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "review_window_days must be between " +
						strconv.Itoa(models.MinReviewWindowDays) + " and " +
						strconv.Itoa(models.MaxReviewWindowDays),
				})
				return
			}
		} else if value < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": key + " must not be negative"})
			return
		}
	}

	ctx := c.Request.Context()
	for key, value := range req.Settings {
		if err := svc.Store.SetConfig(ctx, key, strconv.Itoa(value)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Settings updated",
	})
}
