package controllers

import (
	"errors"
	"net/http"

	"ethics-review-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var svc *services.Services

// Init installs the shared service container used by all handlers.
func Init(s *services.Services) {
	svc = s
}

// currentPrincipal resolves the acting user from the authenticated
// request context. The workflow services never read the session
// themselves; handlers pass the principal in explicitly.
func currentPrincipal(c *gin.Context) (services.Principal, bool) {
	userID, okUser := c.Get("userID")
	roleID, okRole := c.Get("roleID")
	if !okUser || !okRole {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return services.Principal{}, false
	}
	return services.Principal{UserID: userID.(int), RoleID: roleID.(int)}, true
}

// respondServiceError maps workflow errors onto HTTP statuses.
// Validation failures are deterministic and must not be retried;
// stale reads and lock timeouts are retryable with a fresh read.
func respondServiceError(c *gin.Context, err error) {
	var invalid *services.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{"error": invalid.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNoActiveAssignment):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrQuotaExceeded),
		errors.Is(err, services.ErrAlreadyAssigned),
		errors.Is(err, services.ErrConflicted),
		errors.Is(err, services.ErrRevisionIncomplete),
		errors.Is(err, services.ErrInvalidRecommendation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateSubmission),
		errors.Is(err, services.ErrNotComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStaleRead),
		errors.Is(err, services.ErrLockTimeout):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
