package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ethics-review-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondServiceErrorStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid recommendation", services.ErrInvalidRecommendation, http.StatusBadRequest},
		{"quota exceeded", services.ErrQuotaExceeded, http.StatusBadRequest},
		{"no active assignment", services.ErrNoActiveAssignment, http.StatusForbidden},
		{"duplicate submission", services.ErrDuplicateSubmission, http.StatusConflict},
		{"stale read", services.ErrStaleRead, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondServiceError(c, tc.err)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestLoginRejectsMalformedEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/login",
		strings.NewReader(`{"email":"not-an-address","password":"secret123"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
