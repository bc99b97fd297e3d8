package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RepairArtifacts re-runs approval document generation for a completed
// submission. Kinds already on file are left untouched.
func RepairArtifacts(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}
	submissionID, ok := paramSubmissionID(c)
	if !ok {
		return
	}

	if err := svc.Artifacts.Repair(c.Request.Context(), actor, submissionID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Approval documents are complete",
	})
}
