package routes

import (
	"net/http"
	"time"

	"ethics-review-api/controllers"
	"ethics-review-api/middleware"
	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires the HTTP surface. All workflow endpoints sit behind
// JWT auth; role gates follow the three portal roles.
func SetupRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := r.Group("/api/v1")

	// Public
	api.POST("/login", controllers.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/profile", controllers.GetProfile)
		protected.PUT("/profile/password", controllers.ChangePassword)

		protected.GET("/notifications", controllers.GetNotifications)
		protected.PUT("/notifications/:id/read", controllers.MarkNotificationRead)

		protected.GET("/document-types", controllers.GetDocumentTypes)

		// Shared reads; per-submission access is checked in the handlers.
		protected.GET("/submissions", controllers.GetSubmissions)
		protected.GET("/submissions/:id", controllers.GetSubmission)
		protected.GET("/submissions/:id/documents", controllers.GetSubmissionDocuments)
		protected.POST("/submissions/:id/documents", controllers.UploadDocument)
	}

	researcher := api.Group("")
	researcher.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleResearcher))
	{
		researcher.POST("/submissions", controllers.CreateSubmission)
		researcher.POST("/submissions/:id/submit", controllers.SubmitSubmission)
		researcher.POST("/submissions/:id/resubmit", controllers.ResubmitSubmission)
	}

	reviewer := api.Group("")
	reviewer.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleReviewer))
	{
		reviewer.GET("/assignments", controllers.GetMyAssignments)
		reviewer.POST("/submissions/:id/reviews", controllers.SubmitReview)
		reviewer.POST("/submissions/:id/conflict-declarations", controllers.DeclareConflict)
		reviewer.POST("/reviews/:reviewId/replies", controllers.CreateReviewReply)
	}

	staff := api.Group("")
	staff.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleStaff))
	{
		staff.POST("/submissions/:id/classify", controllers.ClassifySubmission)
		staff.POST("/submissions/:id/reject", controllers.RejectSubmission)
		staff.POST("/submissions/:id/verify-document", controllers.VerifyDocument)
		staff.POST("/submissions/:id/request-revision", controllers.RequestRevision)
		staff.GET("/submissions/:id/eligible-reviewers", controllers.GetEligibleReviewers)
		staff.POST("/submissions/:id/assignments", controllers.AssignReviewers)
		staff.GET("/submissions/:id/replacement-reviewers", controllers.GetReplacements)
		staff.POST("/submissions/:id/reassign", controllers.ReassignReviewer)
		staff.GET("/submissions/:id/reviews", controllers.GetSubmissionReviews)
		staff.POST("/submissions/:id/repair-artifacts", controllers.RepairArtifacts)
		staff.GET("/settings/review", controllers.GetReviewSettings)
		staff.PUT("/settings/review", controllers.UpdateReviewSettings)
	}
}
