package httpapi

import (
	"call-intelligence/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the /v1 API on r. authMW must inject the caller identity;
// login and refresh stay public.
func (h Handlers) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	v1 := r.Group("/v1")
	v1.Use(authMW, rbac.RequireWorkspace())
	v1.GET("/me", h.Me)

	// Stage endpoints: anyone who can read calls may run them.
	read := v1.Group("")
	read.Use(rbac.RequireAnyRole(rbac.ReadRoles...))
	{
		read.POST("/analyze", h.Analyze)
		read.POST("/intelligence", h.Intelligence)
		read.POST("/decision", h.Decide)
		read.POST("/action-safety", h.ActionSafety)

		read.GET("/calls", h.ListCalls)
		read.GET("/calls/:call_id", h.GetCall)
		read.GET("/calls/:call_id/audit", h.CallAudit)
		read.GET("/calls/:call_id/crm-status", h.CRMStatus)

		read.GET("/dashboard/metrics", h.DashboardMetrics)
		read.GET("/insights/voc", h.VOCInsights)
		read.GET("/rag/stats", h.KnowledgeStats)
	}

	// Ingest: agents upload their own calls.
	ingestRoles := rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleReviewer)
	v1.POST("/transcribe", ingestRoles, h.Transcribe)

	ingest := v1.Group("/calls")
	ingest.Use(ingestRoles)
	{
		ingest.POST("/process", h.ProcessAudio)
		ingest.POST("/process-transcript", h.ProcessTranscript)
	}

	review := v1.Group("/calls/:call_id")
	review.Use(rbac.RequireAnyRole(rbac.ReviewRoles...))
	{
		review.POST("/approve", h.ApproveCall)
		review.POST("/reject", h.RejectCall)
		review.POST("/email", h.SendCallEmail)
		review.POST("/crm-sync", h.SyncCRM)
	}

	admin := v1.Group("/company-context")
	admin.Use(rbac.RequireAnyRole(rbac.RoleOwner))
	{
		admin.POST("", h.StoreCompanyContext)
		admin.DELETE("", h.ClearCompanyContext)
	}
}
