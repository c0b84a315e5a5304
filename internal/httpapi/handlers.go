package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/auth"
	"call-intelligence/internal/calls"
	"call-intelligence/internal/crm"
	"call-intelligence/internal/decision"
	"call-intelligence/internal/knowledge"
	"call-intelligence/internal/notify"
	"call-intelligence/internal/pipeline"
	"call-intelligence/internal/rbac"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/reporting"
	"call-intelligence/internal/signals"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Dashboard serves workspace metrics. Both reporting.Service and
// reporting.Cache satisfy it.
type Dashboard interface {
	Dashboard(ctx context.Context, workspaceID string) (reporting.DashboardMetrics, error)
}

// Insights serves voice-of-customer aggregates.
type Insights interface {
	Insights(ctx context.Context, workspaceID string) (reporting.VOCInsights, error)
}

// Knowledge is the company-context store behind /v1/company-context.
type Knowledge interface {
	Store(ctx context.Context, workspaceID, source, text string) (knowledge.StoreResult, error)
	Clear(ctx context.Context, workspaceID string) error
	Stats(ctx context.Context, workspaceID string) knowledge.Stats
	ContextFor(ctx context.Context, workspaceID, transcript string, b signals.Bundle) string
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Analyzer  signals.Analyzer
	Generator pipeline.Generator
	Engine    *decision.Engine
	Pipeline  *pipeline.Pipeline
	Calls     *calls.Service
	Audit     *audit.Service
	Dashboard Dashboard
	Insights  Insights
	Knowledge Knowledge
	Mailer    *notify.Mailer
	CRM       *crm.Service

	// Transcriber serves the standalone /v1/transcribe endpoint.
	Transcriber transcription.Transcriber

	// UploadDir receives audio uploads for the duration of a request.
	// Empty means os.TempDir.
	UploadDir      string
	MaxUploadBytes int64

	Clock func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: credentials are not checked; the deployment fronts this with SSO.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	if !rbac.Known(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	if !rbac.Known(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.Refresh(h.now(), req.RefreshToken, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Me echoes the caller's identity.
func (h Handlers) Me(c *gin.Context) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity missing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "workspace_id": id.WorkspaceID, "role": id.Role})
}

// --- helpers ---

func workspace(c *gin.Context) (string, bool) {
	ws, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || ws == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", false
	}
	return ws, true
}

// abortWithError maps service errors onto HTTP statuses. Unmapped errors are
// logged and reported as 500 without detail.
func abortWithError(c *gin.Context, err error) {
	var genErr *recommend.GenerationError
	if errors.As(err, &genErr) {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":   string(genErr.Kind),
			"details": genErr.Details,
			"stage":   pipeline.StageOf(err),
		})
		return
	}

	switch {
	case errors.Is(err, pipeline.ErrInvalidInput),
		errors.Is(err, pipeline.ErrEmptyTranscript),
		errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, knowledge.ErrEmptyText):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	case errors.Is(err, calls.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call is not pending review"})
		return
	case errors.Is(err, pipeline.ErrBusy):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many calls in flight for this workspace"})
		return
	case errors.Is(err, knowledge.ErrDisabled):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base not configured"})
		return
	}

	if stage := pipeline.StageOf(err); stage == pipeline.StageTranscribe {
		logger.FromGin(c).Warn("transcription failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "transcription failed", "stage": stage})
		return
	}
	logger.FromGin(c).Error("request failed", "err", err, "stage", pipeline.StageOf(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
