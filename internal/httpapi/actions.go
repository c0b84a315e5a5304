package httpapi

import (
	"errors"
	"net/http"

	"call-intelligence/internal/auth"
	"call-intelligence/internal/crm"
	"call-intelligence/internal/notify"
	"call-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
)

// --- Follow-up actions ---

type emailRequest struct {
	Recipient    string `json:"recipient"`
	Kind         string `json:"kind,omitempty"`
	ReminderType string `json:"reminder_type,omitempty"`
}

// SendCallEmail renders a mail for a stored call and sends it. A disabled
// mailer answers 200 with status "skipped".
func (h Handlers) SendCallEmail(c *gin.Context) {
	if h.Mailer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mailer not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), ws, c.Param("call_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	subject, body, err := notify.RenderMail(call, req.Kind, req.ReminderType)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, sendErr := h.Mailer.Send(c.Request.Context(), req.Recipient, subject, body)
	switch {
	case errors.Is(sendErr, notify.ErrInvalidRecipient), errors.Is(sendErr, notify.ErrEmptyMessage):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": sendErr.Error()})
		return
	case res.Status == notify.StatusSkipped:
		c.JSON(http.StatusOK, res)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.LogNotification(c.Request.Context(), ws, call.ID, "email", req.Recipient, sendErr); err != nil {
			logger.FromGin(c).Warn("audit notification failed", "err", err)
		}
	}
	if sendErr != nil {
		logger.FromGin(c).Warn("email send failed", "call_id", call.ID, "err", sendErr)
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type crmSyncRequest struct {
	Actions []crm.Action `json:"actions"`
}

// SyncCRM builds CRM records for a stored call. An empty body runs the
// default action set.
func (h Handlers) SyncCRM(c *gin.Context) {
	if h.CRM == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "crm not configured"})
		return
	}
	id, err := auth.FromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	var req crmSyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	call, err := h.Calls.Get(c.Request.Context(), id.WorkspaceID, c.Param("call_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx := logger.With(c.Request.Context(), logger.FromGin(c))
	res := h.CRM.Sync(ctx, call, req.Actions, id.UserID)
	if res.Status == crm.StatusError {
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
