package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/auth"
	"call-intelligence/internal/calls"
	"call-intelligence/internal/pipeline"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultMaxUploadBytes = 50 << 20

// --- Pipeline ---

// receiveAudio stores the multipart "file" upload in a temp file. The caller
// must run cleanup once done. On failure the response is already written.
func (h Handlers) receiveAudio(c *gin.Context) (path, filename string, cleanup func(), ok bool) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "audio file required"})
		return "", "", nil, false
	}
	if !transcription.IsAudioFile(fh.Filename) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unsupported audio format"})
		return "", "", nil, false
	}

	tmp, err := os.CreateTemp(h.UploadDir, "call-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		logger.FromGin(c).Error("create upload file", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return "", "", nil, false
	}
	path = tmp.Name()
	_ = tmp.Close()
	cleanup = func() { _ = os.Remove(path) }

	if err := c.SaveUploadedFile(fh, path); err != nil {
		cleanup()
		logger.FromGin(c).Error("save upload", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return "", "", nil, false
	}
	return path, filepath.Base(fh.Filename), cleanup, true
}

// ProcessAudio accepts a multipart "file" upload and runs the full pipeline.
func (h Handlers) ProcessAudio(c *gin.Context) {
	if h.Pipeline == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pipeline not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	path, name, cleanup, ok := h.receiveAudio(c)
	if !ok {
		return
	}
	defer cleanup()

	ctx := logger.With(c.Request.Context(), logger.FromGin(c))
	res, err := h.Pipeline.Process(ctx, pipeline.AudioInput{
		WorkspaceID: ws,
		AudioPath:   path,
		Filename:    name,
		Language:    c.PostForm("language"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Transcribe runs speech-to-text only; nothing is analyzed or stored.
func (h Handlers) Transcribe(c *gin.Context) {
	if h.Transcriber == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "transcriber not configured"})
		return
	}
	path, name, cleanup, ok := h.receiveAudio(c)
	if !ok {
		return
	}
	defer cleanup()

	res, err := h.Transcriber.Transcribe(c.Request.Context(), transcription.Request{
		AudioPath: path,
		Filename:  name,
		Language:  c.PostForm("language"),
	})
	if err != nil {
		logger.FromGin(c).Warn("transcription failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "transcription failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type processTranscriptRequest struct {
	Transcript string `json:"transcript"`
	Filename   string `json:"filename,omitempty"`
	Language   string `json:"language,omitempty"`
}

func (h Handlers) ProcessTranscript(c *gin.Context) {
	if h.Pipeline == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pipeline not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	var req processTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := logger.With(c.Request.Context(), logger.FromGin(c))
	res, err := h.Pipeline.ProcessTranscript(ctx, pipeline.TranscriptInput{
		WorkspaceID: ws,
		Transcript:  req.Transcript,
		Filename:    req.Filename,
		Language:    req.Language,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Calls ---

// ListCalls returns calls ordered by priority, highest first.
func (h Handlers) ListCalls(c *gin.Context) {
	ws, ok := workspace(c)
	if !ok {
		return
	}
	f := calls.ListFilter{WorkspaceID: ws, Status: calls.Status(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	var err error
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	if f.Offset, err = queryInt(c, "skip"); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "skip must be an integer"})
		return
	}

	list, err := h.Calls.List(c.Request.Context(), f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list, "count": len(list)})
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (h Handlers) GetCall(c *gin.Context) {
	ws, ok := workspace(c)
	if !ok {
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), ws, c.Param("call_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// CallAudit returns the audit trail of one call.
func (h Handlers) CallAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	id := c.Param("call_id")
	if _, err := h.Calls.Get(c.Request.Context(), ws, id); err != nil {
		abortWithError(c, err)
		return
	}
	events, err := h.Audit.Trail(c.Request.Context(), ws, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": id, "events": events})
}

type crmStatus struct {
	CallID    string          `json:"call_id"`
	Synced    bool            `json:"crm_synced"`
	SyncedAt  *time.Time      `json:"crm_sync_timestamp"`
	Results   json.RawMessage `json:"crm_actions"`
	EmailsOut []audit.Event   `json:"emails_sent"`
}

// CRMStatus summarises CRM syncs and outbound mail of one call from its
// audit trail.
func (h Handlers) CRMStatus(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	id := c.Param("call_id")
	if _, err := h.Calls.Get(c.Request.Context(), ws, id); err != nil {
		abortWithError(c, err)
		return
	}
	events, err := h.Audit.Trail(c.Request.Context(), ws, id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := crmStatus{CallID: id, Results: json.RawMessage("[]"), EmailsOut: []audit.Event{}}
	for _, e := range events {
		switch e.Type {
		case audit.EventTypeCRMSynced:
			at := e.CreatedAt
			out.Synced = true
			out.SyncedAt = &at
			if json.Valid([]byte(e.Metadata)) {
				out.Results = json.RawMessage(e.Metadata)
			}
		case audit.EventTypeNotificationSent, audit.EventTypeReminderSent:
			out.EmailsOut = append(out.EmailsOut, e)
		}
	}
	c.JSON(http.StatusOK, out)
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

// ApproveCall and RejectCall move a pending call to its final review state.
// RBAC: reviewer, owner or super_admin.
func (h Handlers) ApproveCall(c *gin.Context) { h.review(c, calls.StatusApproved) }

func (h Handlers) RejectCall(c *gin.Context) { h.review(c, calls.StatusRejected) }

func (h Handlers) review(c *gin.Context, to calls.Status) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity missing"})
		return
	}
	var req reviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	r := calls.Review{
		ActorUserID: id.UserID,
		ActorRole:   id.Role,
		IPAddress:   c.ClientIP(),
		Notes:       req.Notes,
	}
	callID := c.Param("call_id")

	var updated calls.Call
	if to == calls.StatusApproved {
		updated, err = h.Calls.Approve(c.Request.Context(), id.WorkspaceID, callID, r)
	} else {
		updated, err = h.Calls.Reject(c.Request.Context(), id.WorkspaceID, callID, r)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
