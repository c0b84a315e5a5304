package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// --- Reporting ---

func (h Handlers) DashboardMetrics(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	m, err := h.Dashboard.Dashboard(c.Request.Context(), ws)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// VOCInsights aggregates word cloud, feature requests, competitor mentions
// and pain points over every call of the workspace.
func (h Handlers) VOCInsights(c *gin.Context) {
	if h.Insights == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	out, err := h.Insights.Insights(c.Request.Context(), ws)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Company knowledge ---

type companyContextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// StoreCompanyContext chunks and indexes policy text for the workspace.
func (h Handlers) StoreCompanyContext(c *gin.Context) {
	if h.Knowledge == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	var req companyContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	if req.Source == "" {
		req.Source = "manual_upload"
	}
	res, err := h.Knowledge.Store(c.Request.Context(), ws, req.Source, req.Text)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"chunks_stored":   res.ChunksStored,
		"total_documents": res.TotalDocuments,
	})
}

func (h Handlers) ClearCompanyContext(c *gin.Context) {
	if h.Knowledge == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	if err := h.Knowledge.Clear(c.Request.Context(), ws); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// KnowledgeStats never fails; a missing store reports status "disabled".
func (h Handlers) KnowledgeStats(c *gin.Context) {
	ws, ok := workspace(c)
	if !ok {
		return
	}
	if h.Knowledge == nil {
		c.JSON(http.StatusOK, gin.H{"total_documents": 0, "embedding_model": "N/A", "collection_name": "N/A", "status": "disabled"})
		return
	}
	c.JSON(http.StatusOK, h.Knowledge.Stats(c.Request.Context(), ws))
}
