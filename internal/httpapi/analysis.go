package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"call-intelligence/internal/decision"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/signals"

	"github.com/gin-gonic/gin"
)

// --- Stage endpoints ---
//
// These run one pipeline step in isolation and persist nothing.

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language,omitempty"`
}

// Analyze returns the signal bundle for a transcript.
func (h Handlers) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "transcript required"})
		return
	}
	c.JSON(http.StatusOK, h.bundleFor(c, req.Transcript, req.Language))
}

func (h Handlers) bundleFor(c *gin.Context, transcript, language string) signals.Bundle {
	a := h.Analyzer
	if a == nil {
		a = signals.NewLexicalAnalyzer()
	}
	if la, ok := a.(signals.LanguageAnalyzer); ok && language != "" {
		return la.AnalyzeLanguage(c.Request.Context(), language, transcript, nil)
	}
	return a.Analyze(c.Request.Context(), transcript, nil)
}

type intelligenceRequest struct {
	Transcript     string          `json:"transcript"`
	Signals        *signals.Bundle `json:"nlp_analysis"`
	CompanyContext *string         `json:"company_context,omitempty"`
}

// Intelligence generates a recommendation. Missing signals are computed;
// a missing company context is retrieved from the knowledge base.
func (h Handlers) Intelligence(c *gin.Context) {
	if h.Generator == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "generator not configured"})
		return
	}
	ws, ok := workspace(c)
	if !ok {
		return
	}
	var req intelligenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "transcript required"})
		return
	}

	var b signals.Bundle
	if req.Signals != nil {
		b = req.Signals.Normalize(signals.LexicalThreshold)
	} else {
		b = h.bundleFor(c, req.Transcript, "")
	}

	companyContext := ""
	switch {
	case req.CompanyContext != nil:
		companyContext = *req.CompanyContext
	case h.Knowledge != nil:
		companyContext = h.Knowledge.ContextFor(c.Request.Context(), ws, req.Transcript, b)
	}

	rec, err := h.Generator.Generate(c.Request.Context(), req.Transcript, b, companyContext)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type decisionRequest struct {
	Signals        signals.Bundle  `json:"nlp_analysis"`
	Recommendation json.RawMessage `json:"llm_output"`
}

// Decide runs the decision engine. The recommendation goes through the same
// tolerant decoding as model output, so wrongly typed fields are defaulted
// rather than rejected; only unparseable JSON is a 400.
func (h Handlers) Decide(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var rec recommend.Recommendation
	if len(req.Recommendation) > 0 {
		parsed, err := recommend.Parse(string(req.Recommendation))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "llm_output must be an object"})
			return
		}
		rec = parsed
	}
	e := h.Engine
	if e == nil {
		e = decision.New()
	}
	c.JSON(http.StatusOK, e.Evaluate(req.Signals, rec))
}

type actionSafetyRequest struct {
	Action string `json:"action"`
}

func (h Handlers) ActionSafety(c *gin.Context) {
	var req actionSafetyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	c.JSON(http.StatusOK, decision.ValidateActionSafety(req.Action))
}
