package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/playproofx/playproof/internal/health"
	"github.com/playproofx/playproof/internal/ledger"
	"github.com/playproofx/playproof/internal/risk"
	"github.com/playproofx/playproof/internal/session"
	"github.com/playproofx/playproof/internal/validation"
	"github.com/playproofx/playproof/internal/verdict"
)

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

// analyzeHandler classifies any JSON body. Bodies that are not a session
// record (including invalid JSON) get the safe default verdict.
func (s *Server) analyzeHandler(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	v := s.verdicts.Analyze(c.Request.Context(), json.RawMessage(body))
	c.JSON(http.StatusOK, gin.H{"verdict": v})
}

// analyzeFormHandler coerces the raw analyse form, as posted by a browser
// form or as a JSON object of loosely typed fields, then classifies it.
func (s *Server) analyzeFormHandler(c *gin.Context) {
	var form session.Form
	if c.ContentType() == binding.MIMEJSON {
		body, ok := readBody(c)
		if !ok {
			return
		}
		f, err := formFromJSON(body)
		if err != nil {
			invalidRequest(c, err.Error())
			return
		}
		form = f
	} else if err := c.ShouldBind(&form); err != nil {
		invalidRequest(c, "could not read form: "+err.Error())
		return
	}

	form.SessionID = validation.SanitizeString(form.SessionID, validation.MaxSessionIDLength)
	if errs := validation.Validate(validation.ValidSessionID("sessionId", form.SessionID)); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	rec := form.Record()
	v := s.verdicts.AnalyzeSession(c.Request.Context(), form.SessionID, rec)
	c.JSON(http.StatusOK, gin.H{
		"sessionId": form.SessionID,
		"session":   rec,
		"verdict":   v,
	})
}

// formFromJSON accepts a JSON object whose values may be strings, numbers
// or, for betHistory, an array.
func formFromJSON(body []byte) (session.Form, error) {
	m, ok := risk.DecodeObject(body)
	if !ok {
		return session.Form{}, errors.New("body must be a JSON object")
	}

	field := func(key string) string {
		switch v := m[key].(type) {
		case nil:
			return ""
		case string:
			return v
		case json.Number:
			return v.String()
		case []any, map[string]any:
			raw, _ := json.Marshal(v)
			return string(raw)
		default:
			return fmt.Sprint(v)
		}
	}

	return session.Form{
		SessionID:       field("sessionId"),
		GamesPlayed:     field("gamesPlayed"),
		Wins:            field("wins"),
		Losses:          field("losses"),
		TotalLossAmount: field("totalLossAmount"),
		StartBalance:    field("startBalance"),
		BetHistory:      field("betHistory"),
	}, nil
}

type statsRequest struct {
	History []session.HistoryEntry `json:"history"`
}

func (s *Server) statsHandler(c *gin.Context) {
	var req statsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "body must be {\"history\": [...]}")
		return
	}

	stats := session.Summarize(req.History)
	c.JSON(http.StatusOK, gin.H{
		"stats":    stats,
		"severity": session.SeverityForText(stats.MostRecentVerdict),
	})
}

// -----------------------------------------------------------------------------
// Blocks
// -----------------------------------------------------------------------------

func (s *Server) submitBlockHandler(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	rec, ok := risk.DecodeObject(body)
	if !ok {
		invalidRequest(c, "body must be a JSON object describing the session")
		return
	}

	sessionID, _ := rec[ledger.KeySessionID].(string)
	sessionID = validation.SanitizeString(sessionID, validation.MaxSessionIDLength)
	if errs := validation.Validate(validation.ValidSessionID("sessionId", sessionID)); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	v, block := s.verdicts.Submit(c.Request.Context(), verdict.Submission{
		SessionID: sessionID,
		Session:   rec,
	})
	c.JSON(http.StatusCreated, gin.H{
		"verdict": v,
		"block":   block,
	})
}

func (s *Server) listBlocksHandler(c *gin.Context) {
	order := strings.ToLower(c.DefaultQuery("order", "oldest"))
	limitStr := c.Query("limit")

	if errs := validation.Validate(
		validation.OneOf("order", order, "oldest", "newest"),
		validation.Limit("limit", limitStr),
	); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	limit := validation.MaxListLimit
	if limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}

	blocks := s.verdicts.Blocks(c.Request.Context(), order == "newest", limit)
	c.JSON(http.StatusOK, gin.H{
		"blocks": blocks,
		"count":  len(blocks),
		"total":  s.verdicts.Len(),
	})
}

func (s *Server) getBlockHandler(c *gin.Context) {
	// BlockIDParamMiddleware has already rejected malformed ids
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	block, err := s.verdicts.Block(c.Request.Context(), id)
	if errors.Is(err, ledger.ErrBlockNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": fmt.Sprintf("block %d not found", id),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "failed to load block",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"block": block})
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

// HealthResponse is the /health payload
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.health.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   Version,
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// readBody reads the request body, answering 413 when it exceeds the
// request size limit.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "request_too_large",
				"message": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return nil, false
		}
		invalidRequest(c, "could not read request body")
		return nil, false
	}
	return body, true
}

func invalidRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": message,
	})
}

func validationFailed(c *gin.Context, errs validation.ValidationErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "validation_failed",
		"message": errs.Error(),
		"details": errs,
	})
}
