package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/esportubt/discord-bot/internal/reconcile"
)

// TriggerFullSync runs a full reconciliation and reports the result.
// Unresolved and forbidden entries are part of a successful response;
// only directory and configuration failures surface as errors.
func (s *Server) TriggerFullSync(c *gin.Context) {
	result, err := s.sync.RunFull(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse(result))
}

// TriggerIncrementalSync reconciles only members changed since the last
// successful mark.
func (s *Server) TriggerIncrementalSync(c *gin.Context) {
	result, err := s.sync.RunIncremental(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse(result))
}

// LastSyncResult returns the most recent run result, 404 before the
// first run.
func (s *Server) LastSyncResult(c *gin.Context) {
	result := s.sync.LastResult()
	if result == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	response := resultResponse(result)
	response["last_mark"] = s.sync.LastMark()
	c.JSON(http.StatusOK, response)
}

// ListSyncRuns returns persisted run summaries, newest first.
func (s *Server) ListSyncRuns(c *gin.Context) {
	limit := 20
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, &apiError{http.StatusBadRequest, "invalid_limit", "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := s.runs.List(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": entries})
}

func resultResponse(result *reconcile.Result) gin.H {
	return gin.H{
		"run_id":       result.RunID.String(),
		"mode":         result.Mode,
		"granted":      result.Granted,
		"revoked":      result.Revoked,
		"unchanged":    result.Unchanged,
		"unresolved":   result.Unresolved,
		"forbidden":    result.Forbidden,
		"completed_at": result.CompletedAt,
		"report":       result.Render(),
	}
}
