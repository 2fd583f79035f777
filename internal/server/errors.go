package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"
	platformdomain "github.com/esportubt/discord-bot/internal/platform/domain"
	"github.com/esportubt/discord-bot/internal/reconcile"
	"github.com/esportubt/discord-bot/internal/scheduler"
)

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return e.code
}

var (
	ErrUnauthorized = &apiError{http.StatusUnauthorized, "unauthorized", "missing or invalid operator token"}
	ErrNotFound     = &apiError{http.StatusNotFound, "not_found", "resource not found"}
	ErrRateLimited  = &apiError{http.StatusTooManyRequests, "rate_limited", "too many requests"}
)

// AbortWithError translates domain failures into HTTP responses. Only
// directory and configuration errors are operator-visible failures;
// unresolved and forbidden entries travel inside a successful result.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.status, gin.H{"error": apiErr.code, "message": apiErr.message})
		return
	}

	var statusErr *directorydomain.StatusError
	switch {
	case errors.Is(err, reconcile.ErrRunInProgress):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "run_in_progress", "message": err.Error()})
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "scheduler_already_running", "message": err.Error()})
	case errors.As(err, &statusErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "directory_error", "message": statusErr.Error()})
	case errors.Is(err, reconcile.ErrRoleNotConfigured), errors.Is(err, platformdomain.ErrRoleNotFound):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "config_error", "message": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
	}
}
