package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) StartScheduler(c *gin.Context) {
	if err := s.sched.Start(); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": s.sched.Status()})
}

func (s *Server) StopScheduler(c *gin.Context) {
	s.sched.Stop()
	c.JSON(http.StatusOK, gin.H{"status": s.sched.Status()})
}

func (s *Server) SchedulerStatus(c *gin.Context) {
	response := gin.H{"status": s.sched.Status()}
	if err := s.sched.LastFailure(); err != nil {
		response["failure"] = err.Error()
	}
	c.JSON(http.StatusOK, response)
}
