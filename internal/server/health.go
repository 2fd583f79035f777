package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DirectoryHealth probes the membership database by listing the raw
// children of every configured group. Diagnostic only.
func (s *Server) DirectoryHealth(c *gin.Context) {
	counts := make(map[string]int, len(s.cfg.Directory.GroupIDs))
	for _, groupID := range s.cfg.Directory.GroupIDs {
		ids, err := s.directory.FetchGroupMemberIDs(c.Request.Context(), groupID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		counts[strconv.FormatInt(groupID, 10)] = len(ids)
	}
	c.JSON(http.StatusOK, gin.H{"groups": counts})
}
