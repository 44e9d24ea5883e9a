package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Job endpoints let an external cron drive maintenance when the in-process
// worker is disabled.

func (s *Server) RunRefreshAging(c *gin.Context) {
	if s.triggers == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	updated, err := s.triggers.RefreshAging(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) RunDueReminders(c *gin.Context) {
	if s.triggers == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	daysBefore, err := queryInt(c, "days_before", s.cfg.Scheduler.ReminderDaysBefore)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sent, err := s.triggers.SendDueReminders(c.Request.Context(), daysBefore)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (s *Server) RunOverdueAlerts(c *gin.Context) {
	if s.triggers == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sent, err := s.triggers.SendOverdueAlerts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
