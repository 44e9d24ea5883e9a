package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
)

func (s *Server) ApplyPaymentToDues(c *gin.Context) {
	var req duesdomain.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.duesSvc.ApplyPaymentToDues(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

func (s *Server) GetStudentDues(c *gin.Context) {
	studentID, err := studentIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var filter duesdomain.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.duesSvc.GetStudentDues(c.Request.Context(), studentID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOverdueFees(c *gin.Context) {
	var filter duesdomain.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.duesSvc.GetOverdueFees(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GenerateDuesReport(c *gin.Context) {
	var filter duesdomain.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.duesSvc.GenerateDuesReport(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDueSoon(c *gin.Context) {
	within, err := queryInt(c, "within", 7)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.duesSvc.ListDueSoon(c.Request.Context(), within)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
