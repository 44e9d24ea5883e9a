package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	promotiondomain "github.com/smallbiznis/feeledger/internal/promotion/domain"
)

func (s *Server) PromoteStudents(c *gin.Context) {
	var req promotiondomain.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.promotionSvc.PromoteStudentsWithFeeHandling(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPromotionHistory(c *gin.Context) {
	studentID, err := studentIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.promotionSvc.GetPromotionHistory(c.Request.Context(), studentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
