package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cfdomain "github.com/smallbiznis/feeledger/internal/carryforward/domain"
	pendingdomain "github.com/smallbiznis/feeledger/internal/pendingfee/domain"
)

type pendingFeesQuery struct {
	Grade        string `form:"grade"`
	AcademicYear string `form:"academic_year"`
}

func (s *Server) pendingRequest(c *gin.Context) (pendingdomain.Request, error) {
	studentID, err := studentIDParam(c)
	if err != nil {
		return pendingdomain.Request{}, err
	}
	var query pendingFeesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return pendingdomain.Request{}, ErrInvalidRequest
	}
	return pendingdomain.Request{
		StudentID:    studentID,
		Grade:        strings.TrimSpace(query.Grade),
		AcademicYear: strings.TrimSpace(query.AcademicYear),
	}, nil
}

func (s *Server) GetPendingFees(c *gin.Context) {
	req, err := s.pendingRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pendingSvc.IdentifyPendingFees(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPendingFeesBreakdown(c *gin.Context) {
	req, err := s.pendingRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pendingSvc.GetPendingFeesBreakdown(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CarryForwardFees(c *gin.Context) {
	var req cfdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.carrySvc.CarryForwardFees(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type carryForwardSummaryQuery struct {
	StudentID string `form:"student_id"`
	FromGrade string `form:"from_grade"`
	ToGrade   string `form:"to_grade"`
	FromYear  string `form:"from_year"`
	ToYear    string `form:"to_year"`
}

func (s *Server) GetCarryForwardSummary(c *gin.Context) {
	var query carryForwardSummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	studentID, err := parseStudentID(query.StudentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.carrySvc.GetCarryForwardSummary(c.Request.Context(), cfdomain.Request{
		StudentID: studentID,
		FromGrade: strings.TrimSpace(query.FromGrade),
		ToGrade:   strings.TrimSpace(query.ToGrade),
		FromYear:  strings.TrimSpace(query.FromYear),
		ToYear:    strings.TrimSpace(query.ToYear),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
