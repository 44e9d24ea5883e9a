package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/feeledger/internal/audit/domain"
)

func auditListRequest(c *gin.Context) (auditdomain.ListRequest, error) {
	startAt, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		return auditdomain.ListRequest{}, err
	}
	endAt, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		return auditdomain.ListRequest{}, err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return auditdomain.ListRequest{}, err
	}
	return auditdomain.ListRequest{StartAt: startAt, EndAt: endAt, Limit: limit}, nil
}

func (s *Server) GetStudentAuditLogs(c *gin.Context) {
	studentID, err := studentIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req, err := auditListRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.StudentID = studentID

	resp, err := s.auditSvc.GetStudentAuditLogs(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAuditLogsByAction(c *gin.Context) {
	req, err := auditListRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.Action = auditdomain.Action(strings.TrimSpace(c.Query("action")))

	resp, err := s.auditSvc.GetAuditLogsByAction(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
