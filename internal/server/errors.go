package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
)

var (
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInvalidRequest     = feeerrors.New(feeerrors.ErrValidation, "invalid_request")
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AbortWithError maps err onto a status code by its feeerrors kind.
// Persistence and unclassified errors never expose their message.
func AbortWithError(c *gin.Context, err error) {
	status, body := describe(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}

func describe(err error) (int, errorBody) {
	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable, errorBody{Type: "unavailable", Code: "service_unavailable", Message: "service unavailable"}
	}
	switch feeerrors.Kind(err) {
	case feeerrors.ErrNotFound:
		return http.StatusNotFound, errorBody{Type: "not_found", Code: errorCode(err), Message: err.Error()}
	case feeerrors.ErrAlreadyCarriedForward:
		return http.StatusConflict, errorBody{Type: "conflict", Code: errorCode(err), Message: err.Error()}
	case feeerrors.ErrValidation:
		return http.StatusBadRequest, errorBody{Type: "validation", Code: errorCode(err), Message: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Type: "internal", Code: "internal_error", Message: "internal error"}
}

// errorCode is the leading snake_case token of a domain sentinel message.
func errorCode(err error) string {
	code, _, _ := strings.Cut(err.Error(), ":")
	return strings.TrimSpace(code)
}
