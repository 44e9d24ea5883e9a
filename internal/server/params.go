package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
)

var (
	errInvalidStudentID = feeerrors.New(feeerrors.ErrValidation, "invalid_student_id")
	errInvalidTime      = feeerrors.New(feeerrors.ErrValidation, "invalid_time")
	errInvalidNumber    = feeerrors.New(feeerrors.ErrValidation, "invalid_number")
)

func studentIDParam(c *gin.Context) (snowflake.ID, error) {
	return parseStudentID(c.Param("id"))
}

func parseStudentID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, errInvalidStudentID
	}
	return id, nil
}

// parseOptionalTime accepts RFC3339 or a bare date. A bare end date covers
// the whole day.
func parseOptionalTime(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errInvalidTime
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errInvalidNumber
	}
	return value, nil
}
