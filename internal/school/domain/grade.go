package domain

import (
	"strconv"
	"strings"

	"github.com/smallbiznis/feeledger/internal/feeerrors"
)

var (
	ErrInvalidGrade        = feeerrors.New(feeerrors.ErrValidation, "invalid_grade")
	ErrInvalidAcademicYear = feeerrors.New(feeerrors.ErrValidation, "invalid_academic_year")
)

// Grade is the canonical form of a grade label: "Grade 5", "class 5" and
// "5" all become "5".
type Grade string

var gradePrefixes = []string{"grade", "class"}

func ParseGrade(raw string) (Grade, error) {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	for _, prefix := range gradePrefixes {
		if strings.HasPrefix(lower, prefix) {
			value = strings.TrimSpace(value[len(prefix):])
			break
		}
	}
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return "", ErrInvalidGrade
	}
	return Grade(value), nil
}

// MustGrade is for literals known to be valid.
func MustGrade(raw string) Grade {
	g, err := ParseGrade(raw)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Grade) String() string { return string(g) }

// Variants lists the textual forms the fee-structure table may hold.
func (g Grade) Variants() []string {
	if g == "" {
		return nil
	}
	return []string{string(g), "Grade " + string(g)}
}

// ValidateAcademicYear accepts "YYYY-YYYY" with consecutive years.
func ValidateAcademicYear(year string) error {
	start, end, ok := strings.Cut(strings.TrimSpace(year), "-")
	if !ok || len(start) != 4 || len(end) != 4 {
		return ErrInvalidAcademicYear
	}
	from, err := strconv.Atoi(start)
	if err != nil {
		return ErrInvalidAcademicYear
	}
	to, err := strconv.Atoi(end)
	if err != nil || to != from+1 {
		return ErrInvalidAcademicYear
	}
	return nil
}
