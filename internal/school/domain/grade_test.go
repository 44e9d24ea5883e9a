package domain

import (
	"errors"
	"testing"
)

func TestParseGrade(t *testing.T) {
	cases := []struct {
		raw  string
		want Grade
	}{
		{raw: "5", want: "5"},
		{raw: "Grade 5", want: "5"},
		{raw: " grade  5 ", want: "5"},
		{raw: "Class 10", want: "10"},
		{raw: "KG 1", want: "KG 1"},
	}
	for _, tc := range cases {
		got, err := ParseGrade(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("expected %q for %q, got %q", tc.want, tc.raw, got)
		}
	}

	if _, err := ParseGrade("Grade "); !errors.Is(err, ErrInvalidGrade) {
		t.Fatalf("expected invalid grade, got %v", err)
	}
}

func TestGradeVariants(t *testing.T) {
	variants := MustGrade("Grade 5").Variants()
	if len(variants) != 2 || variants[0] != "5" || variants[1] != "Grade 5" {
		t.Fatalf("unexpected variants %v", variants)
	}
}

func TestValidateAcademicYear(t *testing.T) {
	for _, year := range []string{"2024-2025", " 2025-2026 "} {
		if err := ValidateAcademicYear(year); err != nil {
			t.Fatalf("expected %q valid, got %v", year, err)
		}
	}
	for _, year := range []string{"", "2024", "2024-2026", "2025-2024", "24-25", "abcd-abce"} {
		if err := ValidateAcademicYear(year); !errors.Is(err, ErrInvalidAcademicYear) {
			t.Fatalf("expected %q invalid, got %v", year, err)
		}
	}
}
