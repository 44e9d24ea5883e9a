package feeerrors

import (
	"errors"
	"testing"
)

func TestWrapClassifiesUnkindedErrorsAsPersistence(t *testing.T) {
	err := Wrap(errors.New("connection reset"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence kind, got %v", err)
	}
}

func TestWrapKeepsDomainKinds(t *testing.T) {
	notFound := New(ErrNotFound, "student_not_found")
	err := Wrap(notFound)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not_found kind, got %v", err)
	}
	if errors.Is(err, ErrPersistence) {
		t.Fatalf("did not expect persistence kind on %v", err)
	}
	if err.Error() != "student_not_found: not_found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{New(ErrAlreadyCarriedForward, "x"), ErrAlreadyCarriedForward},
		{Validation(errors.New("bad")), ErrValidation},
		{errors.New("plain"), nil},
		{nil, nil},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v): expected %v, got %v", tc.err, tc.want, got)
		}
	}
}
