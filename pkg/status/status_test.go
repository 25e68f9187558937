package status

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesCode(t *testing.T) {
	err := Invalidf("field %d", 7)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if errors.Is(err, ErrObjectNotFound) {
		t.Error("InvalidArgument must not match ObjectNotFound")
	}
	wrapped := fmt.Errorf("entry add: %w", err)
	if !errors.Is(wrapped, ErrInvalidArgument) {
		t.Error("wrapped error lost its code")
	}
	if CodeOf(wrapped) != InvalidArgument {
		t.Errorf("CodeOf = %v", CodeOf(wrapped))
	}
}

func TestNotFoundReason(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NotFoundf(ReasonGroupEmpty, "group %d", 3))
	if !IsNotFound(err) {
		t.Fatal("expected not found")
	}
	if got := ReasonOf(err); got != ReasonGroupEmpty {
		t.Errorf("ReasonOf = %q, want %q", got, ReasonGroupEmpty)
	}
	if !errors.Is(err, &Error{Code: ObjectNotFound, Reason: ReasonGroupEmpty}) {
		t.Error("reason-specific target did not match")
	}
	if errors.Is(err, &Error{Code: ObjectNotFound, Reason: ReasonMember}) {
		t.Error("different reason matched")
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(nil) != OK {
		t.Error("nil should be OK")
	}
	if CodeOf(errors.New("boom")) != Unexpected {
		t.Error("uncoded error should be Unexpected")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("map full")
	err := Wrap(Unexpected, cause, "program entry")
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
	if got, want := err.Error(), "unexpected: program entry: map full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if Wrap(Unexpected, nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}
