package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeNotFound, "course.get", "course missing", nil)
	if got, want := err.Error(), "course.get: course missing (not_found)"; got != want {
		t.Fatalf("Error(): want=%q got=%q", want, got)
	}
	if got, want := NewError(CodeInternal, "", "", nil).Error(), "internal"; got != want {
		t.Fatalf("Error(): want=%q got=%q", want, got)
	}
}

func TestIsCodeSeesThroughWrapping(t *testing.T) {
	base := Validation("lesson_progress.update", "progress %d out of range", 150)
	wrapped := fmt.Errorf("handler: %w", base)
	if !IsCode(wrapped, CodeValidation) {
		t.Fatalf("IsCode: want validation through fmt wrapping")
	}
	if CodeOf(wrapped) != CodeValidation {
		t.Fatalf("CodeOf: want=%v got=%v", CodeValidation, CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("CodeOf: want empty for uncoded errors")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodePolicyRejected, "badge.award", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("Wrap: cause not reachable")
	}
	if Wrap(CodeInternal, "x", nil) != nil {
		t.Fatalf("Wrap(nil): want nil")
	}
}
