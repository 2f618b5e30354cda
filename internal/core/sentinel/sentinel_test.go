package sentinel

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  Error
		want string
	}{
		{"simple", Error("something failed"), "something failed"},
		{"empty", Error(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorsIs(t *testing.T) {
	const sent = Error("record not found")

	wrapped := fmt.Errorf("load preferences: %w", sent)
	if !errors.Is(wrapped, sent) {
		t.Error("expected errors.Is to match through wrapping")
	}

	if errors.Is(wrapped, Error("other")) {
		t.Error("expected no match against different sentinel")
	}

	if errors.Is(errors.New("record not found"), sent) {
		t.Error("expected no match against errors.New with same text")
	}
}

func TestConstDeclaration(t *testing.T) {
	const err = Error("const error")
	if err.Error() != "const error" {
		t.Errorf("expected const error text, got %q", err.Error())
	}
}
