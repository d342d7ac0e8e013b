package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestActionErrorKindMatching(t *testing.T) {
	t.Parallel()

	err := NewError(ErrKindTimeout, "request timed out", nil)
	wrapped := fmt.Errorf("attempt 2: %w", err)

	if KindOf(wrapped) != ErrKindTimeout {
		t.Fatalf("unexpected kind: %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, &ActionError{Kind: ErrKindTimeout}) {
		t.Fatalf("expected kind-based match")
	}
	if errors.Is(wrapped, ErrCancelled) {
		t.Fatalf("timeout must not match cancellation")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	t.Parallel()

	if KindOf(errors.New("plain")) != ErrKindInternal {
		t.Fatalf("expected internal kind for unclassified errors")
	}
}

func TestRetryablePolicy(t *testing.T) {
	t.Parallel()

	cases := map[ErrKind]bool{
		ErrKindTimeout:     true,
		ErrKindNetwork:     true,
		ErrKindAuth:        false,
		ErrKindValidation:  false,
		ErrKindEmptyResult: false,
		ErrKindCancelled:   false,
	}
	for kind, want := range cases {
		if got := Retryable(NewError(kind, "x", nil)); got != want {
			t.Fatalf("kind %s: expected retryable=%v", kind, want)
		}
	}
}

func TestActionErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := NewError(ErrKindNetwork, "send failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if err.Error() != "send failed: socket closed" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
