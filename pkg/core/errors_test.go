package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := NewAuthenticationError("invalid API key")
	want := "authentication_error: invalid API key"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	err.Code = "key_revoked"
	want = "authentication_error: invalid API key (code: key_revoked)"
	if err.Error() != want {
		t.Fatalf("Error() with code = %q, want %q", err.Error(), want)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  *Error
		want bool
	}{
		{NewRateLimitError("slow down", 30), true},
		{NewOverloadedError("service unavailable"), true},
		{NewAPIError("internal"), true},
		{NewAuthenticationError("bad key"), false},
		{NewSafetyBlockedError("blocked"), false},
		{NewMicPermissionError("denied"), false},
		{NewQuotaExceededError("out of minutes"), false},
		{NewInvalidRequestError("bad setup"), false},
	}
	for _, tt := range tests {
		if got := tt.err.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tt.err.Type, got, tt.want)
		}
	}
}

func TestRateLimitRetryAfter(t *testing.T) {
	err := NewRateLimitError("slow down", 45)
	if err.RetryAfter == nil || *err.RetryAfter != 45 {
		t.Fatalf("RetryAfter = %v, want 45", err.RetryAfter)
	}
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("connect: %w", NewOverloadedError("503"))
	if got := TypeOf(wrapped); got != ErrOverloaded {
		t.Fatalf("TypeOf(wrapped) = %q, want %q", got, ErrOverloaded)
	}
	if got := TypeOf(errors.New("plain")); got != "" {
		t.Fatalf("TypeOf(plain) = %q, want empty", got)
	}
}
