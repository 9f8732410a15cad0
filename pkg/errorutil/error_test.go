package errorutil

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"retriable", Retriable("timeout"), true},
		{"non retriable", NonRetriable("bad input"), false},
		{"wrapped retriable", fmt.Errorf("call: %w", Retriable("timeout")), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")

	if !errors.Is(RetriableWrap(cause, "fetch queue"), cause) {
		t.Fatal("RetriableWrap must keep the cause")
	}
	if !errors.Is(Wrap(cause), cause) {
		t.Fatal("Wrap must keep the cause")
	}

	e := Retriable("x")
	if Wrap(fmt.Errorf("outer: %w", e)) != e {
		t.Fatal("Wrap must return the inner *Error")
	}
	if Wrap(nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
}
