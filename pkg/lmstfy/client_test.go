package lmstfy

import (
	"testing"
	"time"
)

func TestToSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want uint32
	}{
		{0, 1},
		{500 * time.Millisecond, 1},
		{3 * time.Second, 3},
		{3500 * time.Millisecond, 4},
	}
	for _, tt := range tests {
		if got := toSeconds(tt.in); got != tt.want {
			t.Errorf("toSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient("", 7777, "pos", ""); err == nil {
		t.Fatal("expected error for empty host")
	}
	if _, err := NewClient("127.0.0.1", 7777, "pos", "token"); err != nil {
		t.Fatalf("NewClient: %v", err)
	}
}
