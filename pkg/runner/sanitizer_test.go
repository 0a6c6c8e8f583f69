package runner

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := DefaultMaxInputSize

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("a", tt.inputSize))
			if tt.wantErr && !errors.Is(err, ErrInputTooLarge) {
				t.Errorf("expected ErrInputTooLarge for size %d, got %v", tt.inputSize, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain question", "How many orders?", "How many orders?"},
		{"Safe Controls", "total\namount\tper\r\nuser", "total\namount\tper\r\nuser"},
		{"ANSI Code", "\x1b[31morders\x1b[0m", "[31morders[0m"},
		{"Null Byte", "sum\x00amount", "sumamount"},
		{"Bell", "orders\x07", "orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")

	if _, err := SanitizeInput("12345678901"); err == nil {
		t.Error("expected error for input > 10 when env var is set")
	}
	if _, err := SanitizeInput("12345"); err != nil {
		t.Errorf("unexpected error for valid input: %v", err)
	}
}

func TestSanitizeInput_InvalidEnvIgnored(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "-3")
	if got := NewSanitizer().MaxSize; got != DefaultMaxInputSize {
		t.Errorf("expected default limit, got %d", got)
	}
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}
