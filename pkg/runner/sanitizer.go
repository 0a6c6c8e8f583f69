package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxInputSize caps a question at 4KB. Dumps are uploaded, not typed.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides the default limit.
	EnvMaxInputSize = "SQLASSIST_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitizer cleans free-text questions before they reach logs, prompts and terminals.
type Sanitizer struct {
	MaxSize int
}

// NewSanitizer reads the size limit from the environment.
func NewSanitizer() Sanitizer {
	limit := DefaultMaxInputSize
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			limit = size
		}
	}
	return Sanitizer{MaxSize: limit}
}

// Clean rejects oversized or malformed input and drops control characters
// other than newline, tab and carriage return. Oversized input is rejected
// rather than truncated so a question is never silently changed.
func (s Sanitizer) Clean(input string) (string, error) {
	if s.MaxSize > 0 && len(input) > s.MaxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), s.MaxSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

// SanitizeInput cleans input with the environment-configured limit.
func SanitizeInput(input string) (string, error) {
	return NewSanitizer().Clean(input)
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
