package sanitizer

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrInvalidInput rejects empty or non-UTF-8 text before any sanitization
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocalFailure wraps a panic recovered from the local engine
	ErrLocalFailure = errors.New("local sanitizer failed")
)

func validateText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	return nil
}
