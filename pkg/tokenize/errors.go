package tokenize

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/lemonberrylabs/exprtk/pkg/token"
)

// ErrNoMatch is returned by a recognizer whose category is absent at the
// current position. The driver treats it as a cue to try the next one.
var ErrNoMatch = errors.New("no match")

// remainderPreview caps how much unconsumed input Error() quotes.
const remainderPreview = 16

// LexError reports where tokenizing stopped and why.
type LexError struct {
	Pos       token.Position
	Remainder string // unconsumed input from Pos to the end
	Hint      string
}

func (e *LexError) Error() string {
	rest := []rune(e.Remainder)
	if len(rest) > remainderPreview {
		rest = append(rest[:remainderPreview:remainderPreview], '…')
	}
	return fmt.Sprintf("%s: %s near %q", e.Pos, e.Hint, string(rest))
}

func newLexError(src *token.Source, pos int, hint string) *LexError {
	return &LexError{
		Pos:       src.Position(pos),
		Remainder: src.From(pos),
		Hint:      hint,
	}
}

// hintFor describes why r cannot start any token.
func hintFor(r rune) string {
	switch {
	case r > unicode.MaxASCII && unicode.IsLetter(r):
		return fmt.Sprintf("non-ASCII letter %q cannot start a symbol", r)
	case r > unicode.MaxASCII && unicode.IsSpace(r):
		return fmt.Sprintf("unsupported whitespace character %U", r)
	case unicode.IsControl(r):
		return fmt.Sprintf("control character %U", r)
	default:
		return fmt.Sprintf("unexpected character %q", r)
	}
}
