package tokenize

import (
	"github.com/lemonberrylabs/exprtk/pkg/token"
)

// Recognizer attempts to match one token category at pos. On success it
// returns the token and the offset just past it. On ErrNoMatch the returned
// offset equals pos. Any other error is fatal to tokenizing.
type Recognizer func(src *token.Source, pos int) (token.Token, int, error)

// Operators lists every operator, in no particular order; matching is
// always maximal munch.
var Operators = []string{
	":=", "+=", "-=", "*=", "/=", "%=",
	"==", "!=", "<>", "<=", ">=",
	"<", ">", "=", "+", "-", "*", "/", "%", "^", "!", "&", "|",
}

// Punctuators lists every single-rune punctuation token.
const Punctuators = "()[]{},;:?."

// CommentMarker introduces a comment running to the end of the line.
const CommentMarker = "//"

var (
	digits = Many1(Char(IsDigit))

	// Comment matches // and the rest of the line, excluding the newline.
	Comment = Recognize(token.Comment, Seq(Literal(CommentMarker), Until(IsNewline)))

	// Symbol matches [A-Za-z_][A-Za-z0-9_]*.
	Symbol = Recognize(token.Symbol, Seq(Char(IsSymbolStart), Many0(Char(IsSymbolPart))))

	// Whitespace matches a run of spaces, tabs and line breaks.
	Whitespace = Recognize(token.Whitespace, Many1(Char(IsSpace)))

	// Number matches digits with an optional fraction and exponent. Fraction
	// and exponent are taken only when complete.
	Number = Recognize(token.Number, Seq(
		digits,
		Opt(Seq(Literal("."), digits)),
		Opt(Seq(Char(isExponentMark), Opt(Char(isSign)), digits)),
	))

	// Operator matches the longest operator at the position.
	Operator = Recognize(token.Operator, Longest(Operators...))

	// Punctuation matches one punctuation rune.
	Punctuation = Recognize(token.Punctuation, Char(isPunctuator))
)

func isPunctuator(r rune) bool {
	for _, p := range Punctuators {
		if r == p {
			return true
		}
	}
	return false
}

// String matches a single- or double-quoted literal in which a backslash
// escapes the next rune. An opening quote with no closing quote is a
// LexError, not ErrNoMatch: nothing else could claim it.
func String(src *token.Source, pos int) (token.Token, int, error) {
	quote, ok := src.At(pos)
	if !ok || (quote != '\'' && quote != '"') {
		return token.Token{}, pos, ErrNoMatch
	}
	i := pos + 1
	for {
		r, ok := src.At(i)
		if !ok {
			return token.Token{}, pos, newLexError(src, pos, "unterminated string literal")
		}
		switch r {
		case '\\':
			if _, ok := src.At(i + 1); !ok {
				return token.Token{}, pos, newLexError(src, pos, "unterminated string literal")
			}
			i += 2
			continue
		case quote:
			span := token.Span{Start: pos, End: i + 1}
			return token.Token{Kind: token.String, Span: span, Text: src.Slice(span)}, i + 1, nil
		}
		i++
	}
}

// DefaultRecognizers is the fixed priority order the driver tries at every
// position. Comment precedes Operator so // is never read as two slashes,
// and Operator precedes Punctuation so := is never read as : then =.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		Whitespace,
		Comment,
		Symbol,
		Number,
		String,
		Operator,
		Punctuation,
	}
}
