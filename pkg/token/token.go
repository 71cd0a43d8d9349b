// Package token defines the lexical tokens of the computed-column expression
// language and the source text they are cut from.
package token

import "fmt"

// Kind classifies a token.
type Kind int

const (
	Whitespace  Kind = iota // spaces, tabs, newlines
	Comment                 // // to end of line
	Symbol                  // identifier: variable, function or keyword
	Number                  // numeric literal
	String                  // quoted literal, 'text' or "column"
	Operator                // + - * / := == ...
	Punctuation             // ( ) [ ] { } , ; : ? .
)

// String returns a debug-friendly name for the kind.
func (k Kind) String() string {
	switch k {
	case Whitespace:
		return "WHITESPACE"
	case Comment:
		return "COMMENT"
	case Symbol:
		return "SYMBOL"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Operator:
		return "OPERATOR"
	case Punctuation:
		return "PUNCTUATION"
	default:
		return "UNKNOWN"
	}
}

// IsTrivia reports whether tokens of this kind carry no meaning for a parser.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Comment
}

// Span is a half-open range [Start, End) of rune offsets into a Source.
type Span struct {
	Start int
	End   int
}

// Len returns the number of runes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether off falls inside the span.
func (s Span) Contains(off int) bool {
	return off >= s.Start && off < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Token is a classified, positioned fragment of source text.
type Token struct {
	Kind Kind
	Span Span
	Text string // exactly the source runes covered by Span
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Span)
}
