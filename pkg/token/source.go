package token

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Position is a resolved location in a Source. Line and Column are 1-based;
// Offset is the 0-based rune offset.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Source is an immutable sequence of Unicode scalar values. Offsets into a
// Source count runes, not bytes.
type Source struct {
	runes   []rune
	lines   []int        // rune offset of the first rune of each line
	invalid map[int]bool // offsets of runes decoded from invalid UTF-8
}

// NewSource decodes s into a Source. Invalid UTF-8 bytes decode to U+FFFD
// and are reported by Invalid.
func NewSource(s string) *Source {
	runes := make([]rune, 0, len(s))
	var invalid map[int]bool
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			if invalid == nil {
				invalid = make(map[int]bool)
			}
			invalid[len(runes)] = true
		}
		runes = append(runes, r)
		i += size
	}
	lines := []int{0}
	for i, r := range runes {
		switch r {
		case '\n':
			lines = append(lines, i+1)
		case '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				continue
			}
			lines = append(lines, i+1)
		}
	}
	return &Source{runes: runes, lines: lines, invalid: invalid}
}

// Len returns the number of runes.
func (s *Source) Len() int {
	return len(s.runes)
}

// At returns the rune at off and whether off is in range.
func (s *Source) At(off int) (rune, bool) {
	if off < 0 || off >= len(s.runes) {
		return 0, false
	}
	return s.runes[off], true
}

// Invalid reports whether the rune at off was decoded from invalid UTF-8
// rather than written as U+FFFD.
func (s *Source) Invalid(off int) bool {
	return s.invalid[off]
}

// HasPrefixAt reports whether the runes starting at off spell prefix.
func (s *Source) HasPrefixAt(off int, prefix string) bool {
	if off < 0 {
		return false
	}
	i := off
	for _, r := range prefix {
		if i >= len(s.runes) || s.runes[i] != r {
			return false
		}
		i++
	}
	return true
}

// Slice returns the text covered by span, clamped to the source bounds.
func (s *Source) Slice(span Span) string {
	start, end := span.Start, span.End
	if start < 0 {
		start = 0
	}
	if end > len(s.runes) {
		end = len(s.runes)
	}
	if start >= end {
		return ""
	}
	return string(s.runes[start:end])
}

// From returns the text from off to the end of the source.
func (s *Source) From(off int) string {
	return s.Slice(Span{Start: off, End: len(s.runes)})
}

// Position resolves a rune offset into a line and column.
func (s *Source) Position(off int) Position {
	if off < 0 {
		off = 0
	}
	if off > len(s.runes) {
		off = len(s.runes)
	}
	line := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > off }) - 1
	return Position{Offset: off, Line: line + 1, Column: off - s.lines[line] + 1}
}

// Line returns the text of the 1-based line n without its line break.
// Line breaks are "\n", "\r\n" and a lone "\r".
func (s *Source) Line(n int) (string, bool) {
	if n < 1 || n > len(s.lines) {
		return "", false
	}
	end := len(s.runes)
	if n < len(s.lines) {
		end = s.lines[n]
	}
	return strings.TrimRight(s.Slice(Span{Start: s.lines[n-1], End: end}), "\r\n"), true
}

// String returns the full text.
func (s *Source) String() string {
	var sb strings.Builder
	for _, r := range s.runes {
		sb.WriteRune(r)
	}
	return sb.String()
}

// Located is a token flattened with the position of its first rune, the
// shape tokens take on the wire.
type Located struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Locate resolves tok against s.
func (s *Source) Locate(tok Token) Located {
	pos := s.Position(tok.Span.Start)
	return Located{
		Kind:   tok.Kind.String(),
		Text:   tok.Text,
		Start:  tok.Span.Start,
		End:    tok.Span.End,
		Line:   pos.Line,
		Column: pos.Column,
	}
}
