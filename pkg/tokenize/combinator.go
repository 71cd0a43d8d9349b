package tokenize

import (
	"sort"

	"github.com/lemonberrylabs/exprtk/pkg/token"
)

// Matcher tries to match at pos and returns the offset just past the match.
// On failure it returns pos and false. Matchers never look behind pos.
type Matcher func(src *token.Source, pos int) (int, bool)

// Char matches a single rune satisfying pred.
func Char(pred func(rune) bool) Matcher {
	return func(src *token.Source, pos int) (int, bool) {
		r, ok := src.At(pos)
		if !ok || !pred(r) {
			return pos, false
		}
		return pos + 1, true
	}
}

// Literal matches the exact text s. An empty s never matches.
func Literal(s string) Matcher {
	n := len([]rune(s))
	return func(src *token.Source, pos int) (int, bool) {
		if n == 0 || !src.HasPrefixAt(pos, s) {
			return pos, false
		}
		return pos + n, true
	}
}

// Seq matches every matcher in order, or nothing at all.
func Seq(ms ...Matcher) Matcher {
	return func(src *token.Source, pos int) (int, bool) {
		end := pos
		for _, m := range ms {
			next, ok := m(src, end)
			if !ok {
				return pos, false
			}
			end = next
		}
		return end, true
	}
}

// Alt returns the result of the first matcher that succeeds.
func Alt(ms ...Matcher) Matcher {
	return func(src *token.Source, pos int) (int, bool) {
		for _, m := range ms {
			if end, ok := m(src, pos); ok {
				return end, true
			}
		}
		return pos, false
	}
}

// Many0 matches m as many times as possible, including zero times.
func Many0(m Matcher) Matcher {
	return func(src *token.Source, pos int) (int, bool) {
		end := pos
		for {
			next, ok := m(src, end)
			if !ok || next == end {
				return end, true
			}
			end = next
		}
	}
}

// Many1 matches m one or more times.
func Many1(m Matcher) Matcher {
	return Seq(m, Many0(m))
}

// Opt matches m zero or one time.
func Opt(m Matcher) Matcher {
	return func(src *token.Source, pos int) (int, bool) {
		if end, ok := m(src, pos); ok {
			return end, true
		}
		return pos, true
	}
}

// Until consumes runes up to, not including, the first one satisfying stop,
// or to the end of input.
func Until(stop func(rune) bool) Matcher {
	return Many0(Char(func(r rune) bool { return !stop(r) }))
}

// Longest matches whichever of the literals is longest at pos.
func Longest(literals ...string) Matcher {
	sorted := make([]string, len(literals))
	copy(sorted, literals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})
	ms := make([]Matcher, len(sorted))
	for i, lit := range sorted {
		ms[i] = Literal(lit)
	}
	return Alt(ms...)
}

// Recognize lifts a matcher into a recognizer that emits everything the
// matcher consumed as a single token of the given kind. A zero-length match
// counts as no match.
func Recognize(kind token.Kind, m Matcher) Recognizer {
	return func(src *token.Source, pos int) (token.Token, int, error) {
		end, ok := m(src, pos)
		if !ok || end <= pos {
			return token.Token{}, pos, ErrNoMatch
		}
		span := token.Span{Start: pos, End: end}
		return token.Token{Kind: kind, Span: span, Text: src.Slice(span)}, end, nil
	}
}
