package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Whitespace, "WHITESPACE"},
		{Comment, "COMMENT"},
		{Symbol, "SYMBOL"},
		{Number, "NUMBER"},
		{String, "STRING"},
		{Operator, "OPERATOR"},
		{Punctuation, "PUNCTUATION"},
		{Kind(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
	assert.True(t, Comment.IsTrivia())
	assert.True(t, Whitespace.IsTrivia())
	assert.False(t, Symbol.IsTrivia())
}

func TestSourceRuneOffsets(t *testing.T) {
	src := NewSource("é + 'ü'")
	require.Equal(t, 7, src.Len())

	r, ok := src.At(0)
	require.True(t, ok)
	assert.Equal(t, 'é', r)

	_, ok = src.At(7)
	assert.False(t, ok)

	assert.Equal(t, "'ü'", src.Slice(Span{Start: 4, End: 7}))
	assert.Equal(t, "", src.Slice(Span{Start: 5, End: 2}))
	assert.Equal(t, "+ 'ü'", src.From(2))
	assert.True(t, src.HasPrefixAt(2, "+ '"))
	assert.False(t, src.HasPrefixAt(6, "'x"))
	assert.Equal(t, "é + 'ü'", src.String())
}

func TestSourcePosition(t *testing.T) {
	src := NewSource("ab\ncd\r\nef\rg")

	tests := []struct {
		off       int
		line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{4, 2, 2},
		{7, 3, 1},
		{10, 4, 1},
		{11, 4, 2},
		{100, 4, 2},
	}
	for _, tt := range tests {
		pos := src.Position(tt.off)
		assert.Equal(t, tt.line, pos.Line, "line of offset %d", tt.off)
		assert.Equal(t, tt.col, pos.Column, "column of offset %d", tt.off)
	}
	assert.Equal(t, "line 2, column 1", src.Position(3).String())
}

func TestSourceInvalid(t *testing.T) {
	src := NewSource("a\xff\uFFFDb")
	require.Equal(t, 4, src.Len())
	r, _ := src.At(1)
	assert.Equal(t, '\uFFFD', r)
	assert.True(t, src.Invalid(1))
	assert.False(t, src.Invalid(2), "a literal U+FFFD is valid input")
	assert.False(t, src.Invalid(0))
	assert.False(t, NewSource("ok").Invalid(0))
}

func TestSourceLine(t *testing.T) {
	src := NewSource("ab\ncd\r\nef\rg")
	for n, want := range []string{"ab", "cd", "ef", "g"} {
		got, ok := src.Line(n + 1)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := src.Line(0)
	assert.False(t, ok)
	_, ok = src.Line(5)
	assert.False(t, ok)

	last, ok := NewSource("a\n").Line(2)
	require.True(t, ok)
	assert.Equal(t, "", last)
}

func TestSpan(t *testing.T) {
	s := Span{Start: 2, End: 5}
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(2))
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(5))
	assert.Equal(t, "2-5", s.String())

	tok := Token{Kind: Symbol, Span: s, Text: "foo"}
	assert.True(t, tok.Is(Symbol, "foo"))
	assert.False(t, tok.Is(String, "foo"))
	assert.Equal(t, `SYMBOL("foo")@2-5`, tok.String())
}

func TestLocate(t *testing.T) {
	src := NewSource("a\n  bc")
	loc := src.Locate(Token{Kind: Symbol, Span: Span{Start: 4, End: 6}, Text: "bc"})
	assert.Equal(t, Located{Kind: "SYMBOL", Text: "bc", Start: 4, End: 6, Line: 2, Column: 3}, loc)
}
