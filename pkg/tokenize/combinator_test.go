package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lemonberrylabs/exprtk/pkg/token"
)

func TestCharClasses(t *testing.T) {
	assert.True(t, IsLetter('a'))
	assert.True(t, IsLetter('Z'))
	assert.False(t, IsLetter('é'))
	assert.False(t, IsLetter('_'))
	assert.True(t, IsDigit('7'))
	assert.False(t, IsDigit('٣'))
	assert.True(t, IsSymbolStart('_'))
	assert.False(t, IsSymbolStart('1'))
	assert.True(t, IsSymbolPart('1'))
	assert.True(t, IsNewline('\r'))
	assert.False(t, IsNewline(' '))
	assert.True(t, IsSpace('\v'))
	assert.False(t, IsSpace('\u00a0'))
}

func TestCombinators(t *testing.T) {
	src := token.NewSource("abc123;")
	letter := Char(IsLetter)
	digit := Char(IsDigit)

	tests := []struct {
		name string
		m    Matcher
		pos  int
		end  int
		ok   bool
	}{
		{"char match", letter, 0, 1, true},
		{"char miss", digit, 0, 0, false},
		{"char at end", letter, 7, 7, false},
		{"literal", Literal("abc"), 0, 3, true},
		{"literal miss", Literal("abd"), 0, 0, false},
		{"empty literal", Literal(""), 0, 0, false},
		{"seq", Seq(letter, letter), 0, 2, true},
		{"seq partial fails whole", Seq(letter, digit), 0, 0, false},
		{"alt first wins", Alt(Literal("a"), Literal("ab")), 0, 1, true},
		{"alt falls through", Alt(digit, letter), 0, 1, true},
		{"many0 zero", Many0(digit), 0, 0, true},
		{"many0 run", Many0(letter), 0, 3, true},
		{"many1 none", Many1(digit), 0, 0, false},
		{"many1 run", Many1(digit), 3, 6, true},
		{"opt absent", Opt(digit), 0, 0, true},
		{"opt present", Opt(letter), 0, 1, true},
		{"until", Until(func(r rune) bool { return r == ';' }), 0, 6, true},
		{"until eof", Until(func(r rune) bool { return r == '#' }), 2, 7, true},
		{"longest", Longest("a", "abc", "ab"), 0, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, ok := tt.m(src, tt.pos)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestMany0StopsOnEmptyInnerMatch(t *testing.T) {
	end, ok := Many0(Opt(Char(IsDigit)))(token.NewSource("abc"), 0)
	assert.True(t, ok)
	assert.Equal(t, 0, end)
}

func TestRecognizeRejectsEmptyMatch(t *testing.T) {
	rec := Recognize(token.Symbol, Many0(Char(IsDigit)))
	_, end, err := rec(token.NewSource("x"), 0)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, 0, end)
}
