// Package tokenize splits computed-column expression source into tokens.
//
// Each token category has its own Recognizer. The Tokenizer tries them in a
// fixed priority order at every position and commits to the first match;
// emitted tokens are never revisited. Input no recognizer accepts stops
// tokenizing with a *LexError.
package tokenize

import (
	"errors"
	"io"
	"iter"

	"github.com/lemonberrylabs/exprtk/pkg/token"
)

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithoutWhitespace drops whitespace tokens from the output.
func WithoutWhitespace() Option {
	return func(t *Tokenizer) { t.emitWhitespace = false }
}

// WithoutComments drops comment tokens from the output.
func WithoutComments() Option {
	return func(t *Tokenizer) { t.emitComments = false }
}

// WithoutTrivia drops both whitespace and comments.
func WithoutTrivia() Option {
	return func(t *Tokenizer) {
		t.emitWhitespace = false
		t.emitComments = false
	}
}

// TriviaOptions returns the options that drop whitespace or comment tokens
// when the matching emit flag is false.
func TriviaOptions(emitWhitespace, emitComments bool) []Option {
	var opts []Option
	if !emitWhitespace {
		opts = append(opts, WithoutWhitespace())
	}
	if !emitComments {
		opts = append(opts, WithoutComments())
	}
	return opts
}

// WithRecognizers replaces the priority chain.
func WithRecognizers(rs ...Recognizer) Option {
	return func(t *Tokenizer) { t.recognizers = rs }
}

// Tokenizer produces tokens from a Source one at a time.
type Tokenizer struct {
	src            *token.Source
	pos            int
	recognizers    []Recognizer
	emitWhitespace bool
	emitComments   bool
	err            error // sticky: io.EOF or the first failure
	opts           []Option
}

// New creates a tokenizer over src. Whitespace and comments are emitted
// unless an option says otherwise.
func New(src string, opts ...Option) *Tokenizer {
	return NewFromSource(token.NewSource(src), opts...)
}

// NewFromSource creates a tokenizer over an already decoded source.
func NewFromSource(src *token.Source, opts ...Option) *Tokenizer {
	t := &Tokenizer{
		src:            src,
		recognizers:    DefaultRecognizers(),
		emitWhitespace: true,
		emitComments:   true,
		opts:           opts,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Source returns the text being tokenized.
func (t *Tokenizer) Source() *token.Source {
	return t.src
}

// Offset returns the rune offset of the next unconsumed character.
func (t *Tokenizer) Offset() int {
	return t.pos
}

// Next returns the next token, or io.EOF once the input is exhausted. After
// EOF or a failure every further call returns the same error.
func (t *Tokenizer) Next() (token.Token, error) {
	for {
		if t.err != nil {
			return token.Token{}, t.err
		}
		if t.pos >= t.src.Len() {
			t.err = io.EOF
			return token.Token{}, t.err
		}

		tok, err := t.match()
		if err != nil {
			t.err = err
			return token.Token{}, err
		}
		t.pos = tok.Span.End

		if tok.Kind.IsTrivia() && !t.emits(tok.Kind) {
			continue
		}
		return tok, nil
	}
}

func (t *Tokenizer) emits(k token.Kind) bool {
	switch k {
	case token.Whitespace:
		return t.emitWhitespace
	case token.Comment:
		return t.emitComments
	}
	return true
}

// match runs the priority chain at the current position.
func (t *Tokenizer) match() (token.Token, error) {
	for _, recognize := range t.recognizers {
		tok, end, err := recognize(t.src, t.pos)
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		if err != nil {
			return token.Token{}, err
		}
		if end <= t.pos {
			return token.Token{}, newLexError(t.src, t.pos, "empty token")
		}
		return tok, nil
	}
	if t.src.Invalid(t.pos) {
		return token.Token{}, newLexError(t.src, t.pos, "invalid UTF-8 encoding")
	}
	r, _ := t.src.At(t.pos)
	return token.Token{}, newLexError(t.src, t.pos, hintFor(r))
}

// All returns a lazy sequence over every token, starting from the beginning
// of the source regardless of how far Next has advanced. A failure is
// yielded once as the final element.
func (t *Tokenizer) All() iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		walker := NewFromSource(t.src, t.opts...)
		for {
			tok, err := walker.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(token.Token{}, err)
				return
			}
			if !yield(tok, nil) {
				return
			}
		}
	}
}

// Tokenize returns every token in src, or the first failure.
func Tokenize(src string, opts ...Option) ([]token.Token, error) {
	var tokens []token.Token
	for tok, err := range New(src, opts...).All() {
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
