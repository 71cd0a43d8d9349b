// Package expr parses and evaluates computed-column expressions.
//
// An expression is one or more ';'-separated statements over dataset
// columns ("Sales"), literals ('text', 42, 1.5e3, true, null), variables
// declared with var, operators and function calls:
//
//	// margin in percent
//	var m := "Profit" / "Sales";
//	if (m > 0) { m * 100 } else { 0 }
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/tokenize"
	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// MaxExpressionLength is the maximum allowed length, in runes, for a single
// expression.
const MaxExpressionLength = 4096

// kindEOF marks the virtual token past the end of input.
const kindEOF token.Kind = -1

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true,
	"true": true, "false": true, "null": true,
	"if": true, "else": true, "var": true,
}

// IsKeyword reports whether name is reserved and cannot name a variable.
func IsKeyword(name string) bool {
	return keywords[name]
}

// Keywords returns the reserved words in sorted order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

var assignOps = map[string]bool{":=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

// SyntaxError is a parse failure at a known position.
type SyntaxError struct {
	Pos token.Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorPosition returns where a lexing or parsing failure occurred.
func ErrorPosition(err error) (token.Position, bool) {
	var lexErr *tokenize.LexError
	if errors.As(err, &lexErr) {
		return lexErr.Pos, true
	}
	var synErr *SyntaxError
	if errors.As(err, &synErr) {
		return synErr.Pos, true
	}
	return token.Position{}, false
}

// Parser is a recursive descent parser over a trivia-free token stream.
type Parser struct {
	src    *token.Source
	tokens []token.Token
	pos    int
}

// ParseExpression tokenizes and parses a complete expression.
func ParseExpression(input string) (*Program, error) {
	return ParseExpressionLimit(input, MaxExpressionLength)
}

// ParseExpressionLimit is ParseExpression with a custom length limit. A
// limit of zero or less disables the check.
func ParseExpressionLimit(input string, limit int) (*Program, error) {
	src := token.NewSource(input)
	if limit > 0 && src.Len() > limit {
		return nil, fmt.Errorf("expression exceeds maximum length of %d characters", limit)
	}

	var tokens []token.Token
	for tok, err := range tokenize.NewFromSource(src, tokenize.WithoutTrivia()).All() {
		if err != nil {
			return nil, fmt.Errorf("lexer error: %w", err)
		}
		tokens = append(tokens, tok)
	}

	p := &Parser{src: src, tokens: tokens}
	return p.parseProgram()
}

// current returns the current token.
func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		end := p.src.Len()
		return token.Token{Kind: kindEOF, Span: token.Span{Start: end, End: end}}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming it.
func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.tokens) {
		end := p.src.Len()
		return token.Token{Kind: kindEOF, Span: token.Span{Start: end, End: end}}
	}
	return p.tokens[p.pos+1]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() token.Token {
	tok := p.current()
	p.pos++
	return tok
}

func (p *Parser) at(kind token.Kind, text string) bool {
	return p.current().Is(kind, text)
}

func (p *Parser) atKeyword(word string) bool {
	return p.at(token.Symbol, word)
}

func (p *Parser) errorf(tok token.Token, format string, args ...interface{}) error {
	return &SyntaxError{Pos: p.src.Position(tok.Span.Start), Msg: fmt.Sprintf(format, args...)}
}

// expect consumes the given token or returns an error.
func (p *Parser) expect(kind token.Kind, text string) (token.Token, error) {
	tok := p.current()
	if !tok.Is(kind, text) {
		return tok, p.errorf(tok, "expected '%s', got %s", text, describe(tok))
	}
	p.advance()
	return tok, nil
}

func describe(tok token.Token) string {
	if tok.Kind == kindEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", tok.Text)
}

func span(from, to token.Span) token.Span {
	return token.Span{Start: from.Start, End: to.End}
}

func (p *Parser) parseProgram() (*Program, error) {
	if p.current().Kind == kindEOF {
		return nil, p.errorf(p.current(), "empty expression")
	}
	prog, err := p.parseStatements(kindEOF, "")
	if err != nil {
		return nil, err
	}
	if p.current().Kind != kindEOF {
		return nil, p.errorf(p.current(), "unexpected %s", describe(p.current()))
	}
	return prog, nil
}

// parseStatements parses statements until the closing token (kindEOF or
// the '}' of a block) without consuming it.
func (p *Parser) parseStatements(closeKind token.Kind, closeText string) (*Program, error) {
	closing := func() bool {
		tok := p.current()
		if closeKind == kindEOF {
			return tok.Kind == kindEOF
		}
		return tok.Is(closeKind, closeText) || tok.Kind == kindEOF
	}

	prog := &Program{}
	start := p.current().Span
	for !closing() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		if p.at(token.Punctuation, ";") {
			p.advance()
			continue
		}
		if !closing() {
			return nil, p.errorf(p.current(), "expected ';' between statements, got %s", describe(p.current()))
		}
	}
	if len(prog.Statements) == 0 {
		return nil, p.errorf(p.current(), "empty block")
	}
	prog.span = span(start, prog.Statements[len(prog.Statements)-1].Span())
	return prog, nil
}

func (p *Parser) parseStatement() (Node, error) {
	tok := p.current()
	if p.atKeyword("var") {
		p.advance()
		name := p.current()
		if name.Kind != token.Symbol || IsKeyword(name.Text) {
			return nil, p.errorf(name, "expected variable name after 'var', got %s", describe(name))
		}
		p.advance()
		node := &AssignNode{at: at{span(tok.Span, name.Span)}, Name: name.Text, Op: ":=", Declare: true}
		if !p.at(token.Operator, ":=") {
			return node, nil
		}
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Value = value
		node.span = span(tok.Span, value.Span())
		return node, nil
	}

	if tok.Kind == token.Symbol && !IsKeyword(tok.Text) {
		next := p.peek()
		if next.Kind == token.Operator && assignOps[next.Text] {
			p.advance()
			p.advance()
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &AssignNode{at: at{span(tok.Span, value.Span())}, Name: tok.Text, Op: next.Text, Value: value}, nil
		}
	}

	return p.parseExpression()
}

// parseExpression is the entry point: handles the lowest precedence operators.
// Precedence (low to high):
//
//	?:
//	or, |
//	and, &
//	not, !
//	in, not in, ==, =, !=, <>, <, >, <=, >=
//	+, -
//	*, /, %
//	unary -, unary +
//	^ (right associative)
//	index, function call
func (p *Parser) parseExpression() (Node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Punctuation, "?") {
		return cond, nil
	}
	p.advance()
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Punctuation, ":"); err != nil {
		return nil, err
	}
	els, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ConditionalNode{at: at{span(cond.Span(), els.Span())}, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.atKeyword("or") || p.at(token.Operator, "|") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{at: at{span(left.Span(), right.Span())}, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}

	for p.atKeyword("and") || p.at(token.Operator, "&") {
		p.advance()
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{at: at{span(left.Span(), right.Span())}, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNotExpr() (Node, error) {
	if p.atKeyword("not") || p.at(token.Operator, "!") {
		tok := p.advance()
		operand, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{at: at{span(tok.Span, operand.Span())}, Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

// comparisonOps maps every comparison spelling to its canonical form.
var comparisonOps = map[string]string{
	"==": "==", "=": "==",
	"!=": "!=", "<>": "!=",
	"<": "<", ">": ">", "<=": "<=", ">=": ">=",
}

func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	switch {
	case tok.Kind == token.Operator && comparisonOps[tok.Text] != "":
		p.advance()
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		return &BinaryNode{at: at{span(left.Span(), right.Span())}, Op: comparisonOps[tok.Text], Left: left, Right: right}, nil
	case tok.Is(token.Symbol, "in"):
		p.advance()
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		return &InNode{at: at{span(left.Span(), right.Span())}, Value: left, Container: right}, nil
	case tok.Is(token.Symbol, "not") && p.peek().Is(token.Symbol, "in"):
		p.advance() // consume 'not'
		p.advance() // consume 'in'
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		return &InNode{at: at{span(left.Span(), right.Span())}, Value: left, Container: right, Negated: true}, nil
	}

	return left, nil
}

func (p *Parser) parseAddition() (Node, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for p.at(token.Operator, "+") || p.at(token.Operator, "-") {
		op := p.advance().Text
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{at: at{span(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.at(token.Operator, "*") || p.at(token.Operator, "/") || p.at(token.Operator, "%") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{at: at{span(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.at(token.Operator, "-") || p.at(token.Operator, "+") {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{at: at{span(tok.Span, operand.Span())}, Op: tok.Text, Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Operator, "^") {
		return base, nil
	}
	p.advance()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &BinaryNode{at: at{span(base.Span(), exp.Span())}, Op: "^", Left: base, Right: exp}, nil
}

func (p *Parser) parsePostfix() (Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.at(token.Punctuation, "[") {
		p.advance()
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(token.Punctuation, "]")
		if err != nil {
			return nil, err
		}
		node = &IndexNode{at: at{span(node.Span(), end.Span)}, Object: node, Index: index}
	}
	return node, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Kind {
	case token.Number:
		p.advance()
		v, err := parseNumber(tok.Text)
		if err != nil {
			return nil, p.errorf(tok, "%v", err)
		}
		return &LiteralNode{at: at{tok.Span}, Value: v}, nil
	case token.String:
		p.advance()
		text := unquote(tok.Text)
		if strings.HasPrefix(tok.Text, `"`) {
			return &ColumnNode{at: at{tok.Span}, Name: text}, nil
		}
		return &LiteralNode{at: at{tok.Span}, Value: types.NewString(text)}, nil
	case token.Symbol:
		return p.parseSymbol()
	case token.Punctuation:
		switch tok.Text {
		case "(":
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Punctuation, ")"); err != nil {
				return nil, err
			}
			return expr, nil
		case "[":
			return p.parseListLiteral()
		case "{":
			return p.parseBlock()
		}
	}
	return nil, p.errorf(tok, "unexpected %s", describe(tok))
}

func (p *Parser) parseSymbol() (Node, error) {
	tok := p.current()
	switch tok.Text {
	case "true":
		p.advance()
		return &LiteralNode{at: at{tok.Span}, Value: types.NewBool(true)}, nil
	case "false":
		p.advance()
		return &LiteralNode{at: at{tok.Span}, Value: types.NewBool(false)}, nil
	case "null":
		p.advance()
		return &LiteralNode{at: at{tok.Span}, Value: types.Null}, nil
	case "if":
		return p.parseIf()
	}
	if IsKeyword(tok.Text) {
		return nil, p.errorf(tok, "unexpected keyword %q", tok.Text)
	}

	p.advance()
	if !p.at(token.Punctuation, "(") {
		return &IdentNode{at: at{tok.Span}, Name: tok.Text}, nil
	}
	args, end, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return &CallNode{at: at{span(tok.Span, end.Span)}, Name: tok.Text, Args: args}, nil
}

// parseIf parses either if (c) a [else b] or the function form if(c, a, b).
func (p *Parser) parseIf() (Node, error) {
	start := p.advance()
	if _, err := p.expect(token.Punctuation, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.at(token.Punctuation, ",") {
		p.advance()
		then, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Punctuation, ","); err != nil {
			return nil, err
		}
		els, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(token.Punctuation, ")")
		if err != nil {
			return nil, err
		}
		return &ConditionalNode{at: at{span(start.Span, end.Span)}, Cond: cond, Then: then, Else: els}, nil
	}

	if _, err := p.expect(token.Punctuation, ")"); err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	node := &ConditionalNode{at: at{span(start.Span, then.Span())}, Cond: cond, Then: then}
	if p.atKeyword("else") {
		p.advance()
		els, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Else = els
		node.span = span(start.Span, els.Span())
	}
	return node, nil
}

// parseBlock parses { statement; ... }.
func (p *Parser) parseBlock() (Node, error) {
	open := p.advance()
	body, err := p.parseStatements(token.Punctuation, "}")
	if err != nil {
		return nil, err
	}
	end, err := p.expect(token.Punctuation, "}")
	if err != nil {
		return nil, err
	}
	body.span = span(open.Span, end.Span)
	return body, nil
}

// parseListLiteral parses [expr, expr, ...].
func (p *Parser) parseListLiteral() (Node, error) {
	open := p.advance()
	elements, end, err := p.parseDelimited("]")
	if err != nil {
		return nil, err
	}
	return &ListNode{at: at{span(open.Span, end.Span)}, Elements: elements}, nil
}

// parseArgList parses (expr, expr, ...).
func (p *Parser) parseArgList() ([]Node, token.Token, error) {
	if _, err := p.expect(token.Punctuation, "("); err != nil {
		return nil, token.Token{}, err
	}
	return p.parseDelimited(")")
}

// parseDelimited parses comma-separated expressions up to and including
// the closing punctuation.
func (p *Parser) parseDelimited(closer string) ([]Node, token.Token, error) {
	var items []Node
	for !p.at(token.Punctuation, closer) {
		if len(items) > 0 {
			if _, err := p.expect(token.Punctuation, ","); err != nil {
				return nil, token.Token{}, err
			}
		}
		item, err := p.parseExpression()
		if err != nil {
			return nil, token.Token{}, err
		}
		items = append(items, item)
	}
	end, err := p.expect(token.Punctuation, closer)
	if err != nil {
		return nil, token.Token{}, err
	}
	return items, end, nil
}

// parseNumber converts a number token into an int, or a double when it has
// a fraction or exponent or does not fit in 64 bits.
func parseNumber(text string) (types.Value, error) {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return types.NewInt(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return types.Null, fmt.Errorf("invalid number %q", text)
	}
	return types.NewDouble(f), nil
}

// unquote strips the quotes from a string token and resolves escapes.
// Unknown escapes are kept verbatim.
func unquote(text string) string {
	runes := []rune(text)
	body := runes[1 : len(runes)-1]

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		r := body[i]
		if r != '\\' || i+1 >= len(body) {
			sb.WriteRune(r)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '"', '\'':
			sb.WriteRune(body[i])
		default:
			sb.WriteByte('\\')
			sb.WriteRune(body[i])
		}
	}
	return sb.String()
}
