package parser

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/sandrolain/gorei/pkg/types"
)

// Parser implements a recursive descent parser for Rei programs.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	tokens  []Token
	pos     int
	current Token
	source  string
	arena   *types.NodeArena
	opts    CompileOptions
	depth   int
}

// NewParser creates a new parser over a token stream. A stream missing its
// TokenEOF terminator gets one appended.
func NewParser(tokens []Token, source string, opts ...CompileOption) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		end := Token{Type: TokenEOF}
		if n := len(tokens); n > 0 {
			last := tokens[n-1]
			end.Offset, end.Line, end.Column = last.Offset+len(last.Value), last.Line, last.Column+utf8.RuneCountInString(last.Value)
		}
		tokens = append(tokens[:len(tokens):len(tokens)], end)
	}
	p := &Parser{
		tokens: tokens,
		source: source,
		arena:  types.NewNodeArena(),
		opts:   newCompileOptions(opts),
	}
	p.current = p.tokens[0]
	return p
}

// ParseProgram parses every top-level statement up to TokenEOF.
// An empty token stream yields an empty program.
func (p *Parser) ParseProgram() (*types.Program, error) {
	var nodes []*types.ASTNode
	for p.current.Type != TokenEOF {
		if p.current.Type == TokenSemicolon {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, stmt)
	}
	return types.NewProgram(nodes, p.source, p.arena), nil
}

// ParseSingle parses exactly one expression followed by TokenEOF.
func (p *Parser) ParseSingle() (*types.ASTNode, error) {
	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrEmptyProgram, "empty expression")
	}
	node, err := p.parseFullExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.unexpected()
	}
	return node, nil
}

// Operator precedence, lowest to highest.
const (
	precLowest         = 0
	precPipe           = 10 // |>
	precOr             = 20 // ∨
	precAnd            = 30 // ∧
	precCompare        = 40 // =κ >κ <κ > <
	precAdditive       = 50 // + - ⊕
	precMultiplicative = 60 // * / ⊗ ·
	precExtend         = 70 // >> << ⤊ ⤋
	precUnary          = 80 // ¬ - ◁ (prefix)
	precPostfix        = 90 // . [] ()
)

// precedence maps infix tokens to their binding power.
var precedence = map[TokenType]int{
	TokenPipe:        precPipe,
	TokenOr:          precOr,
	TokenAnd:         precAnd,
	TokenApproxEqual: precCompare,
	TokenGreaterK:    precCompare,
	TokenLessK:       precCompare,
	TokenGreater:     precCompare,
	TokenLess:        precCompare,
	TokenPlus:        precAdditive,
	TokenMinus:       precAdditive,
	TokenOplus:       precAdditive,
	TokenMult:        precMultiplicative,
	TokenDiv:         precMultiplicative,
	TokenOtimes:      precMultiplicative,
	TokenCdot:        precMultiplicative,
	TokenExtend:      precExtend,
	TokenReduce:      precExtend,
	TokenSpiralUp:    precExtend,
	TokenSpiralDown:  precExtend,
	TokenDot:         precPostfix,
	TokenBracketOpen: precPostfix,
	TokenParenOpen:   precPostfix,
}

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return precLowest
}

// advance moves to the next token. It stays on TokenEOF once reached.
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
}

// peek returns the token n positions ahead of the current one.
func (p *Parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.current
	if tok.Type != tt {
		return tok, p.error(types.ErrExpectedToken, fmt.Sprintf("expected %s but got %s", tt, describe(tok)))
	}
	p.advance()
	return tok, nil
}

// error creates a parser error positioned at the current token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	err := &types.Error{
		Code:    code,
		Message: message,
		Line:    p.current.Line,
		Column:  p.current.Column,
		Token:   p.current.Value,
	}
	if p.current.Type == TokenEOF && code != types.ErrEmptyProgram {
		err.Err = ErrIncomplete
	}
	return err
}

func (p *Parser) unexpected() error {
	return p.error(types.ErrUnexpectedToken, "unexpected token "+describe(p.current))
}

func describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent, TokenNumber, TokenExtended, TokenCommandKeyword:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	case TokenString:
		return fmt.Sprintf("string %q", t.Value)
	default:
		return fmt.Sprintf("%q", t.Type.String())
	}
}

func (p *Parser) node(nodeType types.NodeType, tok Token) *types.ASTNode {
	return p.arena.Alloc(nodeType, types.Position{Offset: tok.Offset, Line: tok.Line, Column: tok.Column})
}

// parseStatement parses one top-level or block-level statement.
func (p *Parser) parseStatement() (*types.ASTNode, error) {
	switch p.current.Type {
	case TokenLet:
		return p.parseLet()
	case TokenCompress:
		if p.isFunctionDef() {
			return p.parseFunctionDef()
		}
	case TokenIdent:
		if p.peek(1).Type == TokenAssign {
			return p.parseAssign()
		}
	}
	return p.parseFullExpression()
}

// parseFullExpression parses an expression with its optional
// `witnessed by "..."` and `@ phase` suffixes.
func (p *Parser) parseFullExpression() (*types.ASTNode, error) {
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	for {
		switch p.current.Type {
		case TokenWitnessed:
			tok := p.current
			witness, err := p.parseWitnessClause()
			if err != nil {
				return nil, err
			}
			n := p.node(types.NodeWitness, tok)
			n.LHS = expr
			n.StrValue = witness
			expr = n
		case TokenAt:
			tok := p.current
			p.advance()
			phase, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			n := p.node(types.NodePhaseGuard, tok)
			n.LHS = expr
			n.StrValue = phase.Value
			expr = n
		default:
			return expr, nil
		}
	}
}

// parseWitnessClause parses `witnessed by "<string>"`.
func (p *Parser) parseWitnessClause() (string, error) {
	if _, err := p.expect(TokenWitnessed); err != nil {
		return "", err
	}
	if _, err := p.expect(TokenBy); err != nil {
		return "", err
	}
	tok, err := p.expect(TokenString)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*types.ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrUnexpectedToken, "expression nested too deeply")
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
func (p *Parser) parsePrefix() (*types.ASTNode, error) {
	tok := p.current

	switch tok.Type {
	case TokenNumber:
		return p.parseNumber()
	case TokenString:
		p.advance()
		n := p.node(types.NodeString, tok)
		n.StrValue = tok.Value
		return n, nil
	case TokenExtended:
		p.advance()
		runes := []rune(tok.Value)
		n := p.node(types.NodeExtended, tok)
		n.StrValue = tok.Value
		n.Base = runes[0]
		n.Subscripts = runes[1:]
		return n, nil
	case TokenOrigin:
		p.advance()
		return p.node(types.NodeGenesis, tok), nil
	case TokenPoint:
		p.advance()
		return p.node(types.NodePoint, tok), nil
	case TokenTop, TokenBottom, TokenTopPi, TokenBottomPi:
		p.advance()
		n := p.node(types.NodeQuad, tok)
		n.StrValue = tok.Type.String()
		return n, nil
	case TokenIdent:
		p.advance()
		n := p.node(types.NodeIdentifier, tok)
		n.StrValue = tok.Value
		return n, nil
	case TokenAggregateOpen:
		return p.parseAggregate()
	case TokenUnifiedOpen:
		return p.parseUnified()
	case TokenTriangle, TokenSquare, TokenCircle, TokenDiamond:
		return p.parseShape()
	case TokenBracketOpen:
		return p.parseArray()
	case TokenBraceOpen:
		return p.parseBlock()
	case TokenParenOpen:
		p.advance()
		expr, err := p.parseFullExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenIf:
		return p.parseIf()
	case TokenMatch:
		return p.parseMatch()
	case TokenNot, TokenMinus:
		p.advance()
		operand, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		n := p.node(types.NodeUnary, tok)
		n.StrValue = tok.Type.String()
		n.LHS = operand
		return n, nil
	case TokenMirror:
		p.advance()
		operand, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		n := p.node(types.NodeMirror, tok)
		n.LHS = operand
		return n, nil
	case TokenCompress:
		// `compress x` outside a function definition compresses x.
		p.advance()
		operand, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		n := p.node(types.NodeCompress, tok)
		n.LHS = operand
		return n, nil
	case TokenCommandKeyword:
		p.advance()
		operand, err := p.parseExpression(precUnary)
		if err != nil {
			return nil, err
		}
		n := p.node(types.NodePipe, tok)
		n.StrValue = tok.Value
		n.LHS = operand
		return n, nil
	default:
		return nil, p.unexpected()
	}
}

// parseInfix parses an infix expression (led - left denotation).
func (p *Parser) parseInfix(left *types.ASTNode) (*types.ASTNode, error) {
	tok := p.current

	switch tok.Type {
	case TokenPipe:
		return p.parseCommand(left)
	case TokenExtend, TokenReduce:
		p.advance()
		sub, err := p.parseSubscript()
		if err != nil {
			return nil, err
		}
		nodeType := types.NodeExtend
		if tok.Type == TokenReduce {
			nodeType = types.NodeReduce
		}
		n := p.node(nodeType, tok)
		n.LHS = left
		n.Subscript = sub
		return n, nil
	case TokenSpiralUp, TokenSpiralDown:
		p.advance()
		depth := 1
		if p.current.Type == TokenNumber {
			d, err := p.parseDepth()
			if err != nil {
				return nil, err
			}
			depth = d
		}
		nodeType := types.NodeSpiralUp
		if tok.Type == TokenSpiralDown {
			nodeType = types.NodeSpiralDown
		}
		n := p.node(nodeType, tok)
		n.LHS = left
		n.Depth = depth
		return n, nil
	case TokenDot:
		p.advance()
		name, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		n := p.node(types.NodeMember, tok)
		n.LHS = left
		n.StrValue = name.Value
		return n, nil
	case TokenBracketOpen:
		p.advance()
		index, err := p.parseFullExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		n := p.node(types.NodeIndex, tok)
		n.LHS = left
		n.RHS = index
		return n, nil
	case TokenParenOpen:
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		n := p.node(types.NodeCall, tok)
		n.LHS = left
		n.Arguments = args
		return n, nil
	default:
		if _, ok := precedence[tok.Type]; !ok {
			return nil, p.unexpected()
		}
		return p.parseBinaryOp(left)
	}
}

// parseBinaryOp parses a left-associative binary operator.
func (p *Parser) parseBinaryOp(left *types.ASTNode) (*types.ASTNode, error) {
	tok := p.current
	p.advance()
	right, err := p.parseExpression(p.getPrecedence(tok.Type))
	if err != nil {
		return nil, err
	}
	n := p.node(types.NodeBinary, tok)
	n.StrValue = tok.Type.String()
	n.LHS = left
	n.RHS = right
	return n, nil
}

// parseNumber parses a number literal.
func (p *Parser) parseNumber() (*types.ASTNode, error) {
	tok := p.current
	f, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil && !isRangeError(err) {
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("invalid number %q", tok.Value))
	}
	p.advance()
	n := p.node(types.NodeNumber, tok)
	n.NumValue = f
	n.StrValue = tok.Value
	return n, nil
}

func isRangeError(err error) bool {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err == strconv.ErrRange
	}
	return false
}

// parseDepth parses a non-negative integer depth or level marker.
func (p *Parser) parseDepth() (int, error) {
	tok := p.current
	f, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, p.error(types.ErrUnexpectedToken, fmt.Sprintf("expected a non-negative integer but got %q", tok.Value))
	}
	p.advance()
	return int(f), nil
}

// parseSubscript parses the single subscript character after >> or <<.
// It may be written bare (x >> o) or quoted (x >> "o").
func (p *Parser) parseSubscript() (rune, error) {
	tok := p.current
	if tok.Type == TokenIdent || tok.Type == TokenString {
		if utf8.RuneCountInString(tok.Value) == 1 {
			r, _ := utf8.DecodeRuneInString(tok.Value)
			if IsSubscript(r) {
				p.advance()
				return r, nil
			}
		}
	}
	return 0, p.error(types.ErrInvalidSubscript, "expected a subscript character but got "+describe(tok))
}

// parseArguments parses a parenthesised, comma-separated expression list.
func (p *Parser) parseArguments() ([]*types.ASTNode, error) {
	if _, err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	return p.parseList(TokenParenClose)
}

// parseList parses comma-separated expressions up to and including the
// closing token.
func (p *Parser) parseList(closing TokenType) ([]*types.ASTNode, error) {
	var items []*types.ASTNode
	if p.current.Type == closing {
		p.advance()
		return items, nil
	}
	for {
		item, err := p.parseFullExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}
