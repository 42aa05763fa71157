package parser

import (
	"github.com/sandrolain/gorei/pkg/types"
)

// reserved pipe sub-forms that map to dedicated node types
var pipeForms = map[string]types.NodeType{
	"seal":     types.NodeSeal,
	"verify":   types.NodeVerify,
	"forward":  types.NodeForward,
	"mirror":   types.NodeMirror,
	"timeless": types.NodeTimeless,
}

var shapeTags = map[TokenType]string{
	TokenTriangle: "triangle",
	TokenSquare:   "square",
	TokenCircle:   "circle",
	TokenDiamond:  "diamond",
}

// parseLet parses `let [mut] name [: Type [@ phase]] = expr [witnessed by "w"]`.
func (p *Parser) parseLet() (*types.ASTNode, error) {
	n := p.node(types.NodeLet, p.current)
	p.advance()

	if p.current.Type == TokenMut {
		n.Mutable = true
		p.advance()
	}

	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	n.StrValue = name.Value

	if p.current.Type == TokenColon {
		p.advance()
		typ, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		n.TypeName = typ.Value
		if p.current.Type == TokenAt {
			p.advance()
			phase, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			n.PhaseGuard = phase.Value
		}
	}

	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}

	value, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenWitnessed {
		if n.Witness, err = p.parseWitnessClause(); err != nil {
			return nil, err
		}
	}
	if p.current.Type == TokenAt {
		tok := p.current
		p.advance()
		phase, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		guard := p.node(types.NodePhaseGuard, tok)
		guard.LHS = value
		guard.StrValue = phase.Value
		value = guard
	}
	n.LHS = value
	return n, nil
}

// isFunctionDef looks ahead from a `compress` token for the shape
//
//	compress {NUMBER} IDENT ( [IDENT {, IDENT}] ) =
//
// Anything else is a compress expression.
func (p *Parser) isFunctionDef() bool {
	i := 1
	for p.peek(i).Type == TokenNumber {
		i++
	}
	if p.peek(i).Type != TokenIdent || p.peek(i+1).Type != TokenParenOpen {
		return false
	}
	i += 2
	if p.peek(i).Type == TokenIdent {
		i++
		for p.peek(i).Type == TokenComma && p.peek(i+1).Type == TokenIdent {
			i += 2
		}
	}
	return p.peek(i).Type == TokenParenClose && p.peek(i+1).Type == TokenAssign
}

// parseFunctionDef parses `compress {level} name(params) = body`. The first
// level marker, if any, is kept in Depth.
func (p *Parser) parseFunctionDef() (*types.ASTNode, error) {
	n := p.node(types.NodeFunctionDef, p.current)
	p.advance()

	for first := true; p.current.Type == TokenNumber; first = false {
		level, err := p.parseDepth()
		if err != nil {
			return nil, err
		}
		if first {
			n.Depth = level
		}
	}

	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	n.StrValue = name.Value

	if _, err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	n.Params = []string{}
	for p.current.Type != TokenParenClose {
		param, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		n.Params = append(n.Params, param.Value)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}

	body, err := p.parseFullExpression()
	if err != nil {
		return nil, err
	}
	n.LHS = body
	return n, nil
}

// parseAssign parses `name = expr`.
func (p *Parser) parseAssign() (*types.ASTNode, error) {
	name := p.current
	n := p.node(types.NodeAssign, name)
	n.StrValue = name.Value
	p.advance()
	p.advance() // =
	value, err := p.parseFullExpression()
	if err != nil {
		return nil, err
	}
	n.LHS = value
	return n, nil
}

// parseCommand parses the right-hand side of `|>`.
func (p *Parser) parseCommand(left *types.ASTNode) (*types.ASTNode, error) {
	p.advance() // |>
	tok := p.current

	if tok.Type == TokenCompress {
		p.advance()
		n := p.node(types.NodeCompress, tok)
		n.LHS = left
		if p.current.Type == TokenColon {
			p.advance()
			mode, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			n.StrValue = mode.Value
		}
		return n, nil
	}

	if tok.Type != TokenIdent && tok.Type != TokenCommandKeyword {
		return nil, p.error(types.ErrExpectedToken, "expected a command name after |> but got "+describe(tok))
	}
	p.advance()

	switch name := tok.Value; {
	case (name == "compute" || name == "as") && p.current.Type == TokenColon:
		p.advance()
		label, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		nodeType := types.NodeCompute
		if name == "as" {
			nodeType = types.NodeDomain
		}
		n := p.node(nodeType, tok)
		n.LHS = left
		n.StrValue = label.Value
		return n, nil

	case name == "parallel" && p.current.Type == TokenParenOpen:
		p.advance()
		n := p.node(types.NodeParallel, tok)
		n.LHS = left
		for {
			mode, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			n.Params = append(n.Params, mode.Value)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return n, nil

	case name == "temporal":
		n := p.node(types.NodeTemporal, tok)
		n.LHS = left
		if p.current.Type == TokenParenOpen {
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			n.Arguments = args
		}
		return n, nil
	}

	if nodeType, ok := pipeForms[tok.Value]; ok && p.current.Type != TokenParenOpen && p.current.Type != TokenColon {
		n := p.node(nodeType, tok)
		n.LHS = left
		return n, nil
	}

	n := p.node(types.NodePipe, tok)
	n.StrValue = tok.Value
	n.LHS = left
	if p.current.Type == TokenColon {
		p.advance()
		mode, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		n.Mode = mode.Value
	}
	if p.current.Type == TokenParenOpen {
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		n.Arguments = args
	}
	return n, nil
}

// parseAggregate parses `𝕄{center; v1, v2:w2, ...}`.
func (p *Parser) parseAggregate() (*types.ASTNode, error) {
	n := p.node(types.NodeAggregate, p.current)
	p.advance()
	if _, err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}

	center, err := p.parseFullExpression()
	if err != nil {
		return nil, err
	}
	n.LHS = center

	if p.current.Type == TokenSemicolon {
		p.advance()
		for p.current.Type != TokenBraceClose {
			value, err := p.parseFullExpression()
			if err != nil {
				return nil, err
			}
			var weight *types.ASTNode
			if p.current.Type == TokenColon {
				p.advance()
				if weight, err = p.parseFullExpression(); err != nil {
					return nil, err
				}
			}
			n.Arguments = append(n.Arguments, value)
			n.Weights = append(n.Weights, weight)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	if _, err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return n, nil
}

// parseUnified parses `𝕌{ext, aggregate}`.
func (p *Parser) parseUnified() (*types.ASTNode, error) {
	n := p.node(types.NodeUnified, p.current)
	p.advance()
	if _, err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	ext, err := p.parseFullExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenComma); err != nil {
		return nil, err
	}
	multi, err := p.parseFullExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	n.LHS = ext
	n.RHS = multi
	return n, nil
}

// parseShape parses `△{p1, p2, p3}` and the other shape forms.
func (p *Parser) parseShape() (*types.ASTNode, error) {
	n := p.node(types.NodeShape, p.current)
	n.StrValue = shapeTags[p.current.Type]
	p.advance()
	if _, err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	points, err := p.parseList(TokenBraceClose)
	if err != nil {
		return nil, err
	}
	n.Arguments = points
	return n, nil
}

// parseArray parses `[e1, e2, ...]`.
func (p *Parser) parseArray() (*types.ASTNode, error) {
	n := p.node(types.NodeArray, p.current)
	p.advance()
	items, err := p.parseList(TokenBracketClose)
	if err != nil {
		return nil, err
	}
	n.Expressions = items
	return n, nil
}

// parseBlock parses `{ stmt; stmt ... }`.
func (p *Parser) parseBlock() (*types.ASTNode, error) {
	n := p.node(types.NodeBlock, p.current)
	if _, err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	for p.current.Type != TokenBraceClose {
		if p.current.Type == TokenSemicolon {
			p.advance()
			continue
		}
		if p.current.Type == TokenEOF {
			return nil, p.error(types.ErrExpectedToken, "expected } but got end of input")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n.Expressions = append(n.Expressions, stmt)
	}
	p.advance()
	return n, nil
}

// parseIf parses `if cond {..} [else {..} | else if ...]`.
func (p *Parser) parseIf() (*types.ASTNode, error) {
	n := p.node(types.NodeIf, p.current)
	p.advance()

	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n.LHS = cond
	n.Arguments = []*types.ASTNode{then}

	if p.current.Type == TokenElse {
		p.advance()
		var alt *types.ASTNode
		if p.current.Type == TokenIf {
			alt, err = p.parseIf()
		} else {
			alt, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
		n.RHS = alt
	}
	return n, nil
}

// parseMatch parses `match subject { pattern -> expr, _ -> expr }`.
// Patterns and bodies are kept in parallel slices; the `_` arm goes to RHS.
func (p *Parser) parseMatch() (*types.ASTNode, error) {
	n := p.node(types.NodeMatch, p.current)
	p.advance()

	subject, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	n.LHS = subject

	if _, err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	for p.current.Type != TokenBraceClose {
		wildcard := p.current.Type == TokenIdent && p.current.Value == "_"
		var pattern *types.ASTNode
		if wildcard {
			p.advance()
		} else if pattern, err = p.parseExpression(precLowest); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenArrow); err != nil {
			return nil, err
		}
		body, err := p.parseFullExpression()
		if err != nil {
			return nil, err
		}
		if wildcard {
			if n.RHS == nil {
				n.RHS = body
			}
		} else {
			n.Arguments = append(n.Arguments, pattern)
			n.Expressions = append(n.Expressions, body)
		}
		if p.current.Type != TokenComma && p.current.Type != TokenSemicolon {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return n, nil
}
