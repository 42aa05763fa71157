// Package parser implements the Rei lexer and parser.
//
// The parser is a hand-written recursive descent parser using precedence
// climbing for binary operators. It fails fast: the first unexpected token
// aborts the parse with a positioned error and no partial AST.
//
// # Architecture
//
// The parser consists of two main components:
//   - Lexer: Tokenizes the source into a flat token stream ending in TokenEOF
//   - Parser: Builds top-level AST nodes from the token stream
//
// # Example
//
//	prog, err := parser.Parse("let x = 5\nx + 3")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, node := range prog.Nodes() {
//	    fmt.Println(node.Type)
//	}
package parser

import (
	"errors"

	"github.com/sandrolain/gorei/pkg/types"
)

// ErrIncomplete is wrapped by parse errors raised at end of input, where more
// source could still complete the program.
var ErrIncomplete = errors.New("incomplete input")

// IsIncomplete reports whether err failed only because the input ended early.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncomplete)
}

// Tokenize converts source text into tokens. It never fails.
func Tokenize(src string, opts ...CompileOption) []Token {
	options := newCompileOptions(opts)
	return NewLexer(src).WithCommandKeywords(options.Keywords...).Tokenize()
}

// Parse tokenizes and parses a whole source unit.
//
// Example:
//
//	prog, err := parser.Parse(`compress double(n) = n * 2; double(21)`)
//	if err != nil {
//	    var perr *types.Error
//	    if errors.As(err, &perr) {
//	        fmt.Printf("parse error at %d:%d\n", perr.Line, perr.Column)
//	    }
//	    return
//	}
func Parse(src string, opts ...CompileOption) (*types.Program, error) {
	p := NewParser(Tokenize(src, opts...), src, opts...)
	return p.ParseProgram()
}

// ParseTokens parses an already tokenized source unit.
func ParseTokens(tokens []Token, opts ...CompileOption) (*types.Program, error) {
	p := NewParser(tokens, "", opts...)
	return p.ParseProgram()
}

// ParseExpression parses source consisting of exactly one expression.
func ParseExpression(src string, opts ...CompileOption) (*types.ASTNode, error) {
	p := NewParser(Tokenize(src, opts...), src, opts...)
	return p.ParseSingle()
}

// ParseExpressionTokens parses a token stream consisting of exactly one expression.
func ParseExpressionTokens(tokens []Token, opts ...CompileOption) (*types.ASTNode, error) {
	p := NewParser(tokens, "", opts...)
	return p.ParseSingle()
}

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits expression nesting to prevent stack overflow.
	MaxDepth int
	// Keywords are extra command keywords: `kw x` parses as `x |> kw`.
	Keywords []string
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}

// WithKeywords registers command keywords with the lexer.
func WithKeywords(names ...string) CompileOption {
	return func(opts *CompileOptions) {
		opts.Keywords = append(opts.Keywords, names...)
	}
}

func newCompileOptions(opts []CompileOption) CompileOptions {
	options := CompileOptions{
		MaxDepth: 256,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
