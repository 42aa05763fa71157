// Package types defines the core type system for GoRei.
//
// This package contains type definitions for:
//   - Program: a parsed Rei source unit
//   - ASTNode: Abstract Syntax Tree nodes
//   - Value: the tagged runtime value union
//   - Quad: the four-valued truth lattice
//   - Error types: structured errors with codes
package types

// Program represents a parsed Rei source unit: an ordered sequence of
// top-level statements.
//
// A Program can be evaluated multiple times by passing it to
// [evaluator.Evaluator.EvalProgram]. It is never mutated after parsing and is
// safe for concurrent use by multiple goroutines.
type Program struct {
	nodes  []*ASTNode
	source string
	arena  *NodeArena
}

// NewProgram creates a new Program from top-level nodes.
func NewProgram(nodes []*ASTNode, source string, arena *NodeArena) *Program {
	return &Program{
		nodes:  nodes,
		source: source,
		arena:  arena,
	}
}

// Nodes returns the top-level statements in source order.
func (p *Program) Nodes() []*ASTNode {
	return p.nodes
}

// Source returns the original source code of the program.
func (p *Program) Source() string {
	return p.source
}

// Len returns the number of top-level statements.
func (p *Program) Len() int {
	return len(p.nodes)
}

// String returns the source of the program.
func (p *Program) String() string {
	return p.source
}
