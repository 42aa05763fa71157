package types

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types. The set is closed: the evaluator rejects any other value.
const (
	// Literals
	NodeNumber    NodeType = "number"
	NodeString    NodeType = "string"
	NodeExtended  NodeType = "extended"  // 0ooo, πx, e₁
	NodeAggregate NodeType = "aggregate" // 𝕄{c; n1, n2:w}
	NodeUnified   NodeType = "unified"   // 𝕌{ext, aggregate}
	NodePoint     NodeType = "point"     // ・
	NodeShape     NodeType = "shape"     // △{...} □{...} ○{...} ◇{...}
	NodeQuad      NodeType = "quad"      // ⊤ ⊥ ⊤π ⊥π
	NodeGenesis   NodeType = "genesis"   // 0₀

	// Expressions
	NodeIdentifier NodeType = "identifier"
	NodeBinary     NodeType = "binary"
	NodeUnary      NodeType = "unary"
	NodePipe       NodeType = "pipe"        // x |> name(args)
	NodeExtend     NodeType = "extend"      // x >> o
	NodeReduce     NodeType = "reduce"      // x << o
	NodeSpiralUp   NodeType = "spiral_up"   // x ⤊ 3
	NodeSpiralDown NodeType = "spiral_down" // x ⤋ 3
	NodeMirror     NodeType = "mirror"      // ◁x, x |> mirror
	NodeCompute    NodeType = "compute"     // x |> compute:mode
	NodeCompress   NodeType = "compress"    // compress x, x |> compress:mode
	NodeDomain     NodeType = "domain"      // x |> as:domain
	NodeWitness    NodeType = "witness"     // x witnessed by "w"
	NodePhaseGuard NodeType = "phase_guard" // x @ phase
	NodeSeal       NodeType = "seal"
	NodeVerify     NodeType = "verify"
	NodeForward    NodeType = "forward"
	NodeTemporal   NodeType = "temporal"
	NodeTimeless   NodeType = "timeless"
	NodeParallel   NodeType = "parallel" // x |> parallel(m1, m2)
	NodeCall       NodeType = "call"
	NodeMember     NodeType = "member"
	NodeIndex      NodeType = "index"
	NodeArray      NodeType = "array"
	NodeBlock      NodeType = "block"
	NodeIf         NodeType = "if"
	NodeMatch      NodeType = "match"

	// Statements
	NodeLet         NodeType = "let"
	NodeAssign      NodeType = "assign"
	NodeFunctionDef NodeType = "function_def"
)

// Position is a location in the source text. Line and Column are 1-based;
// Column counts runes, not bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Nodes are built once by the parser and never mutated afterwards, so a
// parsed Program may be evaluated any number of times.
type ASTNode struct {
	Type     NodeType
	StrValue string  // identifier, operator, command name, mode, domain, string literal
	NumValue float64 // number literals
	Position Position

	// Relations
	LHS         *ASTNode   // operand, callee, condition, subject
	RHS         *ASTNode   // right operand, else branch, default arm
	Arguments   []*ASTNode // call/command arguments, neighbors, points, match patterns
	Weights     []*ASTNode // aggregate neighbor weights; nil entry means weight 1
	Expressions []*ASTNode // block statements, array elements, match bodies

	// Attributes
	Base       rune     // extended literal base
	Subscripts []rune   // extended literal subscripts
	Subscript  rune     // extend/reduce subscript character
	Depth      int      // spiral depth, compression level
	Params     []string // function parameters, parallel mode labels
	Mutable    bool
	TypeName   string // let type annotation
	PhaseGuard string // let phase guard
	Witness    string // let witness
	Mode       string // `:mode` of a generic pipe command
}

// NewASTNode creates a new AST node of the specified type.
// Prefer NodeArena.Alloc when parsing to reduce per-node heap allocations.
func NewASTNode(nodeType NodeType, pos Position) *ASTNode {
	return &ASTNode{
		Type:     nodeType,
		Position: pos,
	}
}

// arenaChunkSize is the number of ASTNode values pre-allocated per arena chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for ASTNode values.
//
// The arena MUST stay alive as long as any pointer returned by Alloc is
// reachable. Attaching it to the [Program] achieves this.
//
// NodeArena is NOT thread-safe. Each parser owns its own arena.
type NodeArena struct {
	chunks [][]ASTNode
	pos    int
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]ASTNode{make([]ASTNode, arenaChunkSize)},
	}
}

// Alloc returns a pointer to a zero-valued ASTNode inside the arena,
// with Type and Position set.
func (a *NodeArena) Alloc(nodeType NodeType, pos Position) *ASTNode {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]ASTNode, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Type = nodeType
	n.Position = pos
	return n
}

// String returns a string representation of the node type.
func (n *ASTNode) String() string {
	return string(n.Type)
}
