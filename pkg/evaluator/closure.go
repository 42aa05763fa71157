package evaluator

import (
	"strings"

	"github.com/sandrolain/gorei/pkg/types"
)

// Closure is a function value. Env is the scope active at the definition
// site, shared by reference with every call.
type Closure struct {
	Name   string
	Params []string
	Body   *types.ASTNode
	Env    *Environment
	Level  int // compression level marker, 0 when absent
}

// Kind implements types.Value.
func (*Closure) Kind() types.ValueKind { return types.KindFunction }

func (c *Closure) String() string {
	return "fn " + c.Name + "(" + strings.Join(c.Params, ", ") + ")"
}

// Same reports identity; two closures are equal only if they are the same
// definition.
func (c *Closure) Same(v types.Value) bool {
	o, ok := v.(*Closure)
	return ok && o == c
}
