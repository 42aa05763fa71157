// Package evaluator implements the Rei tree-walking interpreter.
//
// The evaluator receives parsed AST nodes from the parser and evaluates them
// against an [Environment]. It supports:
//   - The full Rei value model (aggregates, extended symbols, quad logic, ...)
//   - Closures capturing their defining Environment by reference
//   - Pipe dispatch through an injectable command registry
//   - The generation state machine
//   - Injectable content hash and clock for seal/verify and temporal tags
//
// # Example
//
//	ev := evaluator.New()
//	env := evaluator.NewRootEnvironment()
//	prog, _ := parser.Parse("let x = 5; x + 3")
//	v, err := ev.EvalProgram(ctx, prog, env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v) // 8
//
// # Concurrency
//
// Evaluation of one program is synchronous. The only place goroutines are
// used is the parallel command, whose branches never touch an Environment.
package evaluator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/edwingeng/deque"
	"github.com/jonboulle/clockwork"

	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// Evaluator evaluates Rei AST nodes.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	registry *functions.Registry

	auditMu sync.Mutex
	audit   deque.Deque
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Hasher computes seal content hashes. Defaults to Blake3Hasher.
	Hasher Hasher
	// Clock supplies timestamps for seal and temporal. Defaults to the real clock.
	Clock clockwork.Clock
	// Registry is the command table used by pipe dispatch.
	// Defaults to a fresh NewRegistry().
	Registry *functions.Registry
	// Commands are registered on top of Registry, replacing same-named entries.
	Commands []functions.Entry
	// Concurrency lets the parallel command run its branches on goroutines.
	Concurrency bool
	// MaxDepth limits function call depth.
	MaxDepth int
	// AuditLimit bounds the audit log; the oldest entries are dropped first.
	// Defaults to DefaultAuditLimit. A negative limit disables recording.
	AuditLimit int
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// defaultConcurrency controls the default value of EvalOptions.Concurrency for
// newly created Evaluators. It is true on all platforms except WebAssembly
// targets (js/wasm, wasip1), where it is set to false by init() in
// evaluator_wasm.go.
var defaultConcurrency = true

// DefaultAuditLimit is the audit log bound used when EvalOptions.AuditLimit
// is zero.
const DefaultAuditLimit = 1024

// New creates a new Evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Concurrency: defaultConcurrency,
		MaxDepth:    10000,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Hasher == nil {
		options.Hasher = Blake3Hasher
	}
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.AuditLimit == 0 {
		options.AuditLimit = DefaultAuditLimit
	}

	reg := options.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	if len(options.Commands) > 0 {
		reg = reg.Clone()
		for _, c := range options.Commands {
			reg.Override(c.Name, c.Handler)
		}
	}

	return &Evaluator{
		opts:     options,
		logger:   options.Logger,
		registry: reg,
		audit:    deque.NewDeque(),
	}
}

// Registry returns the command registry used for pipe dispatch.
func (e *Evaluator) Registry() *functions.Registry {
	return e.registry
}

// Options returns a copy of the evaluator configuration.
func (e *Evaluator) Options() EvalOptions {
	return e.opts
}

// Eval evaluates a single node in env. A nil env evaluates in a fresh root
// environment.
//
// ctx is handed to command handlers through [functions.Invocation]; the
// evaluator itself never polls it.
func (e *Evaluator) Eval(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	if node == nil {
		return types.VoidValue, nil
	}
	if env == nil {
		env = NewRootEnvironment()
	}
	return e.evalNode(ctx, node, env)
}

// EvalProgram evaluates top-level statements in order and returns the value
// of the last one. An empty program evaluates to Void. The first error
// aborts the whole unit.
func (e *Evaluator) EvalProgram(ctx context.Context, prog *types.Program, env *Environment) (types.Value, error) {
	if env == nil {
		env = NewRootEnvironment()
	}
	var result types.Value = types.VoidValue
	if prog == nil {
		return result, nil
	}
	for _, node := range prog.Nodes() {
		v, err := e.evalNode(ctx, node, env)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

// Audit returns a copy of the most recent witness and phase-guard entries,
// oldest first.
func (e *Evaluator) Audit() []functions.AuditEntry {
	e.auditMu.Lock()
	defer e.auditMu.Unlock()
	n := e.audit.Len()
	out := make([]functions.AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		entry := e.audit.Front().(functions.AuditEntry)
		e.audit.PopFront()
		e.audit.PushBack(entry)
		out = append(out, entry)
	}
	return out
}

// ResetAudit drops all recorded audit entries.
func (e *Evaluator) ResetAudit() {
	e.auditMu.Lock()
	e.audit = deque.NewDeque()
	e.auditMu.Unlock()
}

func (e *Evaluator) record(entry functions.AuditEntry) {
	if e.opts.Debug {
		e.logger.Debug("audit",
			"kind", entry.Kind,
			"binding", entry.Binding,
			"label", entry.Label,
			"line", entry.Line)
	}
	if e.opts.AuditLimit < 0 {
		return
	}
	e.auditMu.Lock()
	e.audit.PushBack(entry)
	for e.audit.Len() > e.opts.AuditLimit {
		e.audit.PopFront()
	}
	e.auditMu.Unlock()
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithHasher sets the content hash used by seal and verify.
func WithHasher(h Hasher) EvalOption {
	return func(opts *EvalOptions) {
		opts.Hasher = h
	}
}

// WithClock sets the time source used by seal and temporal.
//
//	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
//	ev := evaluator.New(evaluator.WithClock(clock))
func WithClock(c clockwork.Clock) EvalOption {
	return func(opts *EvalOptions) {
		opts.Clock = c
	}
}

// WithRegistry replaces the command registry.
func WithRegistry(r *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Registry = r
	}
}

// WithCommand registers a single command, replacing any built-in of the
// same name.
func WithCommand(name string, h functions.Handler) EvalOption {
	return func(opts *EvalOptions) {
		opts.Commands = append(opts.Commands, functions.Entry{Name: name, Handler: h})
	}
}

// WithCommands registers a batch of commands, typically a plugin pack.
func WithCommands(entries ...functions.Entry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Commands = append(opts.Commands, entries...)
	}
}

// WithConcurrency enables or disables concurrent parallel branches.
func WithConcurrency(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Concurrency = enabled
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum function call depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithAuditLimit bounds the number of audit entries kept. A negative limit
// disables recording.
func WithAuditLimit(n int) EvalOption {
	return func(opts *EvalOptions) {
		opts.AuditLimit = n
	}
}
