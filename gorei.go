// Package gorei provides a Go implementation of the Rei language: a small,
// symbol-rich DSL over dimensional aggregates, extended symbols, four-valued
// logic and a generation state machine.
//
// # Quick Start
//
//	// One-shot evaluation in a throwaway session
//	v, err := gorei.Eval(`𝕄{5; 1, 2, 3} |> compute:weighted`)
//
//	// A session keeps its root environment across calls
//	sess := gorei.NewSession()
//	sess.Eval(ctx, `let x = 5`)
//	v, _ := sess.Eval(ctx, `x + 3`) // 8
//
//	// With options
//	sess := gorei.NewSession(
//	    gorei.WithCaching(true),
//	    gorei.WithEvalOptions(evaluator.WithHasher(evaluator.FNVHasher)),
//	)
//
// There is no hidden global interpreter. A fresh session is a fresh root
// environment; discarding a session is the reset.
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/sandrolain/gorei/pkg/parser
//   - Evaluator: github.com/sandrolain/gorei/pkg/evaluator
//   - Functions: github.com/sandrolain/gorei/pkg/functions
//   - Types: github.com/sandrolain/gorei/pkg/types
package gorei

import (
	"context"
	"log/slog"
	"sync"

	"github.com/edwingeng/deque"
	"github.com/google/uuid"
	"github.com/tevino/abool/v2"

	"github.com/sandrolain/gorei/pkg/cache"
	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/parser"
	"github.com/sandrolain/gorei/pkg/types"
)

// Version returns the current version of GoRei.
func Version() string {
	return "v0.1.0-dev"
}

// HistoryEntry is one successful top-level evaluation.
type HistoryEntry struct {
	Source string
	Value  types.Value
}

// Session is an interpreter state: one evaluator and one root environment
// that persists across Eval calls.
//
// A Session may be shared between goroutines, but evaluations do not
// interleave: an Eval issued while another is running fails with
// types.ErrSessionBusy.
type Session struct {
	id      string
	opts    SessionOptions
	ev      *evaluator.Evaluator
	env     *evaluator.Environment
	busy    *abool.AtomicBool
	history deque.Deque
	histMu  sync.Mutex
	cache   *cache.Cache
	logger  *slog.Logger
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// EvalOptions are passed to evaluator.New.
	EvalOptions []evaluator.EvalOption
	// ParseOptions are passed to the parser on every Eval and Parse.
	ParseOptions []parser.CompileOption
	// Caching enables the parsed-program cache.
	Caching bool
	// CacheSize sets the cache capacity. Defaults to 256.
	CacheSize int
	// Cache is a shared program cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// HistorySize bounds the result history. 0 disables it.
	HistorySize int
	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*SessionOptions)

// NewSession creates a session with a fresh root environment.
func NewSession(opts ...SessionOption) *Session {
	options := SessionOptions{
		HistorySize: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}

	id := uuid.NewString()
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New(options.CacheSize)
	}

	evalOpts := append([]evaluator.EvalOption{evaluator.WithLogger(logger)}, options.EvalOptions...)

	return &Session{
		id:      id,
		opts:    options,
		ev:      evaluator.New(evalOpts...),
		env:     evaluator.NewRootEnvironment(),
		busy:    abool.NewBool(false),
		history: deque.NewDeque(),
		cache:   c,
		logger:  logger,
	}
}

// Fresh returns a new session with the same options, an empty root
// environment, and its own evaluator with an empty audit log and history.
// The receiver is left untouched.
func (s *Session) Fresh() *Session {
	opts := s.opts
	return NewSession(func(o *SessionOptions) { *o = opts })
}

// ID returns the session identifier attached to log records.
func (s *Session) ID() string {
	return s.id
}

// Env returns the root environment.
func (s *Session) Env() *evaluator.Environment {
	return s.env
}

// Evaluator returns the session evaluator.
func (s *Session) Evaluator() *evaluator.Evaluator {
	return s.ev
}

// Tokenize converts src into tokens. It never fails.
func (s *Session) Tokenize(src string) []parser.Token {
	return parser.Tokenize(src, s.opts.ParseOptions...)
}

// Parse parses src into a program, consulting the cache when enabled.
func (s *Session) Parse(src string) (*types.Program, error) {
	if s.cache == nil {
		return parser.Parse(src, s.opts.ParseOptions...)
	}
	return s.cache.GetOrParse(src, func() (*types.Program, error) {
		return parser.Parse(src, s.opts.ParseOptions...)
	})
}

// Eval parses and evaluates src in the session's root environment.
// Bindings made by src stay visible to later calls.
func (s *Session) Eval(ctx context.Context, src string) (types.Value, error) {
	if !s.busy.SetToIf(false, true) {
		return nil, types.NewError(types.ErrCodeSessionBusy, "session is already evaluating")
	}
	defer s.busy.UnSet()

	prog, err := s.Parse(src)
	if err != nil {
		s.logger.Debug("parse failed", "error", err)
		return nil, err
	}

	v, err := s.ev.EvalProgram(ctx, prog, s.env)
	if err != nil {
		s.logger.Debug("evaluation failed", "error", err)
		return nil, err
	}

	s.remember(src, v)
	return v, nil
}

func (s *Session) remember(src string, v types.Value) {
	if s.opts.HistorySize <= 0 {
		return
	}
	s.histMu.Lock()
	defer s.histMu.Unlock()
	s.history.PushBack(HistoryEntry{Source: src, Value: v})
	for s.history.Len() > s.opts.HistorySize {
		s.history.PopFront()
	}
}

// History returns the recorded evaluations, oldest first.
func (s *Session) History() []HistoryEntry {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	// rotate once through the deque to copy it out in order
	n := s.history.Len()
	out := make([]HistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		entry := s.history.Front().(HistoryEntry)
		s.history.PopFront()
		s.history.PushBack(entry)
		out = append(out, entry)
	}
	return out
}

// WithEvalOptions appends evaluator options.
func WithEvalOptions(opts ...evaluator.EvalOption) SessionOption {
	return func(o *SessionOptions) {
		o.EvalOptions = append(o.EvalOptions, opts...)
	}
}

// WithParseOptions appends parser options.
func WithParseOptions(opts ...parser.CompileOption) SessionOption {
	return func(o *SessionOptions) {
		o.ParseOptions = append(o.ParseOptions, opts...)
	}
}

// WithCaching enables or disables the parsed-program cache.
func WithCaching(enabled bool) SessionOption {
	return func(o *SessionOptions) {
		o.Caching = enabled
	}
}

// WithCacheSize sets the program cache capacity.
func WithCacheSize(size int) SessionOption {
	return func(o *SessionOptions) {
		o.CacheSize = size
	}
}

// WithCache shares a program cache between sessions.
func WithCache(c *cache.Cache) SessionOption {
	return func(o *SessionOptions) {
		o.Cache = c
	}
}

// WithHistorySize bounds the result history; 0 disables it.
func WithHistorySize(n int) SessionOption {
	return func(o *SessionOptions) {
		o.HistorySize = n
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(o *SessionOptions) {
		o.Logger = logger
	}
}

// Eval evaluates src in a throwaway session.
//
// Example:
//
//	v, err := gorei.Eval(`compress double(n) = n * 2; double(21)`)
func Eval(src string, opts ...SessionOption) (types.Value, error) {
	return NewSession(opts...).Eval(context.Background(), src)
}

// EvalWithContext is Eval with a caller-supplied context.
func EvalWithContext(ctx context.Context, src string, opts ...SessionOption) (types.Value, error) {
	return NewSession(opts...).Eval(ctx, src)
}

// Parse parses src without evaluating it.
func Parse(src string, opts ...parser.CompileOption) (*types.Program, error) {
	return parser.Parse(src, opts...)
}

// Tokenize converts src into tokens.
func Tokenize(src string, opts ...parser.CompileOption) []parser.Token {
	return parser.Tokenize(src, opts...)
}

// MustParse is like Parse but panics on error.
// It simplifies safe initialization of global variables.
func MustParse(src string) *types.Program {
	prog, err := Parse(src)
	if err != nil {
		panic("gorei: Parse(" + src + "): " + err.Error())
	}
	return prog
}
