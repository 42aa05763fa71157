// Command rei evaluates Rei programs.
//
//	rei [-v] [-c config] [-w module.wasm]... [-e source] [file...]
//
// With no files and no -e, rei reads a program from standard input, or
// starts an interactive session when standard input is a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"

	"github.com/sandrolain/gorei"
	"github.com/sandrolain/gorei/pkg/types"
)

const usage = `usage: rei [options] [file...]

options:
  -c FILE  configuration file (default ~/.reirc.yaml)
  -e SRC   evaluate SRC and print the result
  -w FILE  load a WebAssembly module as a command (repeatable)
  -v       verbose logging on stderr
  -h       show this help
`

var (
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, optind, err := getopt.Getopts(args, "c:e:w:vh")
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return 2
	}

	var (
		configPath = defaultConfigPath()
		exprs      []string
		wasm       []string
		verbose    bool
	)
	for _, opt := range opts {
		switch opt.Option {
		case 'c':
			configPath = opt.Value
		case 'e':
			exprs = append(exprs, opt.Value)
		case 'w':
			wasm = append(wasm, opt.Value)
		case 'v':
			verbose = true
		case 'h':
			fmt.Fprint(stdout, usage)
			return 0
		}
	}
	files := args[optind:]

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}
	cfg.Wasm = append(cfg.Wasm, wasm...)
	if !cfg.ColorEnabled() {
		color.NoColor = true
	}

	ctx := context.Background()
	sessOpts, modules, err := cfg.SessionOptions(ctx, logger, verbose)
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return 1
	}
	defer func() { _ = modules.Close(ctx) }()

	sess := gorei.NewSession(sessOpts...)
	logger.Debug("session started", "session", sess.ID(), "wasm", len(modules))

	switch {
	case len(exprs) > 0 || len(files) > 0:
		for _, src := range exprs {
			if !evalAndPrint(ctx, sess, src, stdout, stderr) {
				return 1
			}
		}
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(stderr, red(err.Error()))
				return 1
			}
			if !evalAndPrint(ctx, sess, string(data), stdout, stderr) {
				return 1
			}
		}
		return 0
	case isTerminal(stdin):
		return repl(ctx, sess, cfg, stdout, stderr)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, red(err.Error()))
			return 1
		}
		if !evalAndPrint(ctx, sess, string(data), stdout, stderr) {
			return 1
		}
		return 0
	}
}

func evalAndPrint(ctx context.Context, sess *gorei.Session, src string, stdout, stderr io.Writer) bool {
	v, err := sess.Eval(ctx, src)
	if err != nil {
		fmt.Fprintln(stderr, red(err.Error()))
		return false
	}
	if _, ok := v.(types.Void); !ok {
		fmt.Fprintln(stdout, cyan(v.String()))
	}
	return true
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
