package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"

	"github.com/sandrolain/gorei"
	"github.com/sandrolain/gorei/pkg/parser"
)

const (
	historyFile = ".rei_history"
	promptMain  = "rei> "
	promptCont  = "...  "
)

const replHelp = `:quit      leave the session
:reset     start over with an empty environment
:env       list bindings
:audit     list witness and phase-guard records
:history   list evaluated inputs
:commands  list registered commands
:help      show this text
`

func repl(ctx context.Context, sess *gorei.Session, cfg Config, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "rei %s, session %s. Type :help for commands.\n", gorei.Version(), sess.ID())

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer(sess))

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		src, ok := readInput(ln, sess)
		if !ok {
			fmt.Fprintln(stdout)
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return 0
			case ":reset":
				sess = sess.Fresh()
				ln.SetCompleter(completer(sess))
				fmt.Fprintln(stdout, faint("environment cleared"))
			case ":env":
				printEnv(sess, stdout)
			case ":audit":
				for _, a := range sess.Evaluator().Audit() {
					fmt.Fprintf(stdout, "%s  %s %s  %s\n", faint(fmt.Sprintf("%d", a.Line)), a.Kind, a.Label, cyan(a.Value.String()))
				}
			case ":history":
				for i, h := range sess.History() {
					fmt.Fprintf(stdout, "%s  %s  %s\n", faint(humanize.Ordinal(i+1)), h.Source, cyan(h.Value.String()))
				}
			case ":commands":
				fmt.Fprintln(stdout, strings.Join(sess.Evaluator().Registry().Names(), " "))
			case ":help":
				fmt.Fprint(stdout, replHelp)
			default:
				fmt.Fprintln(stdout, "unknown command. Type :help for a list.")
			}
			continue
		}

		evalAndPrint(ctx, sess, src, stdout, stderr)
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}

// readInput keeps prompting while the accumulated source fails to parse only
// because it ended early.
func readInput(ln *liner.State, sess *gorei.Session) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if needsMore(sess, src) && strings.TrimSpace(line) != "" {
			continue
		}
		return src, true
	}
}

// needsMore reports whether src failed to parse only because it ended early,
// using the session's parser options.
func needsMore(sess *gorei.Session, src string) bool {
	_, err := sess.Parse(src)
	return err != nil && parser.IsIncomplete(err)
}

func printEnv(sess *gorei.Session, w io.Writer) {
	env := sess.Env()
	for _, name := range env.Names() {
		v, err := env.Get(name)
		if err != nil {
			continue
		}
		kw := "let"
		if env.IsMutable(name) {
			kw = "let mut"
		}
		fmt.Fprintf(w, "%s %s = %s\n", faint(kw), name, cyan(v.String()))
	}
}

func completer(sess *gorei.Session) liner.Completer {
	return func(line string) []string {
		i := strings.LastIndexAny(line, " |(,;") + 1
		prefix, word := line[:i], line[i:]
		if word == "" {
			return nil
		}
		candidates := append(sess.Env().Names(), sess.Evaluator().Registry().Names()...)
		sort.Strings(candidates)
		var out []string
		for _, c := range candidates {
			if strings.HasPrefix(c, word) {
				out = append(out, prefix+c)
			}
		}
		return out
	}
}
