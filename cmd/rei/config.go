package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gorei"
	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/ext"
	"github.com/sandrolain/gorei/pkg/ext/extwasm"
	"github.com/sandrolain/gorei/pkg/parser"
)

const configFile = ".reirc.yaml"

// Config is the on-disk CLI configuration.
//
//	hash: fnv
//	concurrency: false
//	max_depth: 2000
//	history: 50
//	extensions: true
//	color: false
//	keywords: [sum, hash]
//	wasm:
//	  - ./scale.wasm
type Config struct {
	Hash        string   `yaml:"hash"`
	Concurrency *bool    `yaml:"concurrency"`
	MaxDepth    int      `yaml:"max_depth"`
	History     *int     `yaml:"history"`
	Extensions  *bool    `yaml:"extensions"`
	Color       *bool    `yaml:"color"`
	Keywords    []string `yaml:"keywords"`
	Wasm        []string `yaml:"wasm"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configFile
	}
	return filepath.Join(home, configFile)
}

// LoadConfig reads path. A missing file yields the zero Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	// wasm paths are relative to the config file
	dir := filepath.Dir(path)
	for i, p := range cfg.Wasm {
		if !filepath.IsAbs(p) {
			cfg.Wasm[i] = filepath.Join(dir, p)
		}
	}
	return cfg, nil
}

// ColorEnabled reports the color setting, defaulting to on.
func (c Config) ColorEnabled() bool {
	return c.Color == nil || *c.Color
}

// SessionOptions turns the config into session options. The returned set
// holds the loaded wasm modules and must be closed by the caller.
func (c Config) SessionOptions(ctx context.Context, logger *slog.Logger, debug bool) ([]gorei.SessionOption, extwasm.Set, error) {
	evalOpts := []evaluator.EvalOption{evaluator.WithDebug(debug)}

	if c.Hash != "" {
		h, ok := evaluator.HasherByName(c.Hash)
		if !ok {
			return nil, nil, fmt.Errorf("unknown hash %q; use blake3 or fnv", c.Hash)
		}
		evalOpts = append(evalOpts, evaluator.WithHasher(h))
	}
	if c.Concurrency != nil {
		evalOpts = append(evalOpts, evaluator.WithConcurrency(*c.Concurrency))
	}
	if c.MaxDepth > 0 {
		evalOpts = append(evalOpts, evaluator.WithMaxDepth(c.MaxDepth))
	}
	if c.Extensions == nil || *c.Extensions {
		evalOpts = append(evalOpts, ext.WithAll())
	}

	set, err := extwasm.LoadFiles(ctx, c.Wasm...)
	if err != nil {
		return nil, nil, err
	}
	if len(set) > 0 {
		evalOpts = append(evalOpts, evaluator.WithCommands(set.Entries()...))
	}

	opts := []gorei.SessionOption{
		gorei.WithEvalOptions(evalOpts...),
		gorei.WithCaching(true),
		gorei.WithLogger(logger),
	}
	if c.History != nil {
		opts = append(opts, gorei.WithHistorySize(*c.History))
	}
	if len(c.Keywords) > 0 {
		opts = append(opts, gorei.WithParseOptions(parser.WithKeywords(c.Keywords...)))
	}
	return opts, set, nil
}
