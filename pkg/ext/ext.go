// Package ext provides optional command packs for Rei beyond the built-in
// command set.
//
// The commands live in sub-packages grouped by category:
//   - extnumeric  – log, sign, trunc, clamp, variance, stddev, percentile, mode, sum
//   - extcrypto   – hash, hmac, uuid
//   - extdatetime – since, age, stamp
//   - extwasm     – commands backed by WebAssembly modules
//
// # Integration – all packs at once
//
//	import "github.com/sandrolain/gorei/pkg/ext"
//
//	v, err := gorei.Eval(src, gorei.WithEvalOptions(ext.WithAll()))
//
// # Integration – by category
//
//	v, err := gorei.Eval(src, gorei.WithEvalOptions(
//	    ext.WithNumeric(),
//	    ext.WithCrypto(),
//	))
//
// # Integration – single command from a sub-package
//
//	import "github.com/sandrolain/gorei/pkg/ext/extnumeric"
//
//	v, err := gorei.Eval(src, gorei.WithEvalOptions(
//	    evaluator.WithCommands(extnumeric.Stddev()),
//	))
package ext

import (
	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/ext/extcrypto"
	"github.com/sandrolain/gorei/pkg/ext/extdatetime"
	"github.com/sandrolain/gorei/pkg/ext/extnumeric"
	"github.com/sandrolain/gorei/pkg/functions"
)

// All returns every static extension command. WebAssembly commands are
// loaded separately through extwasm.
func All() []functions.Entry {
	var all []functions.Entry
	all = append(all, extnumeric.All()...)
	all = append(all, extcrypto.All()...)
	all = append(all, extdatetime.All()...)
	return all
}

// WithAll returns an EvalOption that registers all extension commands.
func WithAll() evaluator.EvalOption {
	return evaluator.WithCommands(All()...)
}

// WithNumeric returns an EvalOption for the numeric commands.
func WithNumeric() evaluator.EvalOption {
	return evaluator.WithCommands(extnumeric.All()...)
}

// WithCrypto returns an EvalOption for the hashing commands.
func WithCrypto() evaluator.EvalOption {
	return evaluator.WithCommands(extcrypto.All()...)
}

// WithDateTime returns an EvalOption for the date/time commands.
func WithDateTime() evaluator.EvalOption {
	return evaluator.WithCommands(extdatetime.All()...)
}
