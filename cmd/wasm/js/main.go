//go:build js && wasm

// Command gorei-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `gorei` object with the following API:
//
//	gorei.version()          → string
//	gorei.eval(source)       → resultJSON  (throws on error)
//	gorei.session()          → { eval(source) → resultJSON, reset() }
//
// A session keeps its bindings across eval calls:
//
//	const s = gorei.session()
//	s.eval('let x = 5')
//	JSON.parse(s.eval('x + 3')) // 8
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o gorei.wasm ./cmd/wasm/js/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/gorei"
	"github.com/sandrolain/gorei/pkg/types"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

func encode(prefix string, v types.Value) string {
	out, err := json.Marshal(types.Plain(v))
	if err != nil {
		jsThrow(fmt.Sprintf("%s: marshal result: %v", prefix, err))
	}
	return string(out)
}

// jsEval implements gorei.eval(source) → resultJSON.
func jsEval(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("gorei.eval requires 1 argument: source (string)")
	}
	v, err := gorei.Eval(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("gorei.eval: %v", err))
	}
	return encode("gorei.eval", v)
}

// jsSession implements gorei.session() → { eval(source), reset() }.
func jsSession(_ js.Value, _ []js.Value) interface{} {
	sess := gorei.NewSession()

	evalFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) interface{} {
		if len(innerArgs) < 1 {
			jsThrow("session.eval requires 1 argument: source (string)")
		}
		v, err := sess.Eval(context.Background(), innerArgs[0].String())
		if err != nil {
			jsThrow(fmt.Sprintf("session.eval: %v", err))
		}
		return encode("session.eval", v)
	})
	resetFn := js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
		sess = sess.Fresh()
		return nil
	})

	return js.ValueOf(map[string]interface{}{"eval": evalFn, "reset": resetFn})
}

func main() {
	api := map[string]interface{}{
		"eval":    js.FuncOf(jsEval),
		"session": js.FuncOf(jsSession),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return gorei.Version()
		}),
	}
	js.Global().Set("gorei", js.ValueOf(api))

	// Block forever — the JS event loop owns execution from here.
	select {}
}
