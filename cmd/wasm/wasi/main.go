//go:build wasip1

// Command gorei-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "source": "<rei program>", "hash": "blake3" | "fnv" }
//	stdout: { "result": <plain value>, "display": "<rendered>" }   on success
//	        { "error":  "<message>" }                               on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o gorei.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"source":"𝕄{5; 1, 2, 3} |> compute:weighted"}' | wasmtime gorei.wasm
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sandrolain/gorei"
	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/types"
)

type request struct {
	Source string `json:"source"`
	Hash   string `json:"hash,omitempty"`
}

type response struct {
	Result  any    `json:"result,omitempty"`
	Display string `json:"display,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	evalOpts := []evaluator.EvalOption{evaluator.WithConcurrency(false)}
	if req.Hash != "" {
		h, ok := evaluator.HasherByName(req.Hash)
		if !ok {
			writeResponse(response{Error: "unknown hash " + req.Hash}, 1)
		}
		evalOpts = append(evalOpts, evaluator.WithHasher(h))
	}

	v, err := gorei.EvalWithContext(context.Background(), req.Source,
		gorei.WithEvalOptions(evalOpts...),
	)
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}

	writeResponse(response{Result: types.Plain(v), Display: v.String()}, 0)
}
