//go:build (js && wasm) || wasip1

package evaluator

// init sets WebAssembly-specific defaults for all Evaluators created in this
// process.
//
// On js/wasm the runtime is single-threaded and goroutines are multiplexed
// cooperatively, so the parallel command evaluates its branches in sequence.
// wasip1 gets the same default since the Go runtime has no WASI threads.
func init() {
	defaultConcurrency = false
}
