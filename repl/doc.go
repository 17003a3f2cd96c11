// Package repl provides the streaming execution adapter.
//
// The repl package turns one streamed remote execution into one normalized
// Response record. The adapter owns its transport handle for exactly the
// duration of a call and releases it on every exit path. All failure modes
// (connection loss, remote exceptions, cancellation, malformed remote
// responses) are captured into the Response; nothing escapes as an error.
//
// Usage:
//
//	executor := repl.NewStreamExecutor(logger, transport)
//	resp := executor.Execute(ctx, "1+1", machineName)
//	if resp.Error != "" {
//	    // the run failed; resp.Error says why
//	}
package repl
