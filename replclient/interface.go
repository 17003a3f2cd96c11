// Package replclient provides the client for the remote REPL machine service.
//
// The replclient package implements the transport layer between the server
// and the remote service that hosts persistent Python REPL machines. It
// defines the Transport and Handle interfaces consumed by the execution
// adapter and provides a WebSocket-backed implementation.
package replclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// OutputChunk is one element of the ordered output stream produced while
// remote code runs
type OutputChunk struct {
	Data string `json:"data"`
}

// ResultKind classifies a remote execution result
type ResultKind int

// Result classification constants
const (
	KindUnknown ResultKind = iota // remote response had neither value nor error
	KindValue                     // code evaluated to a string value
	KindNoValue                   // code executed but produced no value
	KindError                     // code raised or failed to execute
)

// Result is the single value the remote service resolves after the output
// stream completes. Exactly one of Value/Error is meaningful; Data is an
// orthogonal artifact map and may accompany either.
type Result struct {
	Value    *string
	ValueSet bool
	Error    string
	Data     map[string]string
}

// Kind returns the classification of the result. Kind distinguishes a value
// that is JSON null (the code returned nothing) from a missing value key
// (a malformed remote response).
func (r Result) Kind() ResultKind {
	switch {
	case r.Error != "":
		return KindError
	case r.ValueSet && r.Value != nil:
		return KindValue
	case r.ValueSet:
		return KindNoValue
	default:
		return KindUnknown
	}
}

// UnmarshalJSON decodes a wire result, tracking whether the value key was
// present so null and absent stay distinguishable.
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		Value json.RawMessage   `json:"value"`
		Error string            `json:"error"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	r.Error = raw.Error
	r.Data = raw.Data
	r.Value = nil
	r.ValueSet = len(raw.Value) > 0

	if r.ValueSet && string(raw.Value) != "null" {
		var v string
		if err := json.Unmarshal(raw.Value, &v); err != nil {
			return err
		}
		r.Value = &v
	}

	return nil
}

// Transport opens handles to remote REPL machines and creates new ones.
// Connection and authentication details are entirely the transport's concern.
type Transport interface {
	Open(ctx context.Context, machineName string) (Handle, error)
	CreateMachine(ctx context.Context) (string, error)
}

// Handle is an exclusively-owned connection to one REPL machine. It must be
// closed on every exit path by its owner.
type Handle interface {
	Exec(ctx context.Context, code string) (*Execution, error)
	Close() error
}

// ErrHandleClosed is the settled result of an execution abandoned because
// its handle was closed mid-stream.
var ErrHandleClosed = errors.New("handle closed")

// Execution is a single remote run: an ordered stream of output chunks plus
// a one-shot result that settles once the stream completes.
//
// The producer side (Emit, Finish) must be driven from a single goroutine.
// Abort is safe from any goroutine.
type Execution struct {
	output chan OutputChunk
	done   chan struct{}
	result Result
	err    error

	finishOnce sync.Once
	abortOnce  sync.Once
	abort      chan struct{}
	abortErr   error
}

// NewExecution returns an execution whose stream and result are fed by the
// caller. The buffer size bounds how far the producer can run ahead of the
// consumer.
func NewExecution(buffer int) *Execution {
	return &Execution{
		output: make(chan OutputChunk, buffer),
		done:   make(chan struct{}),
		abort:  make(chan struct{}),
	}
}

// Output returns the ordered output stream. The channel is closed when the
// execution finishes; the stream is consumed exactly once.
func (e *Execution) Output() <-chan OutputChunk {
	return e.output
}

// Wait blocks until the result settles or the context is canceled. The
// result settles strictly before the output channel closes, so draining the
// stream first never races Wait.
func (e *Execution) Wait(ctx context.Context) (Result, error) {
	select {
	case <-e.done:
		return e.result, e.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Emit appends one chunk to the stream. It returns false once the execution
// has been aborted, signaling the producer to stop.
func (e *Execution) Emit(c OutputChunk) bool {
	select {
	case <-e.abort:
		return false
	default:
	}

	select {
	case e.output <- c:
		return true
	case <-e.abort:
		return false
	}
}

// Finish settles the result and closes the output stream. Only the first
// call has any effect.
func (e *Execution) Finish(result Result, err error) {
	e.finishOnce.Do(func() {
		e.result = result
		e.err = err
		close(e.done)
		close(e.output)
	})
}

// Abort signals the producer to stop and records the reason. The producer
// observes the abort through Emit and settles the execution with Finish.
func (e *Execution) Abort(err error) {
	e.abortOnce.Do(func() {
		e.abortErr = err
		close(e.abort)
	})
}

// abortReason returns the error recorded by Abort, or ErrHandleClosed when
// aborted without one.
func (e *Execution) abortReason() error {
	if e.abortErr != nil {
		return e.abortErr
	}
	return ErrHandleClosed
}
