package repl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/replbox/replbox/replclient"
)

// fakeTransport implements replclient.Transport for testing
type fakeTransport struct {
	openErr error
	handle  *fakeHandle
	opened  []string
}

func (f *fakeTransport) Open(_ context.Context, machineName string) (replclient.Handle, error) {
	f.opened = append(f.opened, machineName)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.handle, nil
}

func (f *fakeTransport) CreateMachine(_ context.Context) (string, error) {
	return "", errors.New("not supported in this fake")
}

// fakeHandle implements replclient.Handle for testing
type fakeHandle struct {
	execErr   error
	execution *replclient.Execution
	closed    bool
}

func (f *fakeHandle) Exec(_ context.Context, _ string) (*replclient.Execution, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.execution, nil
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

// scriptedExecution returns an execution that already ran to completion
func scriptedExecution(chunks []string, result replclient.Result) *replclient.Execution {
	ex := replclient.NewExecution(len(chunks) + 1)
	for _, data := range chunks {
		ex.Emit(replclient.OutputChunk{Data: data})
	}
	ex.Finish(result, nil)
	return ex
}

func strPtr(s string) *string {
	return &s
}

func newExecutor(t *testing.T, transport replclient.Transport) *StreamExecutor {
	t.Helper()
	return NewStreamExecutor(zaptest.NewLogger(t), transport)
}

func TestExecuteValue(t *testing.T) {
	handle := &fakeHandle{
		execution: scriptedExecution(nil, replclient.Result{ValueSet: true, Value: strPtr("2")}),
	}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "1+1", "r1")

	assert.Equal(t, "", resp.Output)
	assert.Equal(t, "2", resp.Result)
	assert.Equal(t, "r1", resp.ReplID)
	assert.Empty(t, resp.Error)
	assert.Empty(t, resp.Image)
	assert.True(t, handle.closed)
}

func TestExecuteNoValue(t *testing.T) {
	handle := &fakeHandle{
		execution: scriptedExecution([]string{"hi"}, replclient.Result{ValueSet: true}),
	}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "print('hi')", "r1")

	assert.Equal(t, "hi", resp.Output)
	assert.Equal(t, "the code did not return a value", resp.Result)
	assert.Equal(t, "r1", resp.ReplID)
	assert.Empty(t, resp.Error)
	assert.True(t, handle.closed)
}

func TestExecuteRemoteError(t *testing.T) {
	handle := &fakeHandle{
		execution: scriptedExecution([]string{"dividing"}, replclient.Result{Error: "ZeroDivisionError"}),
	}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "1/0", "r1")

	assert.Equal(t, "dividing", resp.Output)
	assert.Equal(t, "", resp.Result)
	assert.Equal(t, "Error: ZeroDivisionError", resp.Error)
	assert.Equal(t, "r1", resp.ReplID)
	assert.True(t, handle.closed)
}

func TestExecuteUnrecognizedResultShape(t *testing.T) {
	handle := &fakeHandle{
		execution: scriptedExecution(nil, replclient.Result{}),
	}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "pass", "r1")

	assert.Equal(t, "no result or error returned", resp.Result)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "r1", resp.ReplID)
}

func TestExecuteOutputOrderPreserved(t *testing.T) {
	handle := &fakeHandle{
		execution: scriptedExecution([]string{"a", "b", "c"}, replclient.Result{ValueSet: true}),
	}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "print_lines()", "r1")

	assert.Equal(t, "a\nb\nc", resp.Output)
}

func TestExecuteImagePresentInEveryBranch(t *testing.T) {
	png := map[string]string{"png": "aW1hZ2VkYXRh"}

	cases := []struct {
		name   string
		result replclient.Result
	}{
		{"Value", replclient.Result{ValueSet: true, Value: strPtr("fig"), Data: png}},
		{"NoValue", replclient.Result{ValueSet: true, Data: png}},
		{"Error", replclient.Result{Error: "RuntimeError", Data: png}},
		{"Unrecognized", replclient.Result{Data: png}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handle := &fakeHandle{execution: scriptedExecution(nil, tc.result)}
			executor := newExecutor(t, &fakeTransport{handle: handle})

			resp := executor.Execute(context.Background(), "plot()", "r1")

			assert.Equal(t, "aW1hZ2VkYXRh", resp.Image)
		})
	}
}

func TestExecuteOpenFailure(t *testing.T) {
	transport := &fakeTransport{openErr: errors.New("connection refused")}
	executor := newExecutor(t, transport)

	resp := executor.Execute(context.Background(), "1+1", "r1")

	require.NotEmpty(t, resp.Error)
	assert.Contains(t, resp.Error, "failed to execute code")
	assert.Contains(t, resp.Error, "connection refused")
	assert.Equal(t, "", resp.Output)
	assert.Equal(t, "", resp.Result)
	assert.Equal(t, "r1", resp.ReplID)
	assert.Equal(t, []string{"r1"}, transport.opened)
}

func TestExecuteExecFailureReleasesHandle(t *testing.T) {
	handle := &fakeHandle{execErr: errors.New("write: broken pipe")}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "1+1", "r1")

	assert.Contains(t, resp.Error, "failed to execute code")
	assert.True(t, handle.closed)
}

func TestExecuteConnectionDropDiscardsOutput(t *testing.T) {
	// Chunks arrived before the connection dropped; the failure response
	// carries none of them
	ex := replclient.NewExecution(4)
	ex.Emit(replclient.OutputChunk{Data: "partial"})
	ex.Finish(replclient.Result{}, errors.New("repl connection dropped"))

	handle := &fakeHandle{execution: ex}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	resp := executor.Execute(context.Background(), "long_running()", "r1")

	assert.Contains(t, resp.Error, "repl connection dropped")
	assert.Equal(t, "", resp.Output)
	assert.Equal(t, "", resp.Result)
	assert.True(t, handle.closed)
}

func TestExecuteCancellation(t *testing.T) {
	// The execution never settles; a canceled caller must not hang
	handle := &fakeHandle{execution: replclient.NewExecution(1)}
	executor := newExecutor(t, &fakeTransport{handle: handle})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := executor.Execute(ctx, "while True: pass", "r1")

	require.NotEmpty(t, resp.Error)
	assert.Contains(t, resp.Error, context.Canceled.Error())
	assert.Equal(t, "r1", resp.ReplID)
	assert.True(t, handle.closed)
}
