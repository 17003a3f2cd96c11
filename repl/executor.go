// Package repl provides the streaming execution adapter.
//
// The repl package normalizes a streamed remote execution into a single
// response record. The StreamExecutor drives one remote run per call:
// open a handle, submit the code, drain the output stream in arrival
// order, await the result, and classify the outcome. It never returns an
// error; every failure lands in the response's Error field.
package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/replbox/replbox/replclient"
)

// Placeholder results for runs that settle without a value
const (
	noValueResult   = "the code did not return a value"
	noResultOrError = "no result or error returned"
)

// Response is the normalized outcome of one remote execution. Error is set
// if and only if the remote run failed or the transport did; ReplID always
// echoes the request unchanged.
type Response struct {
	Output string `json:"output"`
	Result string `json:"result"`
	ReplID string `json:"repl_id"`
	Error  string `json:"error,omitempty"`
	Image  string `json:"image,omitempty"`
}

// Executor defines the interface for running code on a remote REPL machine
type Executor interface {
	Execute(ctx context.Context, code, replID string) Response
}

// StreamExecutor implements Executor over a replclient.Transport
type StreamExecutor struct {
	logger    *zap.Logger
	transport replclient.Transport
}

// NewStreamExecutor creates a new StreamExecutor
func NewStreamExecutor(logger *zap.Logger, transport replclient.Transport) *StreamExecutor {
	return &StreamExecutor{
		logger:    logger,
		transport: transport,
	}
}

// Execute runs code on the named REPL machine and normalizes the outcome.
// It never returns an error: transport failures, remote errors, and
// cancellation all surface through Response.Error.
func (e *StreamExecutor) Execute(ctx context.Context, code, replID string) Response {
	log := e.logger.With(
		zap.String("exec_id", xid.New().String()),
		zap.String("repl_id", replID),
	)
	log.Info("executing code", zap.Int("code_len", len(code)))

	handle, err := e.transport.Open(ctx, replID)
	if err != nil {
		log.Error("failed to open repl handle", zap.Error(err))
		return failure(replID, err)
	}
	defer func() {
		_ = handle.Close()
	}()

	execution, err := handle.Exec(ctx, code)
	if err != nil {
		log.Error("failed to submit code", zap.Error(err))
		return failure(replID, err)
	}

	// Drain the stream in arrival order, honoring cancellation at every
	// suspension
	var chunks []string
drain:
	for {
		select {
		case chunk, ok := <-execution.Output():
			if !ok {
				break drain
			}
			chunks = append(chunks, chunk.Data)
		case <-ctx.Done():
			// Accumulated output is dropped from the response on this
			// path; keep it visible in the logs
			log.Debug("execution canceled mid-stream",
				zap.Int("chunks_discarded", len(chunks)),
				zap.Strings("partial_output", chunks))
			return failure(replID, ctx.Err())
		}
	}

	result, err := execution.Wait(ctx)
	if err != nil {
		log.Error("execution did not resolve", zap.Error(err))
		log.Debug("discarding partial output",
			zap.Int("chunks_discarded", len(chunks)),
			zap.Strings("partial_output", chunks))
		return failure(replID, err)
	}

	resp := Response{
		Output: strings.Join(chunks, "\n"),
		ReplID: replID,
	}

	switch result.Kind() {
	case replclient.KindValue:
		resp.Result = *result.Value
	case replclient.KindNoValue:
		resp.Result = noValueResult
	case replclient.KindError:
		resp.Error = fmt.Sprintf("Error: %s", result.Error)
	default:
		// Malformed remote response shape; keep it a non-error so the
		// caller still sees the output
		resp.Result = noResultOrError
	}

	// The image artifact rides along with every classification
	if png, ok := result.Data["png"]; ok {
		resp.Image = png
	}

	log.Info("execution finished",
		zap.Int("chunks", len(chunks)),
		zap.Bool("has_image", resp.Image != ""),
		zap.Bool("is_error", resp.Error != ""))

	return resp
}

// failure builds the response for a transport or adapter failure. Output
// and Result stay empty on this path.
func failure(replID string, cause error) Response {
	return Response{
		ReplID: replID,
		Error:  fmt.Sprintf("failed to execute code: %v", cause),
	}
}
