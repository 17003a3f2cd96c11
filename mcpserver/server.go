// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// run-python-in-repl and create-python-repl tools. It uses the
// mark3labs/mcp-go library to handle the protocol details and renders every
// execution outcome as a content block; errors are data, never aborted
// requests.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/replbox/replbox/config"
	"github.com/replbox/replbox/repl"
	"github.com/replbox/replbox/replclient"
)

// Tool names exposed in the catalog
const (
	ToolRunPython  = "run-python-in-repl"
	ToolCreateRepl = "create-python-repl"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	transport replclient.Transport
	executor  repl.Executor
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, transport replclient.Transport, executor repl.Executor) (*MCPServer, error) {
	s := &MCPServer{
		config:    cfg,
		logger:    logger,
		transport: transport,
		executor:  executor,
	}

	// Log configuration parameters on startup; the token itself stays out
	// of the logs
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("api.base_url", s.config.API.BaseURL),
		zap.Bool("api.token_present", s.config.API.Token != ""),
		zap.Int("exec.timeout_sec", s.config.Exec.TimeoutSec),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("replbox", "A remote persistent Python REPL server")

	// Register the two tools; the catalog is static
	s.registerRunPythonTool()
	s.registerCreateReplTool()

	return s, nil
}

// registerRunPythonTool registers the run-python-in-repl tool
func (s *MCPServer) registerRunPythonTool() {
	tool := mcp.Tool{
		Name:        ToolRunPython,
		Description: "Run Python code in a persistent REPL machine. Variables, imports, and function definitions persist between calls to the same REPL.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"pythonCode": map[string]any{
					"type":        "string",
					"description": "Python source code to execute in the REPL",
				},
				"replId": map[string]any{
					"type":        "string",
					"description": "Identifier of the REPL machine to run the code on",
				},
			},
			Required: []string{"pythonCode", "replId"},
		},
	}

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.dispatch(ctx, ToolRunPython, request)
	})
}

// registerCreateReplTool registers the create-python-repl tool
func (s *MCPServer) registerCreateReplTool() {
	tool := mcp.Tool{
		Name:        ToolCreateRepl,
		Description: "Create a new persistent Python REPL machine and return its identifier",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.dispatch(ctx, ToolCreateRepl, request)
	})
}

// dispatch routes a tool call by name. Every branch returns a structured
// result; the nil error keeps faults from escaping across the protocol
// boundary.
func (s *MCPServer) dispatch(ctx context.Context, name string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch name {
	case ToolRunPython:
		return s.handleRunPython(ctx, request), nil
	case ToolCreateRepl:
		return s.handleCreateRepl(ctx), nil
	default:
		s.logger.Warn("unknown tool requested", zap.String("tool", name))
		return errorResult(fmt.Sprintf("unknown tool: %s", name)), nil
	}
}

// handleRunPython validates the arguments, runs the code through the
// execution adapter, and renders the response
func (s *MCPServer) handleRunPython(ctx context.Context, request mcp.CallToolRequest) *mcp.CallToolResult {
	code, replID, problems := parseRunPythonArgs(request)
	if len(problems) > 0 {
		s.logger.Warn("invalid run-python-in-repl arguments", zap.Strings("problems", problems))
		return errorResult("invalid arguments: " + strings.Join(problems, "; "))
	}

	s.logger.Info("code execution requested", zap.String("repl_id", replID))

	ctx, cancel := context.WithTimeout(ctx, s.config.GetTimeout())
	defer cancel()

	resp := s.executor.Execute(ctx, code, replID)

	// An image artifact is rendered as the sole content block
	if resp.Image != "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.ImageContent{
					Type:     "image",
					Data:     resp.Image,
					MIMEType: "image/png",
				},
			},
			IsError: resp.Error != "",
		}
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode execution response", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to encode response: %v", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(payload),
			},
		},
		IsError: resp.Error != "",
	}
}

// handleCreateRepl provisions a new REPL machine
func (s *MCPServer) handleCreateRepl(ctx context.Context) *mcp.CallToolResult {
	s.logger.Info("repl creation requested")

	ctx, cancel := context.WithTimeout(ctx, s.config.GetTimeout())
	defer cancel()

	machineName, err := s.transport.CreateMachine(ctx)
	if err != nil {
		s.logger.Error("failed to create repl machine", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to create repl: %v", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("created new python repl: %s", machineName),
			},
		},
	}
}

// parseRunPythonArgs validates the tool arguments against the fixed schema,
// collecting every failing field so one response names them all
func parseRunPythonArgs(request mcp.CallToolRequest) (code, replID string, problems []string) {
	args := request.GetArguments()

	code, problems = requireStringArg(args, "pythonCode", problems)
	replID, problems = requireStringArg(args, "replId", problems)

	return code, replID, problems
}

func requireStringArg(args map[string]any, name string, problems []string) (string, []string) {
	raw, ok := args[name]
	if !ok {
		return "", append(problems, fmt.Sprintf("%s: required field is missing", name))
	}

	value, ok := raw.(string)
	if !ok {
		return "", append(problems, fmt.Sprintf("%s: must be a string", name))
	}
	if value == "" {
		return "", append(problems, fmt.Sprintf("%s: must not be empty", name))
	}

	return value, problems
}

// errorResult builds a single-text-block failure response
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: message,
			},
		},
		IsError: true,
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
