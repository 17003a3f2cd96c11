// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server exposing two
// tools: run-python-in-repl, which executes code on a persistent remote
// REPL machine through the execution adapter, and create-python-repl, which
// provisions a new machine. It uses the mark3labs/mcp-go library to handle
// the protocol details.
//
// Argument validation failures name every violated field and never reach
// the execution adapter. Execution and transport failures come back as
// content blocks with the IsError flag set; no fault propagates to the
// protocol host as an unhandled error.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, transport, executor)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
