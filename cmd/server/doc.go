// Package main is the entry point for the replbox MCP server.
//
// The replbox server implements a Model Context Protocol (MCP) server that
// exposes remote, persistent Python REPL machines as tools. Execution
// happens entirely on the remote service; this process adapts tool calls
// onto the remote streaming protocol and renders the results as protocol
// content blocks.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
