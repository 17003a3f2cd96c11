// Package main is the entry point for the replbox MCP server.
//
// The replbox server implements a Model Context Protocol (MCP) server that
// exposes remote, persistent Python REPL machines as tools. Code submitted
// through the run-python-in-repl tool executes on a remote machine whose
// variables and imports survive between calls; create-python-repl
// provisions new machines. The server supports both stdio and HTTP
// transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/replbox/replbox/config"
	"github.com/replbox/replbox/logger"
	"github.com/replbox/replbox/mcpserver"
	"github.com/replbox/replbox/repl"
	"github.com/replbox/replbox/replclient"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Transport to the remote REPL machine service
			func(cfg *config.Config, log *zap.Logger) (replclient.Transport, error) {
				return replclient.New(log, replclient.Config{
					BaseURL: cfg.API.BaseURL,
					Token:   cfg.API.Token,
				})
			},

			// Streaming execution adapter
			func(log *zap.Logger, transport replclient.Transport) repl.Executor {
				return repl.NewStreamExecutor(log, transport)
			},

			// MCP Server
			mcpserver.New,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					// Use fx to run this as a background task
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
