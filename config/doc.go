// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and the environment. It covers server
// settings, logging, per-call execution limits, and the credentials for
// the remote REPL machine service.
//
// Credentials resolve in order: FOREVERVM_TOKEN / FOREVERVM_API_BASE
// environment variables, then the config file, then the on-disk credential
// file written by the vendor CLI. A missing token is a startup failure,
// never a per-call error.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server transport: %s\n", cfg.Server.Transport)
package config
