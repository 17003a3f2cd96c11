// Package replclient provides the client for the remote REPL machine service.
//
// The replclient package implements the transport layer between the server
// and the remote service hosting persistent Python REPL machines. The
// Transport interface opens exclusively-owned handles to machines and
// provisions new ones; a Handle submits code and yields an Execution, which
// pairs an ordered output stream with a one-shot result future.
//
// The concrete Client speaks JSON frames over one WebSocket per handle and
// a plain authenticated POST for machine creation.
//
// Usage:
//
//	client, err := replclient.New(logger, replclient.Config{
//	    BaseURL: "https://api.forevervm.com",
//	    Token:   token,
//	})
//	handle, err := client.Open(ctx, machineName)
//	defer handle.Close()
//	execution, err := handle.Exec(ctx, "print('hello')")
//	for chunk := range execution.Output() {
//	    fmt.Println(chunk.Data)
//	}
//	result, err := execution.Wait(ctx)
package replclient
