package replclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Config holds the connection parameters for the remote REPL service
type Config struct {
	BaseURL string
	Token   string
}

// Client implements Transport against the remote REPL machine service.
// Each opened handle owns one WebSocket connection; machine creation is a
// single authenticated POST.
type Client struct {
	logger     *zap.Logger
	baseURL    *url.URL
	token      string
	dialer     *websocket.Dialer
	httpClient *http.Client
}

// ClientOption defines a functional option for Client
type ClientOption func(*Client)

// WithDialer sets the WebSocket dialer for Client
func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithHTTPClient sets the HTTP client for Client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Client with default implementations and optional overrides
func New(logger *zap.Logger, cfg Config, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", cfg.BaseURL, err)
	}

	client := &Client{
		logger:     logger,
		baseURL:    base,
		token:      cfg.Token,
		dialer:     websocket.DefaultDialer,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// frame is one message on the REPL WebSocket, in either direction
type frame struct {
	Type        string       `json:"type"`
	Instruction *instruction `json:"instruction,omitempty"`
	RequestID   string       `json:"request_id,omitempty"`
	Chunk       *OutputChunk `json:"chunk,omitempty"`
	Result      *Result      `json:"result,omitempty"`
}

type instruction struct {
	Code string `json:"code"`
}

// Wire frame types
const (
	frameExec   = "exec"
	frameOutput = "output"
	frameResult = "result"
)

// Open dials the REPL endpoint of the named machine
func (c *Client) Open(ctx context.Context, machineName string) (Handle, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = path.Join(u.Path, "v1/machine", machineName, "repl")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("dial repl %s: %w (status %s)", machineName, err, resp.Status)
		}
		return nil, fmt.Errorf("dial repl %s: %w", machineName, err)
	}

	c.logger.Debug("repl connection opened", zap.String("machine", machineName))

	return &wsHandle{
		logger:  c.logger,
		machine: machineName,
		conn:    conn,
	}, nil
}

// CreateMachine provisions a new REPL machine and returns its name
func (c *Client) CreateMachine(ctx context.Context) (string, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, "v1/machine/new")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build create machine request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create machine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("create machine: unexpected status %s: %s", resp.Status, body)
	}

	var out struct {
		MachineName string `json:"machine_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create machine response: %w", err)
	}
	if out.MachineName == "" {
		return "", fmt.Errorf("create machine: response missing machine_name")
	}

	c.logger.Info("machine created", zap.String("machine", out.MachineName))

	return out.MachineName, nil
}

// wsHandle is an exclusively-owned WebSocket connection to one machine.
// A single exec may be in flight at a time.
type wsHandle struct {
	logger  *zap.Logger
	machine string
	conn    *websocket.Conn
	exec    *Execution
}

// Exec submits code and returns the streaming execution. The returned
// execution's output channel closes when the remote run completes or the
// connection drops.
func (h *wsHandle) Exec(ctx context.Context, code string) (*Execution, error) {
	if h.exec != nil {
		return nil, fmt.Errorf("exec already in flight on machine %s", h.machine)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := h.conn.SetWriteDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set write deadline: %w", err)
		}
	}

	msg := frame{
		Type:        frameExec,
		Instruction: &instruction{Code: code},
		RequestID:   xid.New().String(),
	}
	if err := h.conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("send exec instruction: %w", err)
	}

	ex := NewExecution(16)
	h.exec = ex
	go h.read(ex)

	return ex, nil
}

// read pumps frames into the execution until a result arrives or the
// connection fails. It is the sole producer for ex.
func (h *wsHandle) read(ex *Execution) {
	for {
		var f frame
		if err := h.conn.ReadJSON(&f); err != nil {
			ex.Finish(Result{}, fmt.Errorf("repl connection dropped: %w", err))
			return
		}

		switch f.Type {
		case frameOutput:
			if f.Chunk == nil {
				continue
			}
			if !ex.Emit(*f.Chunk) {
				ex.Finish(Result{}, ex.abortReason())
				return
			}
		case frameResult:
			var result Result
			if f.Result != nil {
				result = *f.Result
			}
			ex.Finish(result, nil)
			return
		default:
			// Acknowledgement and keepalive frames carry nothing we need
			h.logger.Debug("ignoring frame",
				zap.String("machine", h.machine),
				zap.String("type", f.Type))
		}
	}
}

// Close releases the connection. An in-flight execution is aborted so its
// consumer never hangs on a dead stream.
func (h *wsHandle) Close() error {
	if h.exec != nil {
		h.exec.Abort(ErrHandleClosed)
	}
	return h.conn.Close()
}
