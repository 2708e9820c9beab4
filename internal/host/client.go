// Package host connects the extension to a host editor speaking JSON-RPC 2.0 over a
// WebSocket. The connection runs a read pump and a write pump; requests in both directions
// are multiplexed over it.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jkbrsn/pickcolor"
	"github.com/rs/zerolog"
)

const (
	// defaultTimeout is the default dial and call timeout.
	defaultTimeout = 5 * time.Second
	// defaultChanBufferSize is the default size of the write channel.
	defaultChanBufferSize = 8
	// defaultPingInterval is the default keepalive ping interval.
	defaultPingInterval = 30 * time.Second
)

// ErrConnectionClosed is returned by calls made on, or interrupted by, a closed connection.
var ErrConnectionClosed = errors.New("host connection closed")

// Client is a connection to a host editor. It implements pickcolor.Editor and
// pickcolor.Registrar.
type Client struct {
	log zerolog.Logger

	conn      atomic.Pointer[websocket.Conn]
	dialer    *websocket.Dialer
	writeChan chan []byte

	nextID    atomic.Uint64
	pendingMu sync.Mutex
	pending   map[string]chan *message

	commands *pickcolor.CommandTable

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wgPumps   sync.WaitGroup

	// instance configuration
	timeout      time.Duration
	pingInterval time.Duration
}

var (
	_ pickcolor.Editor    = (*Client)(nil)
	_ pickcolor.Registrar = (*Client)(nil)
)

// New creates and returns a new Client. Use options to adjust timeouts and buffers.
func New(opts ...Option) *Client {
	cfg := options{
		bufferSize:   defaultChanBufferSize,
		timeout:      defaultTimeout,
		pingInterval: defaultPingInterval,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		log:          cfg.logger.With().Str("pkg", "host").Logger(),
		dialer:       &websocket.Dialer{HandshakeTimeout: cfg.timeout},
		writeChan:    make(chan []byte, cfg.bufferSize),
		pending:      make(map[string]chan *message),
		commands:     pickcolor.NewCommandTable(),
		ctx:          ctx,
		cancel:       cancel,
		timeout:      cfg.timeout,
		pingInterval: cfg.pingInterval,
	}
}

// Dial connects to the host at targetURL and starts the pumps.
func (c *Client) Dial(ctx context.Context, targetURL *url.URL, header http.Header) error {
	conn, resp, err := c.dialer.DialContext(ctx, targetURL.String(), header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			defer func() {
				_ = resp.Body.Close()
			}()
			return fmt.Errorf("failed dial response '%s': %w", string(body), err)
		}
		return fmt.Errorf("failed to connect to host: %w", err)
	}
	c.conn.Store(conn)

	if c.pingInterval > 0 {
		pongWait := c.pingInterval + c.timeout
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	c.wgPumps.Add(2)
	go c.readPump()
	go c.writePump()

	c.log.Debug().Str("url", targetURL.String()).Msg("Connected to host")
	return nil
}

// Done returns a channel that is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Commands returns the identifiers registered through this client.
func (c *Client) Commands() []string {
	return c.commands.Commands()
}

// readPump reads frames from the connection and dispatches them.
func (c *Client) readPump() {
	defer func() {
		c.wgPumps.Done()
		c.Close()
	}()

	for {
		conn := c.conn.Load()
		if conn == nil {
			c.log.Debug().Msg("Connection already closed, exiting read pump")
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.log.Warn().Err(err).Msg("Host connection lost")
				} else {
					c.log.Debug().Err(err).Msg("Read pump stopped")
				}
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug().Err(err).Msg("Dropping undecodable frame")
			c.reply(nil, nil, &RPCError{Code: CodeParseError, Message: err.Error()})
			continue
		}
		c.dispatch(&msg)
	}
}

// dispatch routes an inbound frame. Requests are served on their own goroutine so the read
// pump stays free to deliver the responses they wait on.
func (c *Client) dispatch(msg *message) {
	switch {
	case msg.isResponse():
		key := idKey(msg.ID)
		c.pendingMu.Lock()
		ch, ok := c.pending[key]
		delete(c.pending, key)
		c.pendingMu.Unlock()
		if !ok {
			c.log.Debug().Str("id", key).Msg("Dropping response to unknown request")
			return
		}
		ch <- msg
	case msg.isRequest() && msg.RPCVersion != rpcVersion:
		c.reply(msg.ID, nil, &RPCError{
			Code:    CodeInvalidRequest,
			Message: fmt.Sprintf("unsupported jsonrpc version %q", msg.RPCVersion),
		})
	case msg.isRequest():
		go c.serve(msg)
	case msg.Method == MethodShutdown:
		c.log.Info().Msg("Host requested shutdown")
		go c.Close()
	case msg.Method != "":
		c.log.Debug().Str("method", msg.Method).Msg("Ignoring notification")
	default:
		c.log.Debug().Msg("Dropping frame that is neither request nor response")
	}
}

// serve answers a host request.
func (c *Client) serve(msg *message) {
	switch msg.Method {
	case MethodExecuteCommand:
		var params executeCommandParams
		if err := json.Unmarshal(msg.Params, &params); err != nil || params.Command == "" {
			c.reply(msg.ID, nil, &RPCError{Code: CodeInvalidParams, Message: "missing command"})
			return
		}
		c.log.Debug().Str("command", params.Command).Msg("Executing command")
		err := c.commands.Execute(c.ctx, params.Command)
		switch {
		case errors.Is(err, pickcolor.ErrCommandNotFound):
			c.reply(msg.ID, nil, &RPCError{Code: CodeMethodNotFound, Message: err.Error()})
		case err != nil:
			c.reply(msg.ID, nil, &RPCError{Code: CodeCommandFailed, Message: err.Error()})
		default:
			c.reply(msg.ID, nil, nil)
		}
	case MethodShutdown:
		c.reply(msg.ID, nil, nil)
		c.Close()
	default:
		c.reply(msg.ID, nil, &RPCError{
			Code:    CodeMethodNotFound,
			Message: "method not found: " + msg.Method,
		})
	}
}

// reply sends a response to the request with the given ID.
func (c *Client) reply(id json.RawMessage, result any, rpcErr *RPCError) {
	if id == nil {
		id = json.RawMessage("null")
	}
	var payload any = outboundResult{RPCVersion: rpcVersion, ID: id, Result: result}
	if rpcErr != nil {
		payload = outboundError{RPCVersion: rpcVersion, ID: id, Error: rpcErr}
	}
	if err := c.send(payload); err != nil {
		c.log.Debug().Err(err).Msg("Failed to send response")
	}
}

// writePump writes queued frames to the connection and keeps it alive with pings.
func (c *Client) writePump() {
	defer func() {
		c.wgPumps.Done()
		c.Close()
	}()

	var ticker *time.Ticker
	if c.pingInterval > 0 {
		ticker = time.NewTicker(c.pingInterval)
		defer ticker.Stop()
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-tickerC(ticker):
			conn := c.conn.Load()
			if conn == nil {
				return
			}
			deadline := time.Now().Add(c.timeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug().Err(err).Msg("Failed to write ping")
				return
			}
		case data := <-c.writeChan:
			// Load conn once and check for nil to avoid race with Close()
			conn := c.conn.Load()
			if conn == nil {
				c.log.Debug().Msg("Connection already closed, skipping write")
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
				c.log.Debug().Err(err).Msg("Failed to set write deadline")
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug().Err(err).Msg("Failed to write message")
				return
			}
		}
	}
}

// send encodes v and queues it for the write pump.
func (c *Client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.writeChan <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Call sends a request and decodes its result into result, which may be nil. The call fails
// after the client timeout unless ctx ends first.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	key := strconv.FormatUint(id, 10)
	ch := make(chan *message, 1)

	c.pendingMu.Lock()
	c.pending[key] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, key)
		c.pendingMu.Unlock()
	}()

	req := outboundRequest{RPCVersion: rpcVersion, ID: id, Method: method, Params: params}
	if err := c.send(req); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return fmt.Errorf("%s: %w", method, msg.Error)
		}
		if result == nil || !hasValue(msg.Result) {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return fmt.Errorf("%s: failed to decode result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.ctx.Done():
		return fmt.Errorf("%s: %w", method, ErrConnectionClosed)
	}
}

// Notify sends a notification.
func (c *Client) Notify(_ context.Context, method string, params any) error {
	if err := c.send(outboundRequest{RPCVersion: rpcVersion, Method: method, Params: params}); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Close closes the connection and stops the pumps. Calls in flight fail with
// ErrConnectionClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()

		conn := c.conn.Load()
		if conn != nil {
			if err := conn.SetReadDeadline(time.Now()); err != nil {
				c.log.Debug().Err(err).Msg("Failed to set read deadline")
			}

			formattedCloseMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			deadline := time.Now().Add(time.Second)
			if err := conn.WriteControl(
				websocket.CloseMessage,
				formattedCloseMessage,
				deadline,
			); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("Failed to write close message")
			}

			if err := conn.Close(); err != nil {
				c.log.Debug().Err(err).Msg("Failed to close connection")
			}
		}

		// Close is also called from the pumps, which must not wait on themselves.
		go func() {
			c.wgPumps.Wait()
			c.conn.Store(nil)
		}()
	})
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// Option configures a Client.
type Option func(*options)

// options stores the configuration for a Client.
type options struct {
	timeout      time.Duration
	pingInterval time.Duration
	bufferSize   int
	logger       zerolog.Logger
}

// WithBufferSize sets the buffer size of the write channel.
func WithBufferSize(n int) Option { return func(o *options) { o.bufferSize = n } }

// WithLogger sets the logger for the Client.
func WithLogger(logger zerolog.Logger) Option { return func(o *options) { o.logger = logger } }

// WithTimeout sets the timeout used for dialing, writes and calls.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithPingInterval sets the keepalive ping interval. Zero disables pings and read deadlines.
func WithPingInterval(d time.Duration) Option { return func(o *options) { o.pingInterval = d } }
