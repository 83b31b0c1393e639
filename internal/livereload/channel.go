package livereload

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	tioerrors "github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/metrics"
)

const writeTimeout = 5 * time.Second

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// Protocol is the notification wire format. Default: Structured.
	Protocol Protocol

	// Logger receives connection events. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records notifications and the connected client. May be nil.
	Metrics *metrics.Metrics
}

// Channel is the single-client live update endpoint.
type Channel struct {
	protocol Protocol
	logger   *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	accepted uint64
}

// NewChannel creates a live update channel.
func NewChannel(opts ChannelOptions) *Channel {
	if opts.Protocol == "" {
		opts.Protocol = Structured
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Channel{
		protocol: opts.Protocol,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the page is served from another port
			},
		},
	}
}

// Protocol returns the wire format used by the channel.
func (c *Channel) Protocol() Protocol {
	return c.protocol
}

// ServeHTTP upgrades the request and makes it the active client.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Debug("live reload upgrade failed", "error", err)
		return
	}

	c.mu.Lock()
	replaced := c.conn != nil
	c.conn = conn
	c.accepted++
	n := c.accepted
	c.mu.Unlock()

	c.metrics.SetLiveClient(true)
	c.logger.Debug("live reload client connected", "remote", r.RemoteAddr, "client", n, "replaced", replaced)

	go c.readLoop(conn)
}

// readLoop drains the connection until it closes.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	c.release(conn)
	conn.Close()
}

// release empties the slot if conn still holds it.
func (c *Channel) release(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	c.metrics.SetLiveClient(false)
	c.logger.Debug("live reload client disconnected")
}

// Connected reports whether a client holds the slot.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Notify sends n to the active client. Without a client it does nothing.
func (c *Channel) Notify(n Notification) {
	data, err := Encode(c.protocol, n)
	if err != nil {
		c.logger.Error("encode notification", "error", err)
		return
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		c.metrics.ObserveNotification("dropped")
		c.logger.Debug("no live reload client", "path", n.Change, "hot", n.Hot)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("live reload send failed", "error", err)
		c.metrics.ObserveNotification("dropped")
		c.release(conn)
		conn.Close()
		return
	}
	c.metrics.ObserveNotification(n.Kind())
}

// Close closes the active connection, if any.
func (c *Channel) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
		c.metrics.SetLiveClient(false)
	}
}

// ListenAndServe binds addr and serves the channel until ctx is done.
func (c *Channel) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return tioerrors.New("E121").WithDetail(addr).Wrap(err)
	}
	return c.Serve(ctx, ln)
}

// Serve serves the channel on ln until ctx is done.
func (c *Channel) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           c,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		c.Close()
	}()

	c.logger.Debug("live reload listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
