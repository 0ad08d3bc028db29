package serverquery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Session.
type State int32

const (
	// StateDisconnected is the state of a new session.
	StateDisconnected State = iota
	// StateHandshaking means the socket is open and the banner is awaited.
	StateHandshaking
	// StateConnected means commands may be sent.
	StateConnected
	// StateClosed means the connection is gone. Connect may be called again.
	StateClosed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// connection is the per-socket part of a session. Its request queue and
// framer live and die with the socket.
type connection struct {
	conn   net.Conn
	queue  *RequestQueue
	framer *Framer

	// writeMu orders writes and enqueues, so queue order is write order.
	writeMu sync.Mutex

	// Owned by the reader goroutine.
	verified   bool
	bannerLeft int
	banner     []byte

	handshake chan error
	done      chan struct{}

	// closed is guarded by Session.mu.
	closed bool
}

// Session is a ServerQuery connection with its request pipeline.
//
// Commands may be sent from any goroutine and may overlap; responses are
// matched to commands strictly in send order. A single reader goroutine
// per connection consumes inbound data, completes pending commands and
// publishes events. Event handlers run on that goroutine and must not wait
// for a command of the same session.
type Session struct {
	mu    sync.Mutex
	state State
	cur   *connection

	events  *Dispatcher
	logger  *zap.Logger
	metrics *Metrics

	bannerLines    int
	readBufferSize int
}

// NewSession creates a disconnected session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		events:         NewDispatcher(),
		logger:         zap.NewNop(),
		bannerLines:    DefaultBannerLines,
		readBufferSize: DefaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the event dispatcher of the session. Subscriptions
// survive reconnects.
func (s *Session) Events() *Dispatcher {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemoteAddr returns the server address, or nil when not connected.
func (s *Session) RemoteAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.conn.RemoteAddr()
}

// PendingCount returns the number of commands awaiting a response.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()
	if c == nil {
		return 0
	}
	return c.queue.Len()
}

func (s *Session) setStateLocked(state State) {
	s.state = state
	s.metrics.setState(state)
}

// Connect opens a TCP connection to host:port and waits for the server
// banner. An empty host means DefaultHost and a zero port DefaultPort.
//
// Connect fails with ErrAlreadyConnected while the session is connected
// or handshaking.
func (s *Session) Connect(ctx context.Context, port int, host string, opts ...DialOption) error {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}

	dialer := net.Dialer{Timeout: ConnectionTimeout}
	for _, opt := range opts {
		opt(&dialer)
	}

	s.mu.Lock()
	if s.state == StateConnected || s.state == StateHandshaking {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.setStateLocked(StateHandshaking)
	s.mu.Unlock()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	log := s.logger.With(zap.String("remote", addr))
	log.Info("Connecting to ServerQuery")

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		err = NewTransportError("dial", err)
		log.Warn("Connect failed", zap.Error(err))
		s.mu.Lock()
		s.setStateLocked(StateClosed)
		s.mu.Unlock()
		s.events.Close.publish(CloseEvent{Err: err})
		return err
	}

	c := &connection{
		conn:       conn,
		queue:      NewRequestQueue(),
		framer:     NewFramer(),
		bannerLeft: s.bannerLines,
		handshake:  make(chan error, 1),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	if s.state != StateHandshaking {
		// Closed while dialing.
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.cur = c
	s.mu.Unlock()

	go s.readLoop(c)

	select {
	case err := <-c.handshake:
		if err != nil {
			return err
		}
		log.Info("Connected to ServerQuery")
		return nil
	case <-ctx.Done():
		err := NewTransportError("handshake", ctx.Err())
		s.closeConn(c, err, true)
		return err
	}
}

// Send writes a command and returns its completion handle without
// waiting for the response. See FormatCommand for how fields are sent.
func (s *Session) Send(command string, fields Fields) (*Pending, error) {
	s.mu.Lock()
	c := s.cur
	if c == nil || s.state != StateConnected {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	s.mu.Unlock()

	line := FormatLine(command, fields)

	c.writeMu.Lock()
	p, err := c.queue.Enqueue(line[:len(line)-len(LineTerminator)])
	if err != nil {
		c.writeMu.Unlock()
		return nil, err
	}
	_, err = io.WriteString(c.conn, line)
	c.writeMu.Unlock()

	if err != nil {
		err = NewTransportError("write", err)
		s.logger.Warn("Write failed", zap.String("command", p.Command()), zap.Error(err))
		s.closeConn(c, err, true)
		return nil, err
	}

	s.metrics.setPending(c.queue.Len())
	s.logger.Debug("Sent command", zap.String("command", p.Command()))
	return p, nil
}

// Exec sends a command and waits for its response. A non-success status
// is returned as a *StatusError. Cancelling ctx stops the wait only.
func (s *Session) Exec(ctx context.Context, command string, fields Fields) (*Response, error) {
	p, err := s.Send(command, fields)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

// Close ends the connection gracefully. Every pending command fails with
// ErrClosed. Close on a session that is not connected does nothing.
func (s *Session) Close() error {
	return s.close(nil)
}

// CloseWithError aborts the connection and fails every pending command
// with an error wrapping both ErrClosed and err.
func (s *Session) CloseWithError(err error) error {
	return s.close(err)
}

func (s *Session) close(cause error) error {
	s.mu.Lock()
	c := s.cur
	if c == nil {
		if s.state == StateHandshaking {
			// Connect is still dialing and will notice.
			s.setStateLocked(StateClosed)
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.closeConn(c, cause, cause != nil)
}

// WaitAndClose waits until every command pending at the time of the call
// has completed, then closes the session. Commands sent afterwards are not
// waited for. If ctx ends first the session is left open.
func (s *Session) WaitAndClose(ctx context.Context) error {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()

	if c != nil {
		for _, p := range c.queue.Snapshot() {
			select {
			case <-p.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return s.Close()
}

// closeConn tears down c. It is idempotent per connection and only moves
// the session to StateClosed if c is still the current connection.
func (s *Session) closeConn(c *connection, cause error, abortive bool) error {
	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		return nil
	}
	c.closed = true
	current := s.cur == c
	if current {
		s.cur = nil
		s.setStateLocked(StateClosed)
	}
	s.mu.Unlock()

	if abortive {
		if tc, ok := c.conn.(interface{ SetLinger(int) error }); ok {
			tc.SetLinger(0)
		}
	} else if hc, ok := c.conn.(interface{ CloseWrite() error }); ok {
		hc.CloseWrite()
	}
	err := c.conn.Close()

	pendingErr := ErrClosed
	if cause != nil {
		pendingErr = fmt.Errorf("%w: %w", ErrClosed, cause)
	}
	failed := c.queue.Drain(pendingErr)
	s.metrics.commandsFailed(failed)
	s.metrics.setPending(0)

	handshakeErr := cause
	if handshakeErr == nil {
		handshakeErr = ErrClosed
	}
	select {
	case c.handshake <- handshakeErr:
	default:
	}

	fields := []zap.Field{zap.Int("failed", failed)}
	if cause != nil {
		s.logger.Warn("Connection closed", append(fields, zap.Error(cause))...)
	} else {
		s.logger.Info("Connection closed", fields...)
	}

	if current {
		s.events.Close.publish(CloseEvent{Err: cause})
	}

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Session) isClosed(c *connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.closed
}

// readLoop is the only reader of c. It exits when the socket fails or is
// closed.
func (s *Session) readLoop(c *connection) {
	defer close(c.done)
	defer c.framer.Reset()

	buf := make([]byte, s.readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			s.metrics.received(n)
			if !s.handleChunk(c, buf[:n]) {
				return
			}
		}
		if err != nil {
			if s.isClosed(c) {
				return
			}
			s.closeConn(c, NewTransportError("read", err), false)
			return
		}
	}
}

// handleChunk processes one transport read. It returns false once the
// connection has been closed.
func (s *Session) handleChunk(c *connection, chunk []byte) bool {
	if c.bannerLeft > 0 {
		verified := c.verified
		rest, done, err := s.handshake(c, chunk)
		if err != nil {
			s.logger.Warn("Handshake failed", zap.Error(err))
			s.closeConn(c, err, true)
			return false
		}
		// The marker alone completes Connect; the remaining banner lines
		// are skipped here before framing starts.
		if !verified && c.verified && !s.markConnected(c) {
			return false
		}
		if !done {
			return true
		}
		chunk = rest
	}

	for _, frame := range c.framer.Feed(chunk) {
		switch frame.Kind {
		case FrameEvent:
			s.dispatch(frame.Text)
		case FrameResponse:
			if !s.complete(c, frame.Text) {
				return false
			}
		}
	}
	return true
}

// markConnected moves c from handshaking to connected and releases the
// waiting Connect.
func (s *Session) markConnected(c *connection) bool {
	s.mu.Lock()
	ok := s.cur == c && s.state == StateHandshaking
	if ok {
		s.setStateLocked(StateConnected)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case c.handshake <- nil:
	default:
	}
	return true
}

// handshake verifies the banner marker and skips the banner lines. It
// returns whatever followed the banner once all banner lines were seen.
func (s *Session) handshake(c *connection, chunk []byte) ([]byte, bool, error) {
	c.banner = append(c.banner, chunk...)

	if !c.verified {
		terminator := []byte(LineTerminator)
		if len(c.banner) < len(BannerMarker) && !bytes.Contains(c.banner, terminator) {
			return nil, false, nil
		}
		if !bytes.HasPrefix(c.banner, []byte(BannerMarker)) {
			first, _, _ := bytes.Cut(c.banner, terminator)
			return nil, false, &HandshakeError{Banner: string(first)}
		}
		c.verified = true
	}

	for c.bannerLeft > 0 {
		idx := bytes.Index(c.banner, []byte(LineTerminator))
		if idx < 0 {
			return nil, false, nil
		}
		c.banner = c.banner[idx+len(LineTerminator):]
		c.bannerLeft--
	}

	rest := c.banner
	c.banner = nil
	return rest, true, nil
}

// complete pairs a response unit with the oldest pending command.
func (s *Session) complete(c *connection, raw string) bool {
	p, err := c.queue.PopOldest()
	if err != nil {
		s.logger.Error("Response without pending command", zap.String("response", raw))
		s.closeConn(c, err, true)
		return false
	}
	s.metrics.setPending(c.queue.Len())

	resp := Parse(raw)
	p.complete(resp)

	if resp.OK() {
		s.metrics.commandDone(resultOK, p.sent)
		s.logger.Debug("Command completed", zap.String("command", p.Command()))
	} else {
		s.metrics.commandDone(resultError, p.sent)
		s.logger.Debug("Command failed",
			zap.String("command", p.Command()),
			zap.Int("code", resp.Status.Code),
			zap.String("msg", resp.Status.Message))
	}
	return true
}

func (s *Session) dispatch(line string) {
	n := ParseNotification(line)
	family := s.events.Dispatch(n)
	s.metrics.event(family)
	if family == FamilyUnknown {
		s.logger.Debug("Unhandled event", zap.String("event", n.Name))
		return
	}
	s.logger.Debug("Event", zap.String("event", n.Name), zap.String("family", family))
}
