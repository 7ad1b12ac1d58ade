// Package transport owns the single websocket connection to the combat server.
//
// A Session never blocks its caller on the network: Connect dials in the
// background and every outcome (connected, dial error, inbound frame, close)
// is reported on one ordered event channel. Per connection the order is
// Connected, zero or more Message events, then exactly one Closed.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Versifine/arena/internal/logger"
	"github.com/gorilla/websocket"
)

var ErrDialCancelled = errors.New("dial cancelled by close")

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type EventKind int

const (
	EventConnected EventKind = iota
	EventMessage
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one lifecycle change or inbound frame. Gen identifies the
// connection attempt it belongs to; consumers drop events from stale attempts.
type Event struct {
	Kind   EventKind
	Gen    uint64
	Text   []byte
	Err    error
	Code   int
	Reason string
}

type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PongTimeout      time.Duration
	QueueSize        int
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	return o
}

// link is one established connection.
type link struct {
	conn       *websocket.Conn
	gen        uint64
	done       chan struct{}
	localClose atomic.Bool
}

type Session struct {
	opts   Options
	dialer *websocket.Dialer
	log    *slog.Logger
	events chan Event

	mu         sync.Mutex
	state      State
	gen        uint64
	link       *link
	cancelDial context.CancelFunc

	writeMu sync.Mutex
}

func New(opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		log:    logger.With("transport"),
		events: make(chan Event, opts.QueueSize),
	}
}

// Events is the single ordered stream of lifecycle events and inbound frames.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Generation returns the id of the latest connection attempt.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Connect starts dialing url and returns immediately. Exactly one of
// EventConnected or EventError follows. It is a no-op while a connection
// exists or is being established.
func (s *Session) Connect(url string) {
	s.mu.Lock()
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		s.log.Warn("Connect ignored", "state", state.String(), "url", url)
		return
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelDial = cancel
	s.state = StateConnecting
	s.mu.Unlock()

	s.log.Info("Connecting", "url", url, "gen", gen)
	go s.dial(ctx, gen, url)
}

func (s *Session) dial(ctx context.Context, gen uint64, url string) {
	conn, resp, err := s.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateConnecting {
		// Close won the race.
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		s.emit(Event{Kind: EventError, Gen: gen, Err: ErrDialCancelled})
		return
	}
	s.cancelDial = nil
	if err != nil {
		s.state = StateDisconnected
		s.mu.Unlock()
		s.log.Warn("Connection failed", "url", url, "error", err)
		s.emit(Event{Kind: EventError, Gen: gen, Err: err})
		return
	}
	l := &link{conn: conn, gen: gen, done: make(chan struct{})}
	s.link = l
	s.state = StateConnected
	s.mu.Unlock()

	s.log.Info("Connected", "url", url, "gen", gen)
	s.emit(Event{Kind: EventConnected, Gen: gen})
	go s.readLoop(l)
	go s.pingLoop(l)
}

func (s *Session) readLoop(l *link) {
	defer close(l.done)

	l.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			s.finish(l, err)
			return
		}
		if msgType != websocket.TextMessage {
			s.log.Debug("Dropping non-text frame", "type", msgType)
			continue
		}
		s.emit(Event{Kind: EventMessage, Gen: l.gen, Text: data})
	}
}

// finish tears down l after its reader stopped and reports the close.
func (s *Session) finish(l *link, readErr error) {
	s.mu.Lock()
	if s.link == l {
		s.link = nil
		s.state = StateDisconnected
	}
	s.mu.Unlock()
	l.conn.Close()

	ev := Event{Kind: EventClosed, Gen: l.gen}
	var closeErr *websocket.CloseError
	switch {
	case l.localClose.Load():
		ev.Code = websocket.CloseNormalClosure
		ev.Reason = "closed by client"
	case errors.As(readErr, &closeErr):
		ev.Code = closeErr.Code
		ev.Reason = closeErr.Text
	default:
		ev.Code = websocket.CloseAbnormalClosure
		ev.Reason = readErr.Error()
		ev.Err = readErr
	}
	if ev.Code == websocket.CloseNormalClosure || ev.Code == websocket.CloseGoingAway {
		s.log.Info("Connection closed", "code", ev.Code, "reason", ev.Reason, "gen", l.gen)
	} else {
		s.log.Warn("Connection lost", "code", ev.Code, "reason", ev.Reason, "gen", l.gen)
	}
	s.emit(ev)
}

func (s *Session) pingLoop(l *link) {
	ticker := time.NewTicker(s.opts.PongTimeout * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if err := l.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.log.Debug("Ping failed", "error", err)
			}
		}
	}
}

// Send writes one text frame. It reports false, dropping the frame, when no
// connection is established or the write fails.
func (s *Session) Send(text []byte) bool {
	s.mu.Lock()
	l := s.link
	connected := s.state == StateConnected
	s.mu.Unlock()
	if !connected || l == nil {
		return false
	}
	if err := s.write(l, text); err != nil {
		s.log.Debug("Send failed", "error", err)
		return false
	}
	return true
}

func (s *Session) write(l *link, text []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := l.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return err
	}
	return l.conn.WriteMessage(websocket.TextMessage, text)
}

// Close sends final (when non-nil) as a last best-effort frame, then closes
// the connection. Safe in any state; an in-flight dial is cancelled. The
// Closed event for an established connection is emitted by its reader.
func (s *Session) Close(final []byte) {
	s.mu.Lock()
	switch s.state {
	case StateDisconnected:
		s.mu.Unlock()
		return
	case StateConnecting:
		cancel := s.cancelDial
		s.cancelDial = nil
		s.state = StateDisconnected
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.log.Info("Connect cancelled")
		return
	}
	l := s.link
	s.link = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	l.localClose.Store(true)
	if final != nil {
		if err := s.write(l, final); err != nil {
			s.log.Debug("Final frame not sent", "error", err)
		}
	}
	deadline := time.Now().Add(s.opts.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client leaving")
	if err := l.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.log.Debug("Close frame not sent", "error", err)
	}
	l.conn.Close()
}

func (s *Session) emit(ev Event) {
	s.events <- ev
}
