/*
Package socket implements the push-event channel: a websocket connection that
joins rooms scoped to a participant pair, emits events into them and delivers
events pushed by the server.

A Conn owns its reconnection policy. Its connectivity is exposed as an explicit
State that moves only on transport lifecycle events.
*/
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
)

const (
	// EventJoinRoom subscribes the connection to a room.
	EventJoinRoom = "joinRoom"

	// EventLeaveRoom unsubscribes the connection from a room.
	EventLeaveRoom = "leaveRoom"

	defaultReconnectDelay = time.Second
)

// Envelope is the frame exchanged over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the envelopes delivered to a joined room.
type Handler func(Envelope)

// Config configures a Conn.
type Config struct {
	// URL is the websocket endpoint, ws:// or wss://.
	URL string

	// Token returns the session token sent on every dial. May be nil.
	Token func() string

	// ReconnectAttempts is the number of dials, the first included, a connect
	// cycle makes before the state turns Failed. Values below 1 mean a single dial.
	ReconnectAttempts int

	// ReconnectDelay is the constant pause between attempts.
	ReconnectDelay time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Conn is a lifecycle-scoped push-event connection.
type Conn struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	link      *link
	rooms     map[string]map[uint64]Handler
	listeners map[uint64]func(State)
	nextID    uint64
	cancel    context.CancelFunc

	wg sync.WaitGroup
}

// New returns an unstarted Conn in the Disconnected state.
func New(cfg Config) *Conn {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.ReconnectAttempts < 1 {
		cfg.ReconnectAttempts = 1
	}

	return &Conn{
		cfg:       cfg,
		logger:    logx.Component("socket").With().Str("url", cfg.URL).Logger(),
		state:     Disconnected{},
		rooms:     make(map[string]map[uint64]Handler),
		listeners: make(map[uint64]func(State)),
	}
}

// Start begins connecting in the background. It returns immediately.
// Calling Start on a started Conn is an error.
func (c *Conn) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("socket already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx)

	return nil
}

// Close disconnects and waits for the background goroutines to finish.
func (c *Conn) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// State returns the current connectivity state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers fn for every state transition and returns a function that removes it.
// fn runs on the connection goroutine and must not block.
func (c *Conn) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Subscription is a handler registered on a room.
type Subscription struct {
	conn *Conn
	room string
	id   uint64
	once sync.Once
}

// Join registers h for room. The first handler of a room sends joinRoom;
// rooms are joined again after every reconnect.
func (c *Conn) Join(room string, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	sub := &Subscription{conn: c, room: room, id: c.nextID}

	handlers, ok := c.rooms[room]
	if !ok {
		handlers = make(map[uint64]Handler)
		c.rooms[room] = handlers
		c.sendLocked(Envelope{Event: EventJoinRoom, Room: room})
	}
	handlers[sub.id] = h

	return sub
}

// Unsubscribe removes the handler. The last handler of a room sends leaveRoom.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		c := s.conn
		c.mu.Lock()
		defer c.mu.Unlock()

		handlers := c.rooms[s.room]
		delete(handlers, s.id)
		if len(handlers) == 0 {
			delete(c.rooms, s.room)
			c.sendLocked(Envelope{Event: EventLeaveRoom, Room: s.room})
		}
	})
}

// Emit sends event with data to room.
// It fails with ErrDisconnected unless the connection is in the Connected state.
func (c *Conn) Emit(room, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link == nil || !IsConnected(c.state) {
		return errs.NewError(errs.ErrDisconnected)
	}

	if err := c.link.enqueue(Envelope{Event: event, Room: room, Data: raw}); err != nil {
		return errs.Wrap(err, errs.ErrDisconnected)
	}

	return nil
}

// sendLocked queues a control frame if a link is up. c.mu must be held.
func (c *Conn) sendLocked(env Envelope) {
	if c.link == nil {
		return
	}
	if err := c.link.enqueue(env); err != nil {
		c.logger.Warn().Err(err).Str("event", env.Event).Str("room", env.Room).Msg("Failed to queue control frame")
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	listeners := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	c.logger.Debug().Stringer("state", s).Msg("Connectivity changed")

	for _, fn := range listeners {
		fn(s)
	}
}

// run connects, serves and reconnects until ctx is done or the retry budget runs out.
func (c *Conn) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		ws, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(Disconnected{})
				return
			}
			c.logger.Error().Err(err).Int("attempts", c.cfg.ReconnectAttempts).Msg("Giving up on socket connection")
			c.setState(Failed{Err: err})
			return
		}

		l := newLink(ws, c.logger)
		c.attach(l)
		c.setState(Connected{})

		err = l.serve(ctx, c.dispatch)
		c.detach(l)

		if ctx.Err() != nil {
			c.setState(Disconnected{})
			return
		}

		c.logger.Info().Err(err).Msg("Socket dropped, reconnecting")
		c.setState(Disconnected{Err: err})

		t := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			c.setState(Disconnected{})
			return
		case <-t.C:
		}
	}
}

// connect dials with the configured constant backoff.
func (c *Conn) connect(ctx context.Context) (*websocket.Conn, error) {
	retries := uint64(c.cfg.ReconnectAttempts - 1)
	backoff := retry.WithMaxRetries(retries, retry.NewConstant(c.cfg.ReconnectDelay))

	var ws *websocket.Conn
	attempt := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.setState(Connecting{Attempt: attempt})

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("Socket dial failed")
			return retry.RetryableError(err)
		}

		ws = conn
		return nil
	})

	return ws, err
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.Token != nil {
		if tok := c.cfg.Token(); tok != "" {
			header.Set(jwt.BearerHeader, "Bearer "+tok)
		}
	}

	ws, res, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	if err != nil {
		if res != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", c.cfg.URL, err, res.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	return ws, nil
}

// attach installs l and rejoins every room with a live handler.
func (c *Conn) attach(l *link) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.link = l
	for room := range c.rooms {
		c.sendLocked(Envelope{Event: EventJoinRoom, Room: room})
	}
}

func (c *Conn) detach(l *link) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link == l {
		c.link = nil
	}
}

// dispatch delivers env to the handlers of its room, or to every handler when the room is empty.
func (c *Conn) dispatch(env Envelope) {
	c.mu.Lock()
	var handlers []Handler
	for room, hs := range c.rooms {
		if env.Room != "" && room != env.Room {
			continue
		}
		for _, h := range hs {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Debug().Str("event", env.Event).Str("room", env.Room).Msg("No handler for event")
		return
	}

	for _, h := range handlers {
		h(env)
	}
}
