package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time to wait for a Pong after a Ping.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame read from the server.
	maxMessageSize = 64 * 1024

	// capacity of the outbound queue.
	sendQueueSize = 64
)

var errQueueFull = errors.New("socket send queue full")

// link is one open websocket connection and its pumps.
type link struct {
	ws     *websocket.Conn
	send   chan []byte
	quit   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

func newLink(ws *websocket.Conn, logger zerolog.Logger) *link {
	return &link{
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		quit:   make(chan struct{}),
		logger: logger,
	}
}

// serve runs both pumps until the connection drops or ctx is done.
// The returned error is the read error that ended the connection.
func (l *link) serve(ctx context.Context, dispatch func(Envelope)) error {
	stop := context.AfterFunc(ctx, l.shutdown)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.writePump()
	}()

	err := l.readPump(dispatch)

	l.shutdown()
	wg.Wait()

	return err
}

func (l *link) shutdown() {
	l.once.Do(func() { close(l.quit) })
}

// enqueue queues a frame for the write pump.
func (l *link) enqueue(env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case <-l.quit:
		return websocket.ErrCloseSent
	default:
	}

	select {
	case l.send <- b:
		return nil
	default:
		l.logger.Warn().Int("queue_len", len(l.send)).Msg("Send queue full, dropping frame")
		return errQueueFull
	}
}

// readPump reads frames until the connection fails.
func (l *link) readPump(dispatch func(Envelope)) error {
	l.ws.SetReadLimit(maxMessageSize)

	if err := l.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}

	l.ws.SetPongHandler(func(string) error {
		return l.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := l.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Info().Err(err).Msg("Socket closed unexpectedly")
			}
			return err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			l.logger.Warn().Err(err).Bytes("frame", data).Msg("Server sent invalid JSON")
			continue
		}

		dispatch(env)
	}
}

// writePump drains the send queue and keeps the heartbeat going.
func (l *link) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := l.ws.Close(); err != nil {
			l.logger.Debug().Err(err).Msg("Socket close error in writePump")
		}
	}()

	for {
		select {
		case frame := <-l.send:
			if !l.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !l.write(websocket.PingMessage, nil) {
				return
			}

		case <-l.quit:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			l.write(websocket.CloseMessage, msg)
			return
		}
	}
}

// write sends one frame. It returns false when the pump should stop.
func (l *link) write(messageType int, data []byte) bool {
	if err := l.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		l.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := l.ws.WriteMessage(messageType, data); err != nil {
		l.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing frame")
		return false
	}

	return true
}
