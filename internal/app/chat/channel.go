package chat

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"duochat/internal/app/socket"
	"duochat/internal/pkg/logx"
)

// Channel is the push-event channel as the conversation sees it.
type Channel interface {
	// Connected reports whether publishing is currently possible.
	Connected() bool

	// Subscribe delivers the messages pushed to room until the returned function is called.
	Subscribe(room string, fn func(Message)) (unsubscribe func())

	// Publish emits m to room.
	Publish(room string, m Message) error
}

// RoomFor names the room shared by a and b. The name does not depend on argument order.
func RoomFor(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

type socketChannel struct {
	conn   *socket.Conn
	logger zerolog.Logger
}

// NewSocketChannel adapts a socket connection to Channel.
func NewSocketChannel(conn *socket.Conn) Channel {
	return &socketChannel{conn: conn, logger: logx.Component("chat_channel")}
}

func (c *socketChannel) Connected() bool {
	return socket.IsConnected(c.conn.State())
}

func (c *socketChannel) Subscribe(room string, fn func(Message)) func() {
	sub := c.conn.Join(room, func(env socket.Envelope) {
		if env.Event != EventPrivateMessage {
			return
		}

		var m Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			c.logger.Warn().Err(err).Str("room", env.Room).Msg("Dropping undecodable message")
			return
		}

		if !m.Complete() {
			c.logger.Warn().Str("room", env.Room).Str("server_id", m.ServerID).Msg("Dropping message with missing fields")
			return
		}

		fn(m)
	})

	return sub.Unsubscribe
}

func (c *socketChannel) Publish(room string, m Message) error {
	return c.conn.Emit(room, EventPrivateMessage, m)
}
