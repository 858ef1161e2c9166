/*
Package chat contains the conversation logic of the client.

This file defines Message, the unit of conversation content, and its wire form.
A message is either plain text or the URL of an uploaded image; the two are told
apart by the URL prefix, not by a type tag.
*/
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxContentBytes is the maximum allowed size (in bytes) of text content.
	MaxContentBytes = 5000

	// EventPrivateMessage is the push-channel event carrying a message to a room.
	EventPrivateMessage = "privateMessage"
)

// Timestamp is a creation time in whole seconds since the epoch.
// On the wire it is either a plain integer or an object with a `_seconds` field.
type Timestamp int64

// TimestampOf truncates t to whole seconds.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// Time converts ts to a time.Time in the local zone.
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts), 0)
}

// MarshalJSON encodes ts as an integer.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(ts), 10), nil
}

// UnmarshalJSON accepts an integer, a numeric string, or {"_seconds": n}.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ts = 0
		return nil
	}

	switch data[0] {
	case '{':
		var obj struct {
			Seconds int64 `json:"_seconds"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode timestamp object: %w", err)
		}
		*ts = Timestamp(obj.Seconds)
		return nil

	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*ts = TimestampOf(t)
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("decode timestamp %q: %w", s, err)
		}
		*ts = Timestamp(n)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	*ts = Timestamp(int64(f))
	return nil
}

// Message is one entry of a conversation.
type Message struct {
	// ServerID is assigned by the API once the message is stored; empty while provisional.
	ServerID string `json:"id,omitempty"`

	// ProvisionalID is assigned locally when the message is composed and kept only until reconciliation.
	ProvisionalID string `json:"tempId,omitempty"`

	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"message"`
	Timestamp  Timestamp `json:"timestamp"`

	// Pending is true while the message waits for server confirmation.
	Pending bool `json:"-"`

	// Uploading names the attachment being uploaded for a pending message.
	Uploading string `json:"-"`
}

// IsImage reports whether the content is the URL of an uploaded image.
func (m Message) IsImage() bool {
	return strings.HasPrefix(m.Content, "http")
}

// Complete reports whether m carries the fields every conversation entry needs.
func (m Message) Complete() bool {
	return m.SenderID != "" && m.ReceiverID != "" && m.Content != ""
}

// BelongsTo reports whether m travels between a and b, in either direction.
func (m Message) BelongsTo(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Outgoing is the payload submitted to the persistence API.
type Outgoing struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"message"`
	TempID     string `json:"tempId,omitempty"`
}
