package chat

import (
	"strconv"
	"strings"
)

// KeyKind tells which identifier scheme a reconciliation key was built from.
type KeyKind int

const (
	// KeyServer keys a message by the identifier the API assigned.
	KeyServer KeyKind = iota + 1

	// KeyProvisional keys a message by its locally assigned identifier.
	KeyProvisional

	// KeyStructural keys a message by sender, content and timestamp second.
	// It is the weakest scheme: two identical texts sent in the same second collide.
	KeyStructural
)

// Key identifies one logical message within a conversation.
type Key struct {
	Kind  KeyKind
	Value string
}

// String renders k for logs and display bookkeeping.
func (k Key) String() string {
	switch k.Kind {
	case KeyServer:
		return "s:" + k.Value
	case KeyProvisional:
		return "p:" + k.Value
	default:
		return "f:" + k.Value
	}
}

// ReconciliationKey returns the strongest key available for m:
// the server id when present, else the provisional id, else the structural fallback.
func ReconciliationKey(m Message) Key {
	if m.ServerID != "" {
		return Key{Kind: KeyServer, Value: m.ServerID}
	}
	if m.ProvisionalID != "" {
		return Key{Kind: KeyProvisional, Value: m.ProvisionalID}
	}
	return Key{Kind: KeyStructural, Value: structural(m)}
}

func structural(m Message) string {
	var b strings.Builder
	b.WriteString(m.SenderID)
	b.WriteByte(0)
	b.WriteString(m.Content)
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(int64(m.Timestamp), 10))
	return b.String()
}

// SameMessage reports whether a and b represent the same logical message.
// Identifiers of the same scheme are authoritative when both sides carry one.
// The structural comparison applies only when neither side carries any identifier;
// an identified entry never matches by content alone.
func SameMessage(a, b Message) bool {
	if a.ServerID != "" && b.ServerID != "" {
		return a.ServerID == b.ServerID
	}
	if a.ProvisionalID != "" && b.ProvisionalID != "" {
		return a.ProvisionalID == b.ProvisionalID
	}
	if identified(a) || identified(b) {
		return false
	}
	return structural(a) == structural(b)
}

func identified(m Message) bool {
	return m.ServerID != "" || m.ProvisionalID != ""
}

// contains reports whether seq already holds an entry for m.
func contains(seq []Message, m Message) bool {
	for _, existing := range seq {
		if SameMessage(existing, m) {
			return true
		}
	}
	return false
}

// indexOfProvisional returns the position of the entry carrying provisionalID, or -1.
func indexOfProvisional(seq []Message, provisionalID string) int {
	for i, m := range seq {
		if m.ProvisionalID == provisionalID {
			return i
		}
	}
	return -1
}

// indexOfServer returns the position of the entry carrying serverID, or -1.
func indexOfServer(seq []Message, serverID string) int {
	if serverID == "" {
		return -1
	}
	for i, m := range seq {
		if m.ServerID == serverID {
			return i
		}
	}
	return -1
}

// confirmed normalizes m into a server-confirmed entry.
func confirmed(m Message) Message {
	m.Pending = false
	m.Uploading = ""
	if m.ServerID != "" {
		m.ProvisionalID = ""
	}
	return m
}

// withAppended returns a copy of seq with m appended.
func withAppended(seq []Message, m Message) []Message {
	out := make([]Message, len(seq), len(seq)+1)
	copy(out, seq)
	return append(out, m)
}

// withReplaced returns a copy of seq with the entry at i replaced by m.
func withReplaced(seq []Message, i int, m Message) []Message {
	out := make([]Message, len(seq))
	copy(out, seq)
	out[i] = m
	return out
}

// withRemoved returns a copy of seq without the entry at i.
func withRemoved(seq []Message, i int) []Message {
	out := make([]Message, 0, len(seq)-1)
	out = append(out, seq[:i]...)
	return append(out, seq[i+1:]...)
}

// reconcileProvisional replaces the provisional entry with stored.
// If stored is already present under its server id, the provisional entry is dropped instead.
// ok is false when the provisional entry no longer exists.
func reconcileProvisional(seq []Message, provisionalID string, stored Message) (out []Message, ok bool) {
	i := indexOfProvisional(seq, provisionalID)
	if i < 0 {
		return seq, false
	}

	if j := indexOfServer(seq, stored.ServerID); j >= 0 && j != i {
		return withRemoved(seq, i), true
	}

	return withReplaced(seq, i, confirmed(stored)), true
}

// appendIncoming appends m unless seq already holds it.
func appendIncoming(seq []Message, m Message) (out []Message, added bool) {
	if contains(seq, m) {
		return seq, false
	}
	return withAppended(seq, confirmed(m)), true
}

// mergeHistory builds the sequence shown after history loads: the history in
// server order, then every live entry the history does not already cover.
func mergeHistory(history, live []Message) []Message {
	out := make([]Message, 0, len(history)+len(live))
	for _, m := range history {
		if !contains(out, m) {
			out = append(out, confirmed(m))
		}
	}
	for _, m := range live {
		if !contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}
