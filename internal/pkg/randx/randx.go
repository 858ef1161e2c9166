/*
Package randx generates identifiers used by the chat client.

Provisional identifiers tag optimistically displayed messages until the API
confirms them; message identifiers are the authoritative ids the test backend assigns.
*/
package randx

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// ProvisionalPrefix marks identifiers that were generated locally.
const ProvisionalPrefix = "tmp_"

var provisionalSeq atomic.Uint64

// ProvisionalID returns an identifier unique within this process.
// It combines a monotonically increasing counter with a random UUID so that ids
// stay unique even across restarts that share a conversation.
func ProvisionalID() string {
	seq := provisionalSeq.Add(1)
	return ProvisionalPrefix + strconv.FormatUint(seq, 10) + "_" + uuid.NewString()
}

// IsProvisionalID reports whether id was produced by ProvisionalID.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}
