package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	err := NewError(ErrRateLimitExceeded)
	assert.Equal(t, ErrRateLimitExceeded, err.Code)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)

	formatted := NewError(ErrMessageSendFailed, "boom")
	assert.Equal(t, "Error sending message: boom", formatted.Message)

	unknown := NewError(424242)
	assert.Equal(t, ErrUnknown, unknown.Code)
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	_ = NewError(ErrPeerNotFound, "alice")
	again := NewError(ErrPeerNotFound, "bob")
	assert.Equal(t, `User "bob" not found.`, again.Message)
}

func TestWrapAndIs(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create message: %w", Wrap(cause, ErrServiceUnavailable))

	assert.True(t, Is(err, ErrServiceUnavailable))
	assert.False(t, Is(err, ErrUnknown))
	require.ErrorIs(t, err, cause)
	assert.Equal(t, errorMap[ErrServiceUnavailable].Message, UserMessage(err))
	assert.Equal(t, errorMap[ErrUnknown].Message, UserMessage(cause))
}
