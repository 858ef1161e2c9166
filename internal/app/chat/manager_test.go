package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"duochat/internal/app/session"
	"duochat/internal/pkg/limiter"
)

func newManager(channel *fakeChannel) *Manager {
	return NewManager(alice, Deps{Persister: &fakePersister{}, Channel: channel})
}

func TestManagerSingleActiveConversation(t *testing.T) {
	channel := newFakeChannel()
	m := newManager(channel)
	defer m.Shutdown()

	assert.Nil(t, m.Active())
	assert.False(t, m.CloseActive())

	first, err := m.Open(bob, nil)
	require.NoError(t, err)
	assert.Same(t, first, m.Active())
	assert.Equal(t, 1, channel.subscribers(RoomFor(alice, bob)))

	second, err := m.Open("carol", nil)
	require.NoError(t, err)
	assert.True(t, first.Closed())
	assert.Zero(t, channel.subscribers(RoomFor(alice, bob)))
	assert.Same(t, second, m.Active())

	assert.True(t, m.CloseActive())
	assert.True(t, second.Closed())
	assert.Nil(t, m.Active())
}

func TestManagerSharesLimiter(t *testing.T) {
	m := newManager(newFakeChannel())
	defer m.Shutdown()

	conv, err := m.Open(bob, nil)
	require.NoError(t, err)
	_, err = conv.Submit(context.Background(), Draft{Text: "one"})
	require.NoError(t, err)

	// reopening the same peer does not reset the interval
	conv, err = m.Open(bob, nil)
	require.NoError(t, err)
	_, err = conv.Submit(context.Background(), Draft{Text: "two"})
	assert.Error(t, err)
}

func TestManagerPrunesIdleLimits(t *testing.T) {
	clk := newClock()
	limits := limiter.NewKeyed(time.Second)
	m := NewManager(alice, Deps{Persister: &fakePersister{}, Channel: newFakeChannel(), Limiter: limits, Now: clk.Now})
	defer m.Shutdown()

	conv, err := m.Open(bob, nil)
	require.NoError(t, err)
	_, err = conv.Submit(context.Background(), Draft{Text: "one"})
	require.NoError(t, err)

	// switching right away keeps the fresh limit
	_, err = m.Open("carol", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, limits.Len())

	clk.Advance(time.Hour)
	assert.True(t, m.CloseActive())
	assert.Zero(t, limits.Len())
}

func TestManagerClosesOnLogout(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(session.Session{UID: alice, Name: "Alice"}))

	m := newManager(newFakeChannel())

	ended := make(chan struct{})
	require.NoError(t, m.WatchSession(context.Background(), store, func() { close(ended) }))

	conv, err := m.Open(bob, nil)
	require.NoError(t, err)

	// saving the same user again is not a logout
	require.NoError(t, store.Save(session.Session{UID: alice, Name: "Alice L."}))

	require.NoError(t, store.Clear())

	select {
	case <-ended:
	case <-time.After(3 * time.Second):
		t.Fatal("logout not observed")
	}

	assert.True(t, conv.Closed())
	assert.Nil(t, m.Active())

	m.Shutdown()
}
