package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
)

func newStore(t *testing.T) *Store {
	return NewStore(filepath.Join(t.TempDir(), "nested", "session.json"))
}

func TestStoreLifecycle(t *testing.T) {
	s := newStore(t)

	_, err := s.Load()
	assert.True(t, errs.Is(err, errs.ErrNotSignedIn))

	require.NoError(t, s.Save(Session{UID: "u1", Name: "ada", DisplayName: "Ada L."}))

	sess, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UID)
	assert.Equal(t, "Ada L.", sess.Label())
	assert.Equal(t, "u1", sess.User().ID)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.True(t, errs.Is(err, errs.ErrNotSignedIn))

	// clearing twice is fine
	require.NoError(t, s.Clear())
}

func TestStoreRejectsEmptyUID(t *testing.T) {
	s := newStore(t)
	err := s.Save(Session{Name: "nobody"})
	assert.True(t, errs.Is(err, errs.ErrInvalidParams))
}

func TestStoreExpiredToken(t *testing.T) {
	s := newStore(t)

	tok, err := jwt.GenerateToken(&jwt.Payload{UserID: "u1"}, "k", time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Save(Session{UID: "u1", Name: "ada", Token: tok}))

	_, err = s.Load()
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Load()
	assert.True(t, errs.Is(err, errs.ErrSessionExpired))
}

func TestStoreCorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{"), 0o600))

	_, err := s.Load()
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for session change")
		return Change{}
	}
}

func TestWatchReportsSaveAndClear(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := s.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Save(Session{UID: "u1", Name: "ada"}))
	c := receive(t, changes)
	require.NotNil(t, c.Session)
	assert.Equal(t, "u1", c.Session.UID)

	require.NoError(t, s.Clear())
	c = receive(t, changes)
	assert.Nil(t, c.Session)

	cancel()
	for range changes {
	}
}

func TestWatchSeesOtherWriters(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "session.json")
	watched := NewStore(path)
	other := NewStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := watched.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Save(Session{UID: "u2", Name: "bob"}))
	c := receive(t, changes)
	require.NotNil(t, c.Session)
	assert.Equal(t, "u2", c.Session.UID)

	cancel()
	for range changes {
	}
}
