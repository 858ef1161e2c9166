package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"duochat/internal/app/session"
	"duochat/internal/pkg/logx"
)

// Manager owns the conversations of one signed-in session.
// At most one conversation is active at a time.
type Manager struct {
	self string
	deps Deps

	// mu protects active and cancel.
	mu     sync.Mutex
	active *Conversation
	cancel context.CancelFunc

	// wg waits for the session watcher.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager creates a Manager for the user identified by self.
// The limiter in deps is shared by every conversation the Manager opens.
func NewManager(self string, deps Deps) *Manager {
	return &Manager{
		self:   self,
		deps:   deps.withDefaults(),
		logger: logx.Component("chat_manager").With().Str("user_id", self).Logger(),
	}
}

// Open activates a conversation with peer, closing the previous one.
func (m *Manager) Open(peer string, onChange func([]Message)) (*Conversation, error) {
	conv, err := Open(m.deps, m.self, peer, onChange)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.active
	m.active = conv
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
		m.pruneLimiter()
	}

	m.logger.Info().Str("peer_id", peer).Msg("Conversation opened")
	return conv, nil
}

// Active returns the active conversation, or nil.
func (m *Manager) Active() *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CloseActive closes the active conversation. It reports whether one was open.
func (m *Manager) CloseActive() bool {
	m.mu.Lock()
	conv := m.active
	m.active = nil
	m.mu.Unlock()

	if conv == nil {
		return false
	}

	conv.Close()
	m.pruneLimiter()
	m.logger.Info().Str("peer_id", conv.Peer()).Msg("Conversation closed")
	return true
}

// pruneLimiter forgets peers that have been idle long enough to submit again.
func (m *Manager) pruneLimiter() {
	if n := m.deps.Limiter.Prune(m.deps.Now()); n > 0 {
		m.logger.Debug().Int("pruned", n).Msg("Dropped idle rate limits")
	}
}

// WatchSession closes the active conversation when the stored session is cleared
// or replaced by another user, then calls onEnd. It stops at Shutdown or when ctx ends.
func (m *Manager) WatchSession(ctx context.Context, store *session.Store, onEnd func()) error {
	ctx, cancel := context.WithCancel(ctx)

	changes, err := store.Watch(ctx)
	if err != nil {
		cancel()
		return err
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for change := range changes {
			if change.Session != nil && change.Session.UID == m.self {
				continue
			}

			m.logger.Info().Msg("Session ended, closing conversation")
			m.CloseActive()
			if onEnd != nil {
				onEnd()
			}

			cancel()
			for range changes {
			}
			return
		}
	}()

	return nil
}

// Shutdown stops the session watcher and closes the active conversation.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.CloseActive()
}
