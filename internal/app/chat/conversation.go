package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"duochat/internal/app/storage"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/limiter"
	"duochat/internal/pkg/logx"
	"duochat/internal/pkg/randx"
)

// DefaultSubmitInterval is the minimum time between two accepted submissions to the same peer.
const DefaultSubmitInterval = time.Second

// Persister is the persistence API used by a conversation.
type Persister interface {
	CreateMessage(ctx context.Context, out Outgoing) (Message, error)
	ListMessages(ctx context.Context, a, b string) ([]Message, error)
}

// Deps are the collaborators of a conversation.
type Deps struct {
	Persister Persister
	Uploader  storage.Uploader
	Channel   Channel

	// Limiter is shared by every conversation of a session. Defaults to DefaultSubmitInterval.
	Limiter *limiter.Keyed

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Limiter == nil {
		d.Limiter = limiter.NewKeyed(DefaultSubmitInterval)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Draft is what the user composed.
type Draft struct {
	Text       string
	Attachment *storage.File
}

// Conversation is the live view of the messages between the local user and one peer.
// Every mutation replaces the message slice under mu, so a persistence completion and
// a push delivery for the same message never interleave.
type Conversation struct {
	deps     Deps
	self     string
	peer     string
	room     string
	onChange func([]Message)
	logger   zerolog.Logger

	mu          sync.Mutex
	messages    []Message
	closed      bool
	unsubscribe func()

	// notifyMu keeps observer calls ordered.
	notifyMu sync.Mutex
}

// Open subscribes to the pair's room and returns an empty conversation.
// Call Load to fetch the history. onChange, if set, receives a snapshot after every change.
func Open(deps Deps, self, peer string, onChange func([]Message)) (*Conversation, error) {
	if self == "" || peer == "" || self == peer {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if deps.Persister == nil || deps.Channel == nil {
		return nil, errors.New("conversation needs a persister and a channel")
	}

	c := &Conversation{
		deps:     deps.withDefaults(),
		self:     self,
		peer:     peer,
		room:     RoomFor(self, peer),
		onChange: onChange,
	}
	c.logger = logx.Component("conversation").With().
		Str("peer_id", peer).
		Str("room", c.room).
		Logger()

	c.unsubscribe = c.deps.Channel.Subscribe(c.room, func(m Message) {
		c.OnIncoming(m)
	})

	return c, nil
}

// Peer returns the id of the other participant.
func (c *Conversation) Peer() string { return c.peer }

// Room returns the push-event room of the pair.
func (c *Conversation) Room() string { return c.room }

// Load replaces the sequence with the stored history, keeping entries that arrived
// or were submitted meanwhile. On failure the current sequence is left as it is.
func (c *Conversation) Load(ctx context.Context) error {
	history, err := c.deps.Persister.ListMessages(ctx, c.self, c.peer)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load history")
		if errs.Is(err, errs.ErrHistoryFetchFailed) {
			return err
		}
		return errs.WrapDetail(err, errs.ErrHistoryFetchFailed, errs.UserMessage(err))
	}

	belonging := make([]Message, 0, len(history))
	for _, m := range history {
		if m.BelongsTo(c.self, c.peer) {
			belonging = append(belonging, m)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errs.NewError(errs.ErrConversationClosed)
	}
	c.messages = mergeHistory(belonging, c.messages)
	c.mu.Unlock()

	c.logger.Debug().Int("count", len(belonging)).Msg("History loaded")
	c.notify()

	return nil
}

// Messages returns a snapshot of the visible sequence.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// Closed reports whether Close was called.
func (c *Conversation) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close unsubscribes from the room. In-flight submissions still complete
// against the API, but no longer change the sequence.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.logger.Debug().Msg("Conversation closed")
}

// Submit sends a draft. The message is shown as pending right away, then replaced by the
// stored message once the API confirms it, or removed if persistence fails.
// Validation, rate limit and connectivity rejections leave the sequence untouched.
func (c *Conversation) Submit(ctx context.Context, d Draft) (Message, error) {
	text := strings.TrimSpace(d.Text)

	if text == "" && d.Attachment == nil {
		return Message{}, errs.NewError(errs.ErrEmptyMessage)
	}
	if len(text) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}
	if d.Attachment != nil {
		if err := ValidateAttachment(d.Attachment); err != nil {
			return Message{}, err
		}
		if c.deps.Uploader == nil {
			return Message{}, errs.NewError(errs.ErrFileStorageFailed)
		}
	}

	pending, err := c.insertPending(text, d.Attachment)
	if err != nil {
		return Message{}, err
	}
	pid := pending.ProvisionalID

	content := text
	if d.Attachment != nil {
		url, err := c.deps.Uploader.Upload(ctx, *d.Attachment)
		if err != nil {
			c.rollback(pid)
			c.logger.Warn().Err(err).Str("file", d.Attachment.Name).Msg("Attachment upload failed")
			if errs.Is(err, errs.ErrFileStorageFailed) || errs.Is(err, errs.ErrRequestEntityTooLarge) {
				return Message{}, err
			}
			return Message{}, errs.Wrap(err, errs.ErrFileStorageFailed)
		}
		content = url
		c.update(pid, func(m *Message) {
			m.Content = url
			m.Uploading = ""
		})
	}

	stored, err := c.deps.Persister.CreateMessage(ctx, Outgoing{
		SenderID:   c.self,
		ReceiverID: c.peer,
		Content:    content,
		TempID:     pid,
	})
	if err != nil {
		c.rollback(pid)
		c.logger.Warn().Err(err).Str("temp_id", pid).Msg("Message send failed")
		if errs.Is(err, errs.ErrMessageSendFailed) {
			return Message{}, err
		}
		return Message{}, errs.WrapDetail(err, errs.ErrMessageSendFailed, errs.UserMessage(err))
	}

	if stored.Timestamp == 0 {
		stored.Timestamp = pending.Timestamp
	}
	stored = confirmed(stored)

	if !c.reconcile(pid, stored) {
		c.logger.Debug().Str("temp_id", pid).Msg("Late completion ignored")
	}

	if err := c.deps.Channel.Publish(c.room, stored); err != nil {
		c.logger.Warn().Err(err).Str("server_id", stored.ServerID).Msg("Failed to publish message")
	}

	return stored, nil
}

// insertPending runs the stateful checks and appends the provisional entry.
func (c *Conversation) insertPending(text string, attachment *storage.File) (Message, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return Message{}, errs.NewError(errs.ErrConversationClosed)
	}
	if !c.deps.Channel.Connected() {
		c.mu.Unlock()
		return Message{}, errs.NewError(errs.ErrDisconnected)
	}

	now := c.deps.Now()
	if !c.deps.Limiter.Allow(c.peer, now) {
		c.mu.Unlock()
		return Message{}, errs.NewError(errs.ErrRateLimitExceeded)
	}

	pending := Message{
		ProvisionalID: randx.ProvisionalID(),
		SenderID:      c.self,
		ReceiverID:    c.peer,
		Content:       text,
		Timestamp:     TimestampOf(now),
		Pending:       true,
	}
	if attachment != nil {
		pending.Uploading = attachment.Name
	}

	c.messages = withAppended(c.messages, pending)
	c.mu.Unlock()

	c.notify()
	return pending, nil
}

// update applies fn to the entry carrying provisionalID, if it is still there.
func (c *Conversation) update(provisionalID string, fn func(*Message)) {
	c.mu.Lock()
	i := indexOfProvisional(c.messages, provisionalID)
	if c.closed || i < 0 {
		c.mu.Unlock()
		return
	}
	m := c.messages[i]
	fn(&m)
	c.messages = withReplaced(c.messages, i, m)
	c.mu.Unlock()

	c.notify()
}

func (c *Conversation) rollback(provisionalID string) {
	c.mu.Lock()
	i := indexOfProvisional(c.messages, provisionalID)
	if c.closed || i < 0 {
		c.mu.Unlock()
		return
	}
	c.messages = withRemoved(c.messages, i)
	c.mu.Unlock()

	c.notify()
}

func (c *Conversation) reconcile(provisionalID string, stored Message) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	out, ok := reconcileProvisional(c.messages, provisionalID, stored)
	c.messages = out
	c.mu.Unlock()

	if ok {
		c.notify()
	}
	return ok
}

// OnIncoming accepts a pushed message. Messages of other pairs and duplicates of
// entries already shown are dropped. It reports whether the sequence changed.
func (c *Conversation) OnIncoming(m Message) bool {
	if !m.Complete() || !m.BelongsTo(c.self, c.peer) {
		c.logger.Debug().Str("sender_id", m.SenderID).Str("receiver_id", m.ReceiverID).Msg("Ignoring message for another pair")
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	out, added := appendIncoming(c.messages, m)
	c.messages = out
	c.mu.Unlock()

	if added {
		c.notify()
	} else {
		c.logger.Debug().Stringer("key", ReconciliationKey(m)).Msg("Duplicate message dropped")
	}
	return added
}

func (c *Conversation) notify() {
	if c.onChange == nil {
		return
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.onChange(c.Messages())
}
