package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/storage"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/limiter"
)

const (
	alice = "alice"
	bob   = "bob"
)

type fixture struct {
	conv      *Conversation
	channel   *fakeChannel
	persister *fakePersister
	uploader  *fakeUploader
	clock     *clock
	rec       *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		channel:   newFakeChannel(),
		persister: &fakePersister{stamp: 1709294400},
		uploader:  &fakeUploader{},
		clock:     newClock(),
		rec:       &recorder{},
	}

	conv, err := Open(Deps{
		Persister: f.persister,
		Uploader:  f.uploader,
		Channel:   f.channel,
		Limiter:   limiter.NewKeyed(time.Second),
		Now:       f.clock.Now,
	}, alice, bob, f.rec.observe)
	require.NoError(t, err)
	t.Cleanup(conv.Close)

	f.conv = conv
	return f
}

func (f *fixture) push(m Message) {
	f.channel.deliver(RoomFor(alice, bob), m)
}

func TestSubmitScenarioHello(t *testing.T) {
	f := newFixture(t)

	stored, err := f.conv.Submit(context.Background(), Draft{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.ServerID)

	// optimistic insert first, then the reconciled entry
	require.Equal(t, 2, f.rec.count())
	first := f.rec.at(0)
	require.Len(t, first, 1)
	assert.True(t, first[0].Pending)
	assert.Equal(t, "hello", first[0].Content)
	assert.True(t, strings.HasPrefix(first[0].ProvisionalID, "tmp_"))

	msgs := f.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ServerID)
	assert.Empty(t, msgs[0].ProvisionalID)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, "hello", msgs[0].Content)

	// the persistence call carried the provisional id
	require.Len(t, f.persister.calls, 1)
	assert.Equal(t, first[0].ProvisionalID, f.persister.calls[0].TempID)

	// the confirmed message went out to the room
	published := f.channel.publishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, "m1", published[0].ServerID)

	// the echo of the confirmed message is a duplicate
	f.push(Message{ServerID: "m1", SenderID: alice, ReceiverID: bob, Content: "hello", Timestamp: 1709294400})
	assert.Len(t, f.conv.Messages(), 1)
	assert.Equal(t, 2, f.rec.count())
}

func TestSubmitRateLimit(t *testing.T) {
	f := newFixture(t)

	_, err := f.conv.Submit(context.Background(), Draft{Text: "one"})
	require.NoError(t, err)

	f.clock.Advance(500 * time.Millisecond)
	before := f.rec.count()
	_, err = f.conv.Submit(context.Background(), Draft{Text: "two"})
	assert.True(t, errs.Is(err, errs.ErrRateLimitExceeded))
	assert.Len(t, f.conv.Messages(), 1)
	assert.Equal(t, before, f.rec.count())
	assert.Len(t, f.persister.calls, 1)

	// measured from the accepted submission, not the rejected one
	f.clock.Advance(500 * time.Millisecond)
	_, err = f.conv.Submit(context.Background(), Draft{Text: "three"})
	require.NoError(t, err)
	assert.Len(t, f.conv.Messages(), 2)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.conv.Submit(context.Background(), Draft{Text: "   "})
	assert.True(t, errs.Is(err, errs.ErrEmptyMessage))

	_, err = f.conv.Submit(context.Background(), Draft{Text: strings.Repeat("x", MaxContentBytes+1)})
	assert.True(t, errs.Is(err, errs.ErrMessageContentTooLong))

	_, err = f.conv.Submit(context.Background(), Draft{Attachment: &storage.File{Name: "a.txt", MimeType: "text/plain", Size: 1, Body: strings.NewReader("x")}})
	assert.True(t, errs.Is(err, errs.ErrFileTypeInvalid))

	assert.Empty(t, f.conv.Messages())
	assert.Zero(t, f.rec.count())

	// none of the rejections used up the interval
	_, err = f.conv.Submit(context.Background(), Draft{Text: "ok"})
	require.NoError(t, err)
}

func TestSubmitAttachmentOnly(t *testing.T) {
	f := newFixture(t)

	var during []Message
	f.uploader.during = func(storage.File) { during = f.conv.Messages() }

	file := &storage.File{Name: "cat.png", MimeType: "image/png", Size: 3, Body: strings.NewReader("png")}
	stored, err := f.conv.Submit(context.Background(), Draft{Attachment: file})
	require.NoError(t, err)

	require.Len(t, during, 1)
	assert.True(t, during[0].Pending)
	assert.Equal(t, "cat.png", during[0].Uploading)

	assert.Equal(t, "https://files.local/cat.png", stored.Content)
	assert.True(t, stored.IsImage())
	msgs := f.conv.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsImage())
	assert.Empty(t, msgs[0].Uploading)
}

func TestSubmitUploadFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("bucket unavailable")

	file := &storage.File{Name: "cat.png", MimeType: "image/png", Size: 3, Body: strings.NewReader("png")}
	_, err := f.conv.Submit(context.Background(), Draft{Text: "look", Attachment: file})
	assert.True(t, errs.Is(err, errs.ErrFileStorageFailed))
	assert.Empty(t, f.conv.Messages())
	assert.Empty(t, f.persister.calls)
}

func TestSubmitFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.persister.failErr = errBackend

	_, err := f.conv.Submit(context.Background(), Draft{Text: "hello"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrMessageSendFailed))

	assert.Empty(t, f.conv.Messages())
	require.Equal(t, 2, f.rec.count())
	assert.Len(t, f.rec.at(0), 1)
	assert.Empty(t, f.rec.at(1))
	assert.Empty(t, f.channel.publishedMessages())
}

func TestSubmitRequiresConnection(t *testing.T) {
	f := newFixture(t)
	f.channel.setConnected(false)

	_, err := f.conv.Submit(context.Background(), Draft{Text: "hello"})
	assert.True(t, errs.Is(err, errs.ErrDisconnected))
	assert.Empty(t, f.conv.Messages())

	f.channel.setConnected(true)
	_, err = f.conv.Submit(context.Background(), Draft{Text: "hello"})
	require.NoError(t, err)
}

func TestEchoBeforeResponseWithProvisionalID(t *testing.T) {
	f := newFixture(t)

	f.persister.during = func(out Outgoing) {
		added := f.conv.OnIncoming(Message{ServerID: "m1", ProvisionalID: out.TempID, SenderID: alice, ReceiverID: bob, Content: out.Content, Timestamp: 1709294400})
		assert.False(t, added)
		assert.Len(t, f.conv.Messages(), 1)
	}

	_, err := f.conv.Submit(context.Background(), Draft{Text: "hello"})
	require.NoError(t, err)

	msgs := f.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ServerID)
	assert.False(t, msgs[0].Pending)
}

func TestEchoBeforeResponseWithServerIDOnly(t *testing.T) {
	f := newFixture(t)

	f.persister.during = func(out Outgoing) {
		// different timestamp, so neither key scheme matches the pending entry yet
		f.push(Message{ServerID: "m1", SenderID: alice, ReceiverID: bob, Content: out.Content, Timestamp: 1})
	}

	_, err := f.conv.Submit(context.Background(), Draft{Text: "hello"})
	require.NoError(t, err)

	msgs := f.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ServerID)
	assert.False(t, msgs[0].Pending)
}

func TestOnIncoming(t *testing.T) {
	f := newFixture(t)

	m := Message{ServerID: "m9", SenderID: bob, ReceiverID: alice, Content: "hey", Timestamp: 10}
	assert.True(t, f.conv.OnIncoming(m))
	assert.False(t, f.conv.OnIncoming(m))

	assert.False(t, f.conv.OnIncoming(Message{ServerID: "m10", SenderID: "carol", ReceiverID: alice, Content: "psst", Timestamp: 11}))
	assert.False(t, f.conv.OnIncoming(Message{ServerID: "m11", SenderID: bob, ReceiverID: alice}))

	// arrival order is kept even when timestamps go backwards
	assert.True(t, f.conv.OnIncoming(Message{ServerID: "m8", SenderID: alice, ReceiverID: bob, Content: "older", Timestamp: 5}))

	msgs := f.conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m9", msgs[0].ServerID)
	assert.Equal(t, "m8", msgs[1].ServerID)
}

// The structural fallback is the weakest key: identical text in the same second collapses.
func TestOnIncomingStructuralFallback(t *testing.T) {
	f := newFixture(t)

	bare := Message{SenderID: bob, ReceiverID: alice, Content: "ok", Timestamp: 20}
	assert.True(t, f.conv.OnIncoming(bare))
	assert.False(t, f.conv.OnIncoming(bare))

	bare.Timestamp = 21
	assert.True(t, f.conv.OnIncoming(bare))
	assert.Len(t, f.conv.Messages(), 2)
}

func TestOnIncomingIdentifiedNeverMatchesByContent(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.conv.OnIncoming(Message{ServerID: "m9", SenderID: bob, ReceiverID: alice, Content: "ok", Timestamp: 20}))
	assert.True(t, f.conv.OnIncoming(Message{ProvisionalID: "tmp_other", SenderID: bob, ReceiverID: alice, Content: "ok", Timestamp: 20}))
	assert.True(t, f.conv.OnIncoming(Message{SenderID: bob, ReceiverID: alice, Content: "ok", Timestamp: 20}))
	assert.Len(t, f.conv.Messages(), 3)
}

func TestLateCompletionAfterClose(t *testing.T) {
	f := newFixture(t)

	f.persister.during = func(Outgoing) { f.conv.Close() }

	stored, err := f.conv.Submit(context.Background(), Draft{Text: "bye"})
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.ServerID)

	// no reconcile notification after teardown
	assert.Equal(t, 1, f.rec.count())
	assert.Zero(t, f.channel.subscribers(RoomFor(alice, bob)))
	assert.Len(t, f.channel.publishedMessages(), 1)

	assert.False(t, f.conv.OnIncoming(Message{ServerID: "m2", SenderID: bob, ReceiverID: alice, Content: "late", Timestamp: 1}))

	_, err = f.conv.Submit(context.Background(), Draft{Text: "again"})
	assert.True(t, errs.Is(err, errs.ErrConversationClosed))
}

func TestLoadMergesEarlyDeliveries(t *testing.T) {
	f := newFixture(t)
	f.persister.history = []Message{
		{ServerID: "m1", SenderID: alice, ReceiverID: bob, Content: "one", Timestamp: 1},
		{ServerID: "m2", SenderID: bob, ReceiverID: alice, Content: "two", Timestamp: 2},
		{ServerID: "x1", SenderID: "carol", ReceiverID: alice, Content: "stray", Timestamp: 3},
	}

	f.push(Message{ServerID: "m2", SenderID: bob, ReceiverID: alice, Content: "two", Timestamp: 2})
	f.push(Message{ServerID: "m3", SenderID: bob, ReceiverID: alice, Content: "three", Timestamp: 4})

	require.NoError(t, f.conv.Load(context.Background()))

	msgs := f.conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ServerID, msgs[1].ServerID, msgs[2].ServerID})
}

func TestLoadFailureKeepsViewUsable(t *testing.T) {
	f := newFixture(t)
	f.persister.historyErr = errors.New("connection reset")

	err := f.conv.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrHistoryFetchFailed))
	assert.Empty(t, f.conv.Messages())

	_, err = f.conv.Submit(context.Background(), Draft{Text: "still here"})
	require.NoError(t, err)
}

func TestOpenValidation(t *testing.T) {
	deps := Deps{Persister: &fakePersister{}, Channel: newFakeChannel()}

	_, err := Open(deps, alice, alice, nil)
	assert.True(t, errs.Is(err, errs.ErrInvalidParams))

	_, err = Open(deps, "", bob, nil)
	assert.True(t, errs.Is(err, errs.ErrInvalidParams))

	_, err = Open(Deps{}, alice, bob, nil)
	assert.Error(t, err)
}
