package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"duochat/internal/app/storage"
	"duochat/internal/pkg/errs"
)

type fakeChannel struct {
	mu         sync.Mutex
	connected  bool
	subs       map[string]map[int]func(Message)
	next       int
	published  []Message
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{connected: true, subs: make(map[string]map[int]func(Message))}
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) setConnected(on bool) {
	f.mu.Lock()
	f.connected = on
	f.mu.Unlock()
}

func (f *fakeChannel) Subscribe(room string, fn func(Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	id := f.next
	if f.subs[room] == nil {
		f.subs[room] = make(map[int]func(Message))
	}
	f.subs[room][id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[room], id)
	}
}

func (f *fakeChannel) subscribers(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[room])
}

// deliver pushes m to every subscriber of room.
func (f *fakeChannel) deliver(room string, m Message) {
	f.mu.Lock()
	var fns []func(Message)
	for _, fn := range f.subs[room] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

func (f *fakeChannel) Publish(_ string, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, m)
	return f.publishErr
}

func (f *fakeChannel) publishedMessages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.published...)
}

type fakePersister struct {
	mu         sync.Mutex
	seq        int
	calls      []Outgoing
	failErr    error
	history    []Message
	historyErr error

	// during runs inside CreateMessage before it returns.
	during func(Outgoing)

	// stamp is the timestamp given to stored messages.
	stamp Timestamp
}

func (f *fakePersister) CreateMessage(_ context.Context, out Outgoing) (Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, out)
	f.seq++
	id := fmt.Sprintf("m%d", f.seq)
	during, failErr, stamp := f.during, f.failErr, f.stamp
	f.mu.Unlock()

	if during != nil {
		during(out)
	}
	if failErr != nil {
		return Message{}, failErr
	}

	return Message{
		ServerID:      id,
		ProvisionalID: out.TempID,
		SenderID:      out.SenderID,
		ReceiverID:    out.ReceiverID,
		Content:       out.Content,
		Timestamp:     stamp,
	}, nil
}

func (f *fakePersister) ListMessages(context.Context, string, string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return append([]Message(nil), f.history...), nil
}

type fakeUploader struct {
	during func(storage.File)
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, file storage.File) (string, error) {
	if f.during != nil {
		f.during(file)
	}
	if f.err != nil {
		return "", f.err
	}
	return "https://files.local/" + file.Name, nil
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recorder collects observer snapshots.
type recorder struct {
	mu    sync.Mutex
	snaps [][]Message
}

func (r *recorder) observe(msgs []Message) {
	r.mu.Lock()
	r.snaps = append(r.snaps, msgs)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) at(i int) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[i]
}

var errBackend = errs.NewError(errs.ErrMessageSendFailed, "backend down")
