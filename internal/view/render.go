package view

import (
	"fmt"
	"strings"
	"time"

	"duochat/internal/app/chat"
	"duochat/internal/app/socket"
	"duochat/internal/app/user"
	"duochat/internal/pkg/errs"
)

// DayLayout formats day headers.
const DayLayout = "Jan 02, 2006"

// DayGroup is a run of consecutive messages sent on the same calendar day.
type DayGroup struct {
	Label    string
	Messages []chat.Message
}

// GroupByDay splits msgs into runs by calendar day in loc, keeping arrival order.
// Days are derived from each message's own timestamp every time.
func GroupByDay(msgs []chat.Message, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []DayGroup
	for _, m := range msgs {
		label := m.Timestamp.Time().In(loc).Format(DayLayout)
		if n := len(groups); n > 0 && groups[n-1].Label == label {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, DayGroup{Label: label, Messages: []chat.Message{m}})
	}
	return groups
}

// Renderer turns chat state into terminal lines for the signed-in user.
type Renderer struct {
	styles Styles
	selfID string
	names  map[string]string
	loc    *time.Location
}

// NewRenderer creates a Renderer. names maps user ids to display names.
func NewRenderer(selfID string, names map[string]string, styles Styles, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	if names == nil {
		names = map[string]string{}
	}
	return &Renderer{styles: styles, selfID: selfID, names: names, loc: loc}
}

func (r *Renderer) name(id string) string {
	if n, ok := r.names[id]; ok && n != "" {
		return n
	}
	return id
}

// Message renders one message line.
func (r *Renderer) Message(m chat.Message) string {
	var b strings.Builder

	b.WriteString(r.styles.Time.Render(m.Timestamp.Time().In(r.loc).Format("15:04")))
	b.WriteByte(' ')

	if m.SenderID == r.selfID {
		b.WriteString(r.styles.Self.Render("you"))
	} else {
		b.WriteString(r.styles.Peer.Render(r.name(m.SenderID)))
	}
	b.WriteString(": ")

	switch {
	case m.IsImage():
		b.WriteString(r.styles.Image.Render("[image] " + m.Content))
	case m.Content != "":
		b.WriteString(r.styles.Body.Render(m.Content))
	}

	switch {
	case m.Uploading != "":
		b.WriteString(" " + r.styles.Pending.Render(fmt.Sprintf("(uploading %s...)", m.Uploading)))
	case m.Pending:
		b.WriteString(" " + r.styles.Pending.Render("(sending...)"))
	}

	return b.String()
}

// DayHeader renders the separator shown above the messages of a day.
func (r *Renderer) DayHeader(label string) string {
	return r.styles.DayHeader.Render("-- " + label + " --")
}

// Conversation renders msgs under day headers.
func (r *Renderer) Conversation(msgs []chat.Message) string {
	if len(msgs) == 0 {
		return r.styles.Info.Render("No messages yet. Say hello!")
	}

	var lines []string
	for _, g := range GroupByDay(msgs, r.loc) {
		lines = append(lines, r.DayHeader(g.Label))
		for _, m := range g.Messages {
			lines = append(lines, r.Message(m))
		}
	}
	return strings.Join(lines, "\n")
}

// Contact renders one sidebar entry.
func (r *Renderer) Contact(u user.User) string {
	if u.Online {
		return r.styles.Online.Render("● ") + u.Name + r.styles.Online.Render(" (online)")
	}
	return r.styles.Offline.Render("○ ") + u.Name
}

// Contacts renders the contact list.
func (r *Renderer) Contacts(users []user.User) string {
	if len(users) == 0 {
		return r.styles.Info.Render("No other users yet.")
	}

	lines := make([]string, len(users))
	for i, u := range users {
		lines[i] = r.Contact(u)
	}
	return strings.Join(lines, "\n")
}

// Notice renders a dismissible error notification.
func (r *Renderer) Notice(err error) string {
	return r.styles.Notice.Render("! " + errs.UserMessage(err))
}

// Info renders an informational line.
func (r *Renderer) Info(msg string) string {
	return r.styles.Info.Render(msg)
}

// State renders a connectivity change.
func (r *Renderer) State(s socket.State) string {
	switch s.(type) {
	case socket.Connected:
		return r.styles.Online.Render("* connected")
	case socket.Failed:
		return r.styles.Notice.Render("* " + s.String())
	default:
		return r.styles.Offline.Render("* " + s.String())
	}
}
