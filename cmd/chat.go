package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"duochat/internal/app/chat"
	"duochat/internal/app/socket"
	"duochat/internal/app/storage"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/limiter"
	"duochat/internal/pkg/logx"
	"duochat/internal/view"
)

// chatCmd opens an interactive conversation.
var chatCmd = &cobra.Command{
	Use:   "chat <contact>",
	Short: "Chat with a contact",
	Long: `Open a live conversation with a contact, given by id or display name.

Type a line and press enter to send it. Commands:
  /attach <path> [caption]  send an image (jpg, png, gif, webp, max 5 MB)
  /close                    close the chat
  /help                     show this help`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

const chatHelp = "/attach <path> [caption], /close, /help"

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, client, err := signedIn()
	if err != nil {
		return err
	}
	defer client.Close()

	peer, err := findPeer(cmd, client, sess, args[0])
	if err != nil {
		return err
	}

	token := sess.Token
	conn := socket.New(socket.Config{
		URL:               rt.cfg.SocketURL,
		Token:             func() string { return token },
		ReconnectAttempts: rt.cfg.ReconnectAttempts,
		ReconnectDelay:    rt.cfg.ReconnectDelay,
	})

	r := view.NewRenderer(sess.UID, names(sess, peer), rt.styles, nil)
	p := &printer{out: cmd.OutOrStdout(), r: r, printed: make(map[string]bool)}

	stopStates := conn.OnStateChange(func(s socket.State) {
		p.line(r.State(s))
	})
	defer stopStates()

	if err := conn.Start(ctx); err != nil {
		return err
	}
	defer conn.Close()

	uploader, err := storage.NewUploader(ctx, rt.cfg, client)
	if err != nil {
		return err
	}

	mgr := chat.NewManager(sess.UID, chat.Deps{
		Persister: client,
		Uploader:  uploader,
		Channel:   chat.NewSocketChannel(conn),
		Limiter:   limiter.NewKeyed(rt.cfg.SubmitInterval),
	})
	defer mgr.Shutdown()

	if err := mgr.WatchSession(ctx, rt.store, func() {
		p.line(r.Info("Signed out. Closing the chat."))
		cancel()
	}); err != nil {
		logx.Warn("Session changes will not be noticed", "error", err.Error())
	}

	conv, err := mgr.Open(peer.ID, p.update)
	if err != nil {
		return err
	}

	p.line(r.Info(fmt.Sprintf("Chatting with %s. Type /help for commands.", peer.Name)))

	if err := conv.Load(ctx); err != nil {
		p.line(r.Notice(err))
	}
	p.start(conv)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	linesCtx, stopLines := context.WithCancel(ctx)
	defer stopLines()
	lines := readLines(linesCtx, cmd.InOrStdin())

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			draft, done, err := parseInput(line)
			if err != nil {
				p.line(r.Notice(err))
				continue
			}
			if done {
				mgr.CloseActive()
				p.line(r.Info("Chat closed."))
				return nil
			}
			if draft == nil {
				continue
			}

			inflight.Add(1)
			go func() {
				defer inflight.Done()
				if draft.Attachment != nil {
					if c, ok := draft.Attachment.Body.(io.Closer); ok {
						defer c.Close()
					}
				}
				if _, err := conv.Submit(ctx, *draft); err != nil {
					p.line(r.Notice(err))
				}
			}()
		}
	}
}

// parseInput interprets one line. done is set for /close and /quit.
func parseInput(line string) (*chat.Draft, bool, error) {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return nil, false, nil

	case line == "/close" || line == "/quit":
		return nil, true, nil

	case line == "/help":
		return nil, false, fmt.Errorf("commands: %s", chatHelp)

	case strings.HasPrefix(line, "/attach"):
		fields := strings.Fields(strings.TrimPrefix(line, "/attach"))
		if len(fields) == 0 {
			return nil, false, errs.NewError(errs.ErrInvalidParams)
		}

		f, err := openAttachment(fields[0])
		if err != nil {
			return nil, false, err
		}

		return &chat.Draft{Text: strings.Join(fields[1:], " "), Attachment: f}, false, nil
	}

	return &chat.Draft{Text: line}, false, nil
}

func openAttachment(path string) (*storage.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	file := &storage.File{
		Name:     filepath.Base(path),
		MimeType: chat.MIMEFromName(path),
		Size:     info.Size(),
		Body:     f,
	}

	if err := chat.ValidateAttachment(file); err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

// readLines streams r line by line. The channel closes at EOF or once ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// printer writes the conversation as a running log.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	r       *view.Renderer
	ready   bool
	printed map[string]bool
	lastDay string
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

// start prints the loaded conversation and begins following changes.
func (p *printer) start(conv *chat.Conversation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := conv.Messages()
	fmt.Fprintln(p.out, p.r.Conversation(msgs))
	for _, m := range msgs {
		p.printed[p.key(m)] = true
	}
	if groups := view.GroupByDay(msgs, nil); len(groups) > 0 {
		p.lastDay = groups[len(groups)-1].Label
	}
	p.ready = true
}

// update prints entries not shown yet. A pending entry is shown once, and again when confirmed.
func (p *printer) update(msgs []chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return
	}

	for _, m := range msgs {
		k := p.key(m)
		if p.printed[k] {
			continue
		}
		p.printed[k] = true

		if groups := view.GroupByDay([]chat.Message{m}, nil); groups[0].Label != p.lastDay {
			p.lastDay = groups[0].Label
			fmt.Fprintln(p.out, p.r.DayHeader(p.lastDay))
		}
		fmt.Fprintln(p.out, p.r.Message(m))
	}
}

func (p *printer) key(m chat.Message) string {
	k := chat.ReconciliationKey(m).String()
	if m.Uploading != "" {
		k += "#uploading"
	}
	return k
}
