/*
Package api is the client of the chat persistence API.

It covers registration, the user list, message creation, conversation history
and file upload. Every call logs through logx and authenticates with the session
token when one is available.
*/
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"duochat/internal/app/chat"
	"duochat/internal/app/session"
	"duochat/internal/app/user"
	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
	"duochat/internal/pkg/req"
	"duochat/internal/pkg/resp"
)

// Client talks to the chat API rooted at a base URL.
type Client struct {
	baseURL   string
	http      *http.Client
	transport *http.Transport
}

// New returns a Client for baseURL. token supplies the bearer token per request and may be nil.
func New(baseURL string, timeout time.Duration, token func() string) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
		http: &http.Client{
			Timeout: timeout,
			Transport: &jwt.BearerTransport{
				Token: token,
				Next:  logx.RoundTripper(transport),
			},
		},
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

func (c *Client) endpoint(elem ...string) (string, error) {
	escaped := make([]string, len(elem))
	for i, e := range elem {
		escaped[i] = url.PathEscape(e)
	}
	return url.JoinPath(c.baseURL, escaped...)
}

// do sends r and decodes the response into dst, mapping failures onto fallbackCode.
func (c *Client) do(r *http.Request, dst any, fallbackCode int) error {
	res, err := c.http.Do(r)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return errs.WrapDetail(err, fallbackCode, "the server could not be reached")
	}
	return resp.DecodeJSON(res, dst, fallbackCode)
}

// Credentials are the registration form fields.
type Credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the result of RegisterOrLogin.
type Registration struct {
	// Message is the server's greeting, shown to the user.
	Message string
	Session session.Session
}

// RegisterOrLogin creates the account or signs in to an existing one.
// Every credential field is required.
func (c *Client) RegisterOrLogin(ctx context.Context, cred Credentials) (*Registration, error) {
	cred.Name = strings.TrimSpace(cred.Name)
	cred.Email = strings.TrimSpace(cred.Email)
	if cred.Name == "" || cred.Email == "" || cred.Password == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	u, err := c.endpoint("register-or-login")
	if err != nil {
		return nil, err
	}

	r, err := req.JSON(ctx, http.MethodPost, u, cred)
	if err != nil {
		return nil, err
	}

	var out struct {
		Message string    `json:"message"`
		User    user.User `json:"user"`
		Token   string    `json:"token"`
	}
	if err := c.do(r, &out, errs.ErrRegistrationFailed); err != nil {
		return nil, err
	}

	if out.User.ID == "" {
		return nil, errs.NewError(errs.ErrRegistrationFailed, "the server returned no user id")
	}

	name := out.User.Name
	if name == "" {
		name = cred.Name
	}

	return &Registration{
		Message: out.Message,
		Session: session.Session{
			UID:         out.User.ID,
			Name:        name,
			DisplayName: name,
			Email:       cred.Email,
			Token:       out.Token,
		},
	}, nil
}

// ListUsers returns every registered user.
func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	u, err := c.endpoint("users")
	if err != nil {
		return nil, err
	}

	r, err := req.JSON(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var users []user.User
	if err := c.do(r, &users, errs.ErrServiceUnavailable); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateMessage persists out and returns the stored message.
func (c *Client) CreateMessage(ctx context.Context, out chat.Outgoing) (chat.Message, error) {
	u, err := c.endpoint("send-message")
	if err != nil {
		return chat.Message{}, err
	}

	r, err := req.JSON(ctx, http.MethodPost, u, out)
	if err != nil {
		return chat.Message{}, err
	}

	var stored chat.Message
	if err := c.do(r, &stored, errs.ErrMessageSendFailed); err != nil {
		return chat.Message{}, err
	}

	if stored.ServerID == "" {
		return chat.Message{}, errs.NewError(errs.ErrMessageSendFailed, "the server returned no message id")
	}

	// Some deployments echo only the id and timestamp.
	if stored.SenderID == "" {
		stored.SenderID = out.SenderID
	}
	if stored.ReceiverID == "" {
		stored.ReceiverID = out.ReceiverID
	}
	if stored.Content == "" {
		stored.Content = out.Content
	}

	return stored, nil
}

// ListMessages returns the history between a and b in server order.
func (c *Client) ListMessages(ctx context.Context, a, b string) ([]chat.Message, error) {
	u, err := c.endpoint("messages", a, b)
	if err != nil {
		return nil, err
	}

	r, err := req.JSON(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var msgs []chat.Message
	if err := c.do(r, &msgs, errs.ErrHistoryFetchFailed); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Upload posts body as a multipart file and returns its URL.
func (c *Client) Upload(ctx context.Context, fileName, mimeType string, body io.Reader) (string, error) {
	u, err := c.endpoint("upload")
	if err != nil {
		return "", err
	}

	r, err := req.Multipart(ctx, u, "file", fileName, mimeType, body)
	if err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(r, &out, errs.ErrFileStorageFailed); err != nil {
		return "", err
	}

	if out.URL == "" {
		return "", errs.NewError(errs.ErrFileStorageFailed)
	}
	return out.URL, nil
}
