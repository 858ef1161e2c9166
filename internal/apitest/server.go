/*
Package apitest runs an in-process chat backend for tests.

It serves the REST contract the client consumes (register-or-login, users,
send-message, messages, upload) and a websocket endpoint with room-scoped
broadcast. Hooks let tests fail or delay sends, push server events and drop
every socket connection.
*/
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/logx"
)

// Secret signs the tokens minted by the backend.
const Secret = "apitest-secret"

// Envelope mirrors the socket frame.
type Envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// StoredMessage is a message as persisted by the backend.
type StoredMessage struct {
	ID         string `json:"id"`
	TempID     string `json:"tempId,omitempty"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type account struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Online   bool   `json:"online"`
	password string
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	// RequireAuth rejects API and socket calls without a valid bearer token.
	RequireAuth bool

	mu        sync.Mutex
	accounts  []*account
	messages  []StoredMessage
	files     map[string][]byte
	failSends bool
	sendDelay time.Duration
	emitted   []Envelope

	peers map[*peer]struct{}
	rooms map[string]map[*peer]struct{}

	upgrader websocket.Upgrader
}

// New starts a backend and closes it when t ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		files: make(map[string][]byte),
		peers: make(map[*peer]struct{}),
		rooms: make(map[string]map[*peer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.Server = httptest.NewServer(s.router())
	t.Cleanup(func() {
		s.DropConnections()
		s.Server.Close()
	})

	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logx.RequestLogger("backend"))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/register-or-login", s.handleRegisterOrLogin)

		api.Group(func(authed chi.Router) {
			authed.Use(s.authenticate)
			authed.Get("/users", s.handleListUsers)
			authed.Post("/send-message", s.handleSendMessage)
			authed.Get("/messages/{a}/{b}", s.handleListMessages)
			authed.Post("/upload", s.handleUpload)
		})
	})

	r.Get("/files/{name}", s.handleFile)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// APIURL is the base URL of the REST API.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// SocketURL is the websocket endpoint.
func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// FailSends makes every send-message call fail with a 500 while on is true.
func (s *Server) FailSends(on bool) {
	s.mu.Lock()
	s.failSends = on
	s.mu.Unlock()
}

// SetSendDelay holds every send-message response for d.
func (s *Server) SetSendDelay(d time.Duration) {
	s.mu.Lock()
	s.sendDelay = d
	s.mu.Unlock()
}

// SetOnline sets the online flag reported for uid.
func (s *Server) SetOnline(uid string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.UID == uid {
			a.Online = online
		}
	}
}

// Messages returns a copy of every stored message.
func (s *Server) Messages() []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]StoredMessage(nil), s.messages...)
}

// Emitted returns the privateMessage frames clients have sent.
func (s *Server) Emitted() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Envelope(nil), s.emitted...)
}

func (s *Server) token(r *http.Request) (*jwt.Payload, bool) {
	tok, ok := jwt.TokenFromHeader(r.Header.Get(jwt.BearerHeader))
	if !ok {
		return nil, false
	}
	payload, err := jwt.ParseToken(tok, Secret)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RequireAuth {
			if _, ok := s.token(r); !ok {
				respondError(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Error(err, "Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
