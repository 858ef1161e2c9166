package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/randx"
)

const maxUploadBytes = 5 << 20

func (s *Server) handleRegisterOrLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if input.Name == "" || input.Email == "" || input.Password == "" {
		respondError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	s.mu.Lock()
	var acct *account
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, input.Email) {
			acct = a
		}
	}

	message := "Login successful"
	if acct == nil {
		acct = &account{UID: randx.MessageID(), Name: input.Name, Email: input.Email, password: input.Password}
		s.accounts = append(s.accounts, acct)
		message = "User registered successfully"
	} else if acct.password != input.Password {
		s.mu.Unlock()
		respondError(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	acct.Online = true
	view := *acct
	s.mu.Unlock()

	token, err := jwt.GenerateToken(&jwt.Payload{UserID: view.UID, Name: view.Name}, Secret, jwt.SessionExpiration)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"user":    view,
		"token":   token,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	users := make([]account, 0, len(s.accounts))
	for _, a := range s.accounts {
		users = append(users, *a)
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var input struct {
		SenderID   string `json:"senderId"`
		ReceiverID string `json:"receiverId"`
		Message    string `json:"message"`
		TempID     string `json:"tempId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if input.SenderID == "" || input.ReceiverID == "" || input.Message == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	s.mu.Lock()
	fail, delay := s.failSends, s.sendDelay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if fail {
		respondError(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	stored := StoredMessage{
		ID:         randx.MessageID(),
		TempID:     input.TempID,
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		Message:    input.Message,
		Timestamp:  time.Now().Unix(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, stored)
	s.mu.Unlock()

	respondJSON(w, http.StatusCreated, stored)
}

// handleListMessages returns history with timestamps in the {_seconds} object form.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	a, b := chi.URLParam(r, "a"), chi.URLParam(r, "b")

	type seconds struct {
		Seconds     int64 `json:"_seconds"`
		Nanoseconds int64 `json:"_nanoseconds"`
	}
	type historyMessage struct {
		StoredMessage
		Timestamp seconds `json:"timestamp"`
	}

	s.mu.Lock()
	out := make([]historyMessage, 0)
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, historyMessage{StoredMessage: m, Timestamp: seconds{Seconds: m.Timestamp}})
		}
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) > maxUploadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	name := fmt.Sprintf("%s%s", randx.MessageID(), strings.ToLower(filepath.Ext(header.Filename)))

	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]string{"url": s.URL + "/files/" + name})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.files[chi.URLParam(r, "name")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}
