package apitest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"duochat/internal/pkg/logx"
)

const writeWait = 5 * time.Second

// peer is one connected socket client.
type peer struct {
	ws    *websocket.Conn
	mu    sync.Mutex
	rooms map[string]struct{}
}

func (p *peer) write(env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.ws.WriteJSON(env)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.RequireAuth {
		if _, ok := s.token(r); !ok {
			respondError(w, http.StatusUnauthorized, "Invalid or missing token")
			return
		}
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	p := &peer{ws: ws, rooms: make(map[string]struct{})}

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	defer s.removePeer(p)

	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			return
		}
		s.handleEnvelope(p, env)
	}
}

func (s *Server) handleEnvelope(p *peer, env Envelope) {
	switch env.Event {
	case "joinRoom":
		s.mu.Lock()
		members, ok := s.rooms[env.Room]
		if !ok {
			members = make(map[*peer]struct{})
			s.rooms[env.Room] = members
		}
		members[p] = struct{}{}
		p.rooms[env.Room] = struct{}{}
		s.mu.Unlock()

	case "leaveRoom":
		s.mu.Lock()
		s.leaveLocked(p, env.Room)
		s.mu.Unlock()

	case "privateMessage":
		s.mu.Lock()
		s.emitted = append(s.emitted, env)
		s.mu.Unlock()
		s.broadcast(env)

	default:
		logx.Warn("Unsupported socket event", "event", env.Event)
	}
}

func (s *Server) leaveLocked(p *peer, room string) {
	delete(p.rooms, room)
	if members, ok := s.rooms[room]; ok {
		delete(members, p)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
}

func (s *Server) removePeer(p *peer) {
	s.mu.Lock()
	for room := range p.rooms {
		s.leaveLocked(p, room)
	}
	delete(s.peers, p)
	s.mu.Unlock()

	_ = p.ws.Close()
}

// broadcast sends env to every member of its room, the sender included.
func (s *Server) broadcast(env Envelope) {
	s.mu.Lock()
	targets := make([]*peer, 0, len(s.rooms[env.Room]))
	for p := range s.rooms[env.Room] {
		targets = append(targets, p)
	}
	s.mu.Unlock()

	for _, p := range targets {
		if err := p.write(env); err != nil {
			logx.Warn("Failed to deliver socket frame", "room", env.Room, "error", err.Error())
		}
	}
}

// Push delivers a privateMessage carrying data to room.
func (s *Server) Push(room string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.broadcast(Envelope{Event: "privateMessage", Room: room, Data: raw})
	return nil
}

// Members returns the number of sockets joined to room.
func (s *Server) Members(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms[room])
}

// Peers returns the number of open sockets.
func (s *Server) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// DropConnections closes every open socket.
func (s *Server) DropConnections() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		_ = p.ws.Close()
	}
}
