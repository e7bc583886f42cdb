package app

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"votaya-server/internal/domain"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 6

	// DefaultMaxOptions caps how many options a poll may carry
	DefaultMaxOptions = 20

	// DefaultGracePeriod is how long an empty room survives before deletion
	DefaultGracePeriod = 5 * time.Minute
)

// RoomCodeChars are characters used for room codes (no ambiguous chars)
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Options configures a hub. Zero values fall back to the defaults.
type Options struct {
	CodeLength  int
	MaxOptions  int
	GracePeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.CodeLength <= 0 {
		o.CodeLength = DefaultRoomCodeLength
	}
	if o.MaxOptions <= 0 {
		o.MaxOptions = DefaultMaxOptions
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	return o
}

// Hub is the process-wide room registry. It owns code generation,
// lookup and removal; generation plus insertion happens under one lock
// so two rooms can never acquire the same code. Empty rooms are deleted
// by keyed, cancellable timers that re-check membership when they fire.
type Hub struct {
	sessions map[string]*RoomSession
	reapers  map[string]*time.Timer
	mu       sync.Mutex
	opts     Options
	logger   *slog.Logger
	closed   bool
}

// NewHub creates an empty room registry.
func NewHub(opts Options, logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*RoomSession),
		reapers:  make(map[string]*time.Timer),
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// CreateRoom validates the poll definition, allocates a room under a
// fresh code and records the issuing connection as creator and sole
// member. Option texts are trimmed and blank entries dropped before the
// minimum-count check.
func (h *Hub) CreateRoom(conn MemberConn, title string, options []string) (*RoomSession, domain.PollInfo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.PollInfo{}, domain.ErrMissingTitle
	}

	usable := make([]string, 0, len(options))
	for _, opt := range options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			usable = append(usable, trimmed)
		}
	}

	if len(usable) < 2 {
		return nil, domain.PollInfo{}, domain.ErrNotEnoughOptions
	}
	if len(usable) > h.opts.MaxOptions {
		return nil, domain.PollInfo{}, domain.ErrTooManyOptions
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Generate unique room code
	var code string
	for attempts := 0; attempts < 10; attempts++ {
		code = h.generateRoomCode()
		if _, exists := h.sessions[code]; !exists {
			break
		}
	}
	if _, exists := h.sessions[code]; exists {
		return nil, domain.PollInfo{}, fmt.Errorf("failed to generate unique room code")
	}

	session := NewRoomSession(domain.NewRoom(code, title, usable, conn.Identity()), h.logger)
	info := session.AddCreator(conn)
	h.sessions[code] = session

	h.logger.Info("room created",
		"roomCode", code,
		"title", title,
		"options", len(usable),
		"creator", conn.Identity().Name,
	)

	return session, info, nil
}

// JoinRoom adds the connection to the room identified by code. Lookup
// is case-insensitive. The membership change happens under the registry
// lock so a pending reap cannot delete the room out from under a
// joiner.
func (h *Hub) JoinRoom(conn MemberConn, code string) (*RoomSession, domain.PollState, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[code]
	if !ok {
		return nil, domain.PollState{}, domain.ErrRoomNotFound
	}

	h.cancelReap(code)
	state := session.Join(conn)

	return session, state, nil
}

// Session returns the room session for a code, if registered.
func (h *Hub) Session(code string) (*RoomSession, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[code]
	return session, ok
}

// Disconnect reacts to the loss of a connection bound to a room:
// membership cleanup, implicit closure if the creator left, and delayed
// deletion once the room is empty.
func (h *Hub) Disconnect(conn MemberConn, code string) {
	code = strings.ToUpper(code)

	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[code]
	if !ok {
		return
	}

	if session.Disconnect(conn) {
		h.scheduleReap(code)
	}
}

// Stats returns the number of registered rooms and connected members.
func (h *Hub) Stats() (rooms, members int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms = len(h.sessions)
	for _, session := range h.sessions {
		members += session.MemberCount()
	}
	return rooms, members
}

// Close shuts down the hub, all pending reap timers and all sessions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for code, timer := range h.reapers {
		timer.Stop()
		delete(h.reapers, code)
	}

	for code, session := range h.sessions {
		session.Shutdown()
		delete(h.sessions, code)
	}
}

// scheduleReap arms the delayed-deletion timer for a now-empty room,
// replacing any timer already pending. Caller must hold h.mu.
func (h *Hub) scheduleReap(code string) {
	if h.closed {
		return
	}

	if timer, ok := h.reapers[code]; ok {
		timer.Stop()
	}

	h.reapers[code] = time.AfterFunc(h.opts.GracePeriod, func() {
		h.reap(code)
	})

	h.logger.Info("room empty, deletion scheduled", "roomCode", code, "grace", h.opts.GracePeriod)
}

// cancelReap disarms a pending deletion timer. Caller must hold h.mu.
func (h *Hub) cancelReap(code string) {
	if timer, ok := h.reapers[code]; ok {
		timer.Stop()
		delete(h.reapers, code)
	}
}

// reap runs at grace-window expiry. Membership is re-checked under the
// registry lock: a room repopulated during the window survives.
func (h *Hub) reap(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.reapers, code)

	session, ok := h.sessions[code]
	if !ok || session.MemberCount() > 0 {
		return
	}

	delete(h.sessions, code)
	h.logger.Info("empty room deleted", "roomCode", code)
}

// generateRoomCode generates a random room code
func (h *Hub) generateRoomCode() string {
	b := make([]byte, h.opts.CodeLength)
	rand.Read(b)

	code := make([]byte, h.opts.CodeLength)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}

	return string(code)
}
