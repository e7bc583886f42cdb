package app

import (
	"log/slog"
	"sync"

	"votaya-server/internal/domain"
)

// MemberConn is a live client connection as seen by a room. The ws
// transport provides the real implementation; tests use mocks.
type MemberConn interface {
	ID() string
	Identity() domain.Identity
	Send(message interface{}) error
	Close() error
}

// RoomSession wraps a room with its single-writer critical section and
// member fanout. Every mutation takes s.mu, and broadcasts go out while
// the lock is still held so no member can observe a tally lower than
// one it has already seen. Send is a non-blocking enqueue, so holding
// the lock across fanout never waits on a slow peer.
type RoomSession struct {
	room    *domain.Room
	mu      sync.Mutex
	members map[string]MemberConn // connection ID -> connection
	logger  *slog.Logger
}

// NewRoomSession creates a session around a freshly created room.
func NewRoomSession(room *domain.Room, logger *slog.Logger) *RoomSession {
	return &RoomSession{
		room:    room,
		members: make(map[string]MemberConn),
		logger:  logger,
	}
}

// Code returns the room code.
func (s *RoomSession) Code() string {
	return s.room.Code
}

// MemberCount returns the number of live member connections.
func (s *RoomSession) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// IsOpen reports whether the poll is still accepting votes.
func (s *RoomSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Open
}

// State returns the current poll snapshot.
func (s *RoomSession) State() domain.PollState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.State()
}

// AddCreator records the issuing connection as the room's sole initial
// member. Called under the hub lock at creation time.
func (s *RoomSession) AddCreator(conn MemberConn) domain.PollInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members[conn.ID()] = conn
	return s.room.Info()
}

// Join adds a connection to the membership and announces the new member
// count to everyone, joiner included. Joining twice is idempotent and
// announces nothing. Closed rooms stay joinable so late joiners can
// view the final results.
func (s *RoomSession) Join(conn MemberConn) domain.PollState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[conn.ID()]; ok {
		return s.room.State()
	}

	s.members[conn.ID()] = conn
	s.broadcast(domain.NewUserJoined(conn.Identity().Name, len(s.members)))

	return s.room.State()
}

// CastVote applies one vote and, once the ledger and tally have
// committed, broadcasts the updated counts to every member.
func (s *RoomSession) CastVote(conn MemberConn, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.room.CastVote(conn.Identity().ID, optionIndex); err != nil {
		return err
	}

	s.broadcast(domain.NewVoteUpdate(s.room.OptionsSnapshot(), s.room.TotalVoters()))

	s.logger.Info("vote cast",
		"roomCode", s.room.Code,
		"optionIndex", optionIndex,
		"totalVoters", s.room.TotalVoters(),
	)

	return nil
}

// Close ends the poll on behalf of the given identity and broadcasts
// the final results. Only the creator may close; closing twice fails
// and produces no second broadcast.
func (s *RoomSession) Close(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.IsCreator(callerID) {
		return domain.ErrNotCreator
	}

	if err := s.room.Close(); err != nil {
		return err
	}

	s.broadcast(domain.NewPollClosed(s.room.OptionsSnapshot(), s.room.TotalVoters()))

	s.logger.Info("poll closed", "roomCode", s.room.Code, "totalVoters", s.room.TotalVoters())

	return nil
}

// Disconnect removes a departed connection from the membership. If the
// creator leaves an open poll it closes implicitly, with the same
// broadcast as an explicit close. Returns true when the room is now
// empty and eligible for delayed deletion.
func (s *RoomSession) Disconnect(conn MemberConn) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[conn.ID()]; !ok {
		return false
	}

	delete(s.members, conn.ID())

	if s.room.IsCreator(conn.Identity().ID) && s.room.Open {
		s.room.Close()
		s.broadcast(domain.NewPollClosed(s.room.OptionsSnapshot(), s.room.TotalVoters()))
		s.logger.Info("poll closed by creator disconnect", "roomCode", s.room.Code)
	}

	if len(s.members) > 0 {
		s.broadcast(domain.NewUserLeft(conn.Identity().Name, len(s.members)))
		return false
	}

	return true
}

// Shutdown closes every member connection. Used when the hub stops.
func (s *RoomSession) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.members {
		conn.Close()
	}
	s.members = make(map[string]MemberConn)
}

// broadcast delivers one frame to every member, best effort per
// recipient: a dead or slow peer is logged and skipped, never allowed
// to fail delivery to the others. Caller must hold s.mu.
func (s *RoomSession) broadcast(frame interface{}) {
	for id, conn := range s.members {
		if err := conn.Send(frame); err != nil {
			s.logger.Debug("failed to send to member",
				"roomCode", s.room.Code,
				"connID", id,
				"error", err,
			)
		}
	}
}
