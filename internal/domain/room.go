package domain

import "time"

// Option is one votable choice in a poll. Index and Text are fixed at
// room creation; Votes only grows while the room is open.
type Option struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Room is one poll's live session. Mutations are plain methods so the
// state machine can be exercised without a transport; callers are
// responsible for serializing access (see app.RoomSession).
type Room struct {
	Code        string
	Title       string
	Options     []Option
	Voters      map[string]int // identity ID -> chosen option index
	CreatorID   string
	CreatorName string
	Open        bool
	CreatedAt   time.Time
}

// NewRoom creates an open room with options indexed in input order.
func NewRoom(code, title string, options []string, creator Identity) *Room {
	opts := make([]Option, len(options))
	for i, text := range options {
		opts[i] = Option{Index: i, Text: text}
	}

	return &Room{
		Code:        code,
		Title:       title,
		Options:     opts,
		Voters:      make(map[string]int),
		CreatorID:   creator.ID,
		CreatorName: creator.Name,
		Open:        true,
		CreatedAt:   time.Now(),
	}
}

// CastVote records a single vote for the given identity. The ledger
// entry and the tally increment commit together or not at all, and the
// checks run in a fixed order so the rejection reason is deterministic.
func (r *Room) CastVote(voterID string, optionIndex int) error {
	if !r.Open {
		return ErrPollClosed
	}

	if optionIndex < 0 || optionIndex >= len(r.Options) {
		return ErrInvalidOption
	}

	if _, voted := r.Voters[voterID]; voted {
		return ErrAlreadyVoted
	}

	r.Voters[voterID] = optionIndex
	r.Options[optionIndex].Votes++

	return nil
}

// Close transitions the room to its terminal closed state. Once closed,
// the vote ledger and tallies never change again.
func (r *Room) Close() error {
	if !r.Open {
		return ErrAlreadyClosed
	}

	r.Open = false
	return nil
}

// HasVoted reports whether the identity already has a ledger entry.
func (r *Room) HasVoted(voterID string) bool {
	_, ok := r.Voters[voterID]
	return ok
}

// IsCreator reports whether the identity created this room.
func (r *Room) IsCreator(id string) bool {
	return r.CreatorID == id
}

// TotalVoters returns the number of identities that have voted.
func (r *Room) TotalVoters() int {
	return len(r.Voters)
}

// OptionsSnapshot returns a copy of the options so broadcast payloads
// cannot observe later mutations.
func (r *Room) OptionsSnapshot() []Option {
	opts := make([]Option, len(r.Options))
	copy(opts, r.Options)
	return opts
}

// Info returns the poll summary sent with room_created.
func (r *Room) Info() PollInfo {
	return PollInfo{
		Title:     r.Title,
		Options:   r.OptionsSnapshot(),
		IsOpen:    r.Open,
		CreatedBy: r.CreatorName,
	}
}

// State returns the full poll snapshot sent with room_joined.
func (r *Room) State() PollState {
	return PollState{
		Title:       r.Title,
		Options:     r.OptionsSnapshot(),
		IsOpen:      r.Open,
		TotalVoters: r.TotalVoters(),
		CreatedBy:   r.CreatorName,
	}
}
