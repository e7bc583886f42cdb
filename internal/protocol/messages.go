package protocol

// Client -> server message types
const (
	MsgCreatePoll = "create_poll"
	MsgJoinRoom   = "join_room"
	MsgCastVote   = "cast_vote"
	MsgClosePoll  = "close_poll"
)

// Envelope carries only the discriminator; the router re-parses the
// frame into the operation-specific shape once the type is known.
type Envelope struct {
	Type string `json:"type"`
}

// CreatePollMessage asks for a new room with the given poll definition.
type CreatePollMessage struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

// JoinRoomMessage adds the connection to an existing room.
type JoinRoomMessage struct {
	RoomCode string `json:"roomCode"`
}

// CastVoteMessage casts one vote. OptionIndex is a pointer so a missing
// field is distinguishable from index 0.
type CastVoteMessage struct {
	RoomCode    string `json:"roomCode"`
	OptionIndex *int   `json:"optionIndex"`
}

// ClosePollMessage ends the poll; creator only.
type ClosePollMessage struct {
	RoomCode string `json:"roomCode"`
}
