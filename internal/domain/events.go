package domain

// FrameType discriminates server-to-client frames. Every frame, both
// directions, is a single flat JSON object with a "type" field.
type FrameType string

const (
	FrameAuthenticated FrameType = "authenticated"
	FrameAuthError     FrameType = "auth_error"
	FrameRoomCreated   FrameType = "room_created"
	FrameRoomJoined    FrameType = "room_joined"
	FrameRoomNotFound  FrameType = "room_not_found"
	FrameUserJoined    FrameType = "user_joined"
	FrameUserLeft      FrameType = "user_left"
	FrameVoteConfirmed FrameType = "vote_confirmed"
	FrameVoteRejected  FrameType = "vote_rejected"
	FrameVoteUpdate    FrameType = "vote_update"
	FramePollClosed    FrameType = "poll_closed"
	FrameError         FrameType = "error"
)

// RejectReason is the programmatically-branchable reason carried by a
// vote_rejected frame.
type RejectReason string

const (
	RejectRoomNotFound  RejectReason = "room_not_found"
	RejectPollClosed    RejectReason = "poll_closed"
	RejectInvalidOption RejectReason = "invalid_option"
	RejectAlreadyVoted  RejectReason = "already_voted"
)

// PollInfo is the poll summary in a room_created frame.
type PollInfo struct {
	Title     string   `json:"title"`
	Options   []Option `json:"options"`
	IsOpen    bool     `json:"isOpen"`
	CreatedBy string   `json:"createdBy"`
}

// PollState is the full snapshot in a room_joined frame.
type PollState struct {
	Title       string   `json:"title"`
	Options     []Option `json:"options"`
	IsOpen      bool     `json:"isOpen"`
	TotalVoters int      `json:"totalVoters"`
	CreatedBy   string   `json:"createdBy"`
}

// Server -> client frames

type AuthenticatedFrame struct {
	Type FrameType `json:"type"`
	User Identity  `json:"user"`
}

type AuthErrorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

type RoomCreatedFrame struct {
	Type     FrameType `json:"type"`
	RoomCode string    `json:"roomCode"`
	Poll     PollInfo  `json:"poll"`
}

type RoomJoinedFrame struct {
	Type     FrameType `json:"type"`
	RoomCode string    `json:"roomCode"`
	Poll     PollState `json:"poll"`
}

type RoomNotFoundFrame struct {
	Type     FrameType `json:"type"`
	RoomCode string    `json:"roomCode"`
}

type UserJoinedFrame struct {
	Type        FrameType `json:"type"`
	UserName    string    `json:"userName"`
	ClientCount int       `json:"clientCount"`
}

type UserLeftFrame struct {
	Type        FrameType `json:"type"`
	UserName    string    `json:"userName"`
	ClientCount int       `json:"clientCount"`
}

type VoteConfirmedFrame struct {
	Type        FrameType `json:"type"`
	OptionIndex int       `json:"optionIndex"`
	VoterName   string    `json:"voterName"`
}

type VoteRejectedFrame struct {
	Type   FrameType    `json:"type"`
	Reason RejectReason `json:"reason"`
}

type VoteUpdateFrame struct {
	Type        FrameType `json:"type"`
	Options     []Option  `json:"options"`
	TotalVoters int       `json:"totalVoters"`
}

type PollClosedFrame struct {
	Type         FrameType `json:"type"`
	FinalResults []Option  `json:"finalResults"`
	TotalVoters  int       `json:"totalVoters"`
}

type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

// Frame constructors

func NewAuthenticated(user Identity) AuthenticatedFrame {
	return AuthenticatedFrame{Type: FrameAuthenticated, User: user}
}

func NewAuthError(message string) AuthErrorFrame {
	return AuthErrorFrame{Type: FrameAuthError, Message: message}
}

func NewRoomCreated(roomCode string, poll PollInfo) RoomCreatedFrame {
	return RoomCreatedFrame{Type: FrameRoomCreated, RoomCode: roomCode, Poll: poll}
}

func NewRoomJoined(roomCode string, poll PollState) RoomJoinedFrame {
	return RoomJoinedFrame{Type: FrameRoomJoined, RoomCode: roomCode, Poll: poll}
}

func NewRoomNotFound(roomCode string) RoomNotFoundFrame {
	return RoomNotFoundFrame{Type: FrameRoomNotFound, RoomCode: roomCode}
}

func NewUserJoined(userName string, clientCount int) UserJoinedFrame {
	return UserJoinedFrame{Type: FrameUserJoined, UserName: userName, ClientCount: clientCount}
}

func NewUserLeft(userName string, clientCount int) UserLeftFrame {
	return UserLeftFrame{Type: FrameUserLeft, UserName: userName, ClientCount: clientCount}
}

func NewVoteConfirmed(optionIndex int, voterName string) VoteConfirmedFrame {
	return VoteConfirmedFrame{Type: FrameVoteConfirmed, OptionIndex: optionIndex, VoterName: voterName}
}

func NewVoteRejected(reason RejectReason) VoteRejectedFrame {
	return VoteRejectedFrame{Type: FrameVoteRejected, Reason: reason}
}

func NewVoteUpdate(options []Option, totalVoters int) VoteUpdateFrame {
	return VoteUpdateFrame{Type: FrameVoteUpdate, Options: options, TotalVoters: totalVoters}
}

func NewPollClosed(finalResults []Option, totalVoters int) PollClosedFrame {
	return PollClosedFrame{Type: FramePollClosed, FinalResults: finalResults, TotalVoters: totalVoters}
}

func NewError(message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Message: message}
}
