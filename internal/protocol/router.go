package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"votaya-server/internal/app"
	"votaya-server/internal/domain"
)

// Conn is a connection as seen by the router: a room member plus its
// room binding. A connection holds at most one binding at a time.
type Conn interface {
	app.MemberConn
	BindRoom(code string)
	BoundRoom() string
}

// Router parses inbound frames, validates their shape and dispatches to
// the room registry. Every failure turns into a reply on the triggering
// connection; nothing here ever closes the connection or touches other
// rooms.
type Router struct {
	hub    *app.Hub
	logger *slog.Logger
}

// NewRouter creates a router backed by the given registry.
func NewRouter(hub *app.Hub, logger *slog.Logger) *Router {
	return &Router{hub: hub, logger: logger}
}

// Handle processes one inbound frame. Malformed frames and unknown
// types get a generic error reply and the connection stays up. A panic
// in a handler is contained to this frame.
func (r *Router) Handle(conn Conn, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic",
				"connID", conn.ID(),
				"panic", rec,
			)
			r.sendError(conn, "Internal server error")
		}
	}()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.sendError(conn, "Invalid message format")
		return
	}

	switch env.Type {
	case MsgCreatePoll:
		r.handleCreatePoll(conn, data)
	case MsgJoinRoom:
		r.handleJoinRoom(conn, data)
	case MsgCastVote:
		r.handleCastVote(conn, data)
	case MsgClosePoll:
		r.handleClosePoll(conn, data)
	default:
		r.sendError(conn, "Unknown message type: "+env.Type)
	}
}

// HandleDisconnect runs after the transport reports a closed
// connection. A connection that never bound a room is a no-op.
func (r *Router) HandleDisconnect(conn Conn) {
	code := conn.BoundRoom()
	if code == "" {
		return
	}

	r.hub.Disconnect(conn, code)

	r.logger.Info("member disconnected",
		"roomCode", code,
		"connID", conn.ID(),
		"user", conn.Identity().Name,
	)
}

func (r *Router) handleCreatePoll(conn Conn, data []byte) {
	var msg CreatePollMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.sendError(conn, "Invalid message format")
		return
	}

	if conn.BoundRoom() != "" {
		r.sendError(conn, "Already in a room")
		return
	}

	session, info, err := r.hub.CreateRoom(conn, msg.Title, msg.Options)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingTitle):
			r.sendError(conn, "Title is required")
		case errors.Is(err, domain.ErrNotEnoughOptions):
			r.sendError(conn, "At least 2 options are required")
		case errors.Is(err, domain.ErrTooManyOptions):
			r.sendError(conn, "Too many options")
		default:
			r.sendError(conn, "Failed to create room")
		}
		return
	}

	conn.BindRoom(session.Code())
	conn.Send(domain.NewRoomCreated(session.Code(), info))
}

func (r *Router) handleJoinRoom(conn Conn, data []byte) {
	var msg JoinRoomMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.sendError(conn, "Invalid message format")
		return
	}

	if strings.TrimSpace(msg.RoomCode) == "" {
		r.sendError(conn, "roomCode is required")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(msg.RoomCode))
	if bound := conn.BoundRoom(); bound != "" && bound != code {
		r.sendError(conn, "Already in a room")
		return
	}

	session, state, err := r.hub.JoinRoom(conn, code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			conn.Send(domain.NewRoomNotFound(msg.RoomCode))
			return
		}
		r.sendError(conn, "Failed to join room")
		return
	}

	conn.BindRoom(session.Code())
	conn.Send(domain.NewRoomJoined(session.Code(), state))
}

func (r *Router) handleCastVote(conn Conn, data []byte) {
	var msg CastVoteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.sendError(conn, "Invalid message format")
		return
	}

	if strings.TrimSpace(msg.RoomCode) == "" {
		r.sendError(conn, "roomCode is required")
		return
	}
	if msg.OptionIndex == nil {
		r.sendError(conn, "optionIndex is required")
		return
	}

	session, ok := r.hub.Session(msg.RoomCode)
	if !ok {
		conn.Send(domain.NewVoteRejected(domain.RejectRoomNotFound))
		return
	}

	if err := session.CastVote(conn, *msg.OptionIndex); err != nil {
		switch {
		case errors.Is(err, domain.ErrPollClosed):
			conn.Send(domain.NewVoteRejected(domain.RejectPollClosed))
		case errors.Is(err, domain.ErrInvalidOption):
			conn.Send(domain.NewVoteRejected(domain.RejectInvalidOption))
		case errors.Is(err, domain.ErrAlreadyVoted):
			conn.Send(domain.NewVoteRejected(domain.RejectAlreadyVoted))
		default:
			r.sendError(conn, "Failed to cast vote")
		}
		return
	}

	conn.Send(domain.NewVoteConfirmed(*msg.OptionIndex, conn.Identity().Name))
}

func (r *Router) handleClosePoll(conn Conn, data []byte) {
	var msg ClosePollMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.sendError(conn, "Invalid message format")
		return
	}

	if strings.TrimSpace(msg.RoomCode) == "" {
		r.sendError(conn, "roomCode is required")
		return
	}

	session, ok := r.hub.Session(msg.RoomCode)
	if !ok {
		r.sendError(conn, "Room not found")
		return
	}

	if err := session.Close(conn.Identity().ID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotCreator):
			r.sendError(conn, "Only the creator can close the poll")
		case errors.Is(err, domain.ErrAlreadyClosed):
			r.sendError(conn, "Poll already closed")
		default:
			r.sendError(conn, "Failed to close poll")
		}
		return
	}
}

// sendError sends a generic error frame to the connection.
func (r *Router) sendError(conn Conn, message string) {
	conn.Send(domain.NewError(message))
}
