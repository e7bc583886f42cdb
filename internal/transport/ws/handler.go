package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"votaya-server/internal/auth"
	"votaya-server/internal/domain"
	"votaya-server/internal/protocol"
)

// Handler upgrades connections and runs the authentication handshake.
// The bearer token travels as a ?token= query parameter; the auth_error
// reply requires a completed upgrade, so verification happens just
// after it. No room operation is reachable without a verified identity.
type Handler struct {
	router   *protocol.Router
	verifier *auth.Verifier
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(router *protocol.Router, verifier *auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		router:   router,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Native mobile clients send no browser Origin
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	identity, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.rejectConn(conn, err)
		return
	}

	client := NewClient(conn, h.router, uuid.New().String(), identity, h.logger)

	h.logger.Info("websocket connected",
		"connID", client.ID(),
		"user", identity.Name,
	)

	client.Send(domain.NewAuthenticated(identity))
	client.Run()
}

// rejectConn tells the peer why authentication failed, then forcibly
// closes the connection. Fatal: no recovery is attempted.
func (h *Handler) rejectConn(conn *websocket.Conn, err error) {
	h.logger.Warn("connection rejected", "reason", err)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(domain.NewAuthError(authErrorMessage(err)))
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		time.Now().Add(writeWait),
	)
	conn.Close()
}

func authErrorMessage(err error) string {
	switch err {
	case auth.ErrMissingToken:
		return "Authentication token is required"
	case auth.ErrExpiredToken:
		return "Authentication token expired"
	default:
		return "Invalid authentication token"
	}
}
