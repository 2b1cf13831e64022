package chat

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to websocket sessions.
type Handler struct {
	secret    string
	reader    DocumentReader
	ingestor  Ingestor
	responder Responder
	manager   *Manager
	maxTurns  int
	logger    *slog.Logger

	upgrader websocket.Upgrader
}

func NewHandler(secret string, reader DocumentReader, ingestor Ingestor, responder Responder, manager *Manager, maxTurns int, logger *slog.Logger) *Handler {
	return &Handler{
		secret:    secret,
		reader:    reader,
		ingestor:  ingestor,
		responder: responder,
		manager:   manager,
		maxTurns:  maxTurns,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Auth happens in-band via the shared secret, not per-origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := NewSession(conn, h.secret, h.reader, h.ingestor, h.responder, h.maxTurns, h.logger)
	h.manager.Add(session)
	defer h.manager.Remove(session)

	session.Run(r.Context())
}
