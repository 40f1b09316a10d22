package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/moodlog-backend/internal/services"
	"github.com/AnshRaj112/moodlog-backend/pkg/ctxutil"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 90 * time.Second
	pingPeriod   = pongWait * 2 / 3
	maxReadBytes = 4 * 1024
)

type eventSubscriber interface {
	Subscribe(owner string) (<-chan services.EntryEvent, func())
}

// EventsHandler streams the caller's entry events over a WebSocket.
type EventsHandler struct {
	hub      eventSubscriber
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewEventsHandler creates an EventsHandler accepting handshakes from
// allowedOrigins. Requests without an Origin header (non-browser clients) pass.
func NewEventsHandler(hub eventSubscriber, allowedOrigins []string, logger *slog.Logger) *EventsHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[strings.ToLower(origin)]
				return ok
			},
		},
		log: logger.With("handler", "entry_events"),
	}
}

// Stream upgrades the connection and forwards the caller's entry events until
// either side closes. Clients only read; anything they send is discarded.
// GET /api/entry/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ctxutil.SubjectFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.DebugContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe(ownerID)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxReadBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
