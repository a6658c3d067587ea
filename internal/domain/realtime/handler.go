package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/dashboard"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Handler upgrades /ws requests into realtime sessions
type Handler struct {
	hub       *Hub
	dashboard *dashboard.Service
	upgrader  websocket.Upgrader
}

func NewHandler(hub *Hub, dashboardService *dashboard.Service, allowedOrigins []string) *Handler {
	return &Handler{
		hub:       hub,
		dashboard: dashboardService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowedOrigins) == 0 || origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || origin == allowed {
						return true
					}
				}
				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	// Registered before the view loads; events committed meanwhile wait in Send.
	client := NewConnection(actor.UserID, nil)
	h.hub.Register(client)

	view, err := h.dashboard.LoadView(r.Context(), actor)
	if err != nil {
		h.hub.Unregister(client)
		errorhandler.Handle(r.Context(), w, err, budget.ErrorMappings)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unregister(client)
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client.Conn = conn

	go h.reader(client)
	go h.writer(client, view)
}

// reader drains client frames so pongs and close frames are processed.
func (h *Handler) reader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("WebSocket read error")
			}
			return
		}
	}
}

// writer is the only goroutine touching view.
func (h *Handler) writer(client *Connection, view *dashboard.View) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	if err := writeMetrics(client.Conn, view.Metrics()); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(ev); err != nil {
				return
			}

			changed, err := view.Apply(ev.Type, ev.Data)
			if err != nil {
				log.Warn().Err(err).Str("user_id", client.UserID.String()).Msg("Realtime view rejected event")
				continue
			}
			if changed {
				if err := writeMetrics(client.Conn, view.Metrics()); err != nil {
					return
				}
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeMetrics(conn *websocket.Conn, m dashboard.Metrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Event{Type: EventMetricsUpdated, Data: data})
}

// Routes returns the /ws router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.ServeWS)
	return r
}
