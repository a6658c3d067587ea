package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EventMetricsUpdated is sent after a pushed event changed the session's metrics
const EventMetricsUpdated = "metrics.updated"

const userEventsChannel = "budget:user_events"

var (
	wsConnectionsGauge   = expvar.NewInt("realtime_connections")
	wsEventsSentTotal    = expvar.NewInt("realtime_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("realtime_events_dropped_total")
)

// Event is the frame pushed to clients
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type fanoutMessage struct {
	UserIDs          []uuid.UUID     `json:"user_ids"`
	Event            string          `json:"event"`
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// Connection is one WebSocket session
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan Event
}

func NewConnection(userID uuid.UUID, conn *websocket.Conn) *Connection {
	return &Connection{UserID: userID, Conn: conn, Send: make(chan Event, 256)}
}

// Hub routes change events to the connections of the users they concern.
// With Redis, events published on one API instance reach sessions on every instance.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool
	mu          sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
}

// NewHub creates a hub; redisClient may be nil for a single instance
func NewHub(redisClient *redis.Client) *Hub {
	return NewHubWithInstanceID(redisClient, uuid.NewString())
}

// NewHubWithInstanceID creates a hub with an explicit instance identifier.
func NewHubWithInstanceID(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  instanceID,
	}
	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, userEventsChannel)
	}
	return h
}

// Run consumes the Redis fan-out channel until Shutdown. Call in a goroutine.
func (h *Hub) Run() {
	if h.pubsub == nil {
		<-h.ctx.Done()
		return
	}

	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m fanoutMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				log.Warn().Err(err).Msg("Malformed realtime fan-out message")
				continue
			}
			if m.SenderInstanceID == h.instanceID {
				continue
			}
			h.deliverLocal(m.UserIDs, Event{Type: m.Event, Data: m.Payload})
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	if h.connections[conn.UserID] == nil {
		h.connections[conn.UserID] = make(map[*Connection]bool)
	}
	h.connections[conn.UserID][conn] = true
	h.mu.Unlock()

	wsConnectionsGauge.Add(1)
	log.Debug().Str("user_id", conn.UserID.String()).Msg("User connected to realtime")
}

// Unregister removes a connection and closes its Send channel
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if conns, ok := h.connections[conn.UserID]; ok {
		if conns[conn] {
			delete(conns, conn)
			close(conn.Send)
			wsConnectionsGauge.Add(-1)
		}
		if len(conns) == 0 {
			delete(h.connections, conn.UserID)
		}
	}
	h.mu.Unlock()
	log.Debug().Str("user_id", conn.UserID.String()).Msg("User disconnected from realtime")
}

// Notify pushes one event to every session of the given users.
func (h *Hub) Notify(ctx context.Context, userIDs []uuid.UUID, event string, payload interface{}) {
	if len(userIDs) == 0 {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal realtime payload")
		return
	}

	h.deliverLocal(userIDs, Event{Type: event, Data: data})

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(fanoutMessage{
		UserIDs:          userIDs,
		Event:            event,
		Payload:          data,
		SenderInstanceID: h.instanceID,
	})
	if err != nil {
		return
	}
	if err := h.redis.Publish(ctx, userEventsChannel, msg).Err(); err != nil {
		log.Error().Err(err).Str("event", event).Msg("Redis publish failed")
	}
}

func (h *Hub) deliverLocal(userIDs []uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		for conn := range h.connections[userID] {
			select {
			case conn.Send <- ev:
				wsEventsSentTotal.Add(1)
			default:
				wsEventsDroppedTotal.Add(1)
				log.Warn().Str("user_id", userID.String()).Msg("Realtime send buffer full")
			}
		}
	}
}

// ConnectionCount returns number of local connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return total
}

// Shutdown stops the subscriber
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
