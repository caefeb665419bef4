package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// EventNotification is the envelope event for pushed notifications.
const EventNotification = "notification"

// Hub maintains participant_id -> set of connections and delivers pushed
// messages. Uses Redis pub/sub for horizontal scaling: messages are published
// to the participant's channel and every instance with a live connection
// delivers them.
type Hub struct {
	// participantID -> map[connID]*Client
	participants map[uuid.UUID]map[string]*Client
	subs         map[uuid.UUID]func() // cancel Redis subscription per participant
	mu           sync.RWMutex
	logger       *zap.Logger
	redisPub     RedisPublisher
	redisSub     RedisSubscriber
}

// RedisPublisher publishes to a participant's channel for cross-instance delivery.
type RedisPublisher interface {
	PublishParticipantEvent(participantID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to a participant's channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeParticipant(participantID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		participants: make(map[uuid.UUID]map[string]*Client),
		subs:         make(map[uuid.UUID]func()),
		logger:       logger,
		redisPub:     redisPub,
		redisSub:     redisSub,
	}
}

// Register adds a connection. Starts the Redis subscription for this
// participant on their first connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.participants[c.ParticipantID] == nil {
		h.participants[c.ParticipantID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeParticipant(c.ParticipantID, func(event string, payload []byte) {
				h.deliverLocal(c.ParticipantID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.ParticipantID] = cancel
			} else {
				h.logger.Warn("participant channel subscribe failed",
					zap.String("participant_id", c.ParticipantID.String()), zap.Error(err))
			}
		}
	}
	h.participants[c.ParticipantID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("conn_id", c.ID), zap.String("participant_id", c.ParticipantID.String()))
}

// Unregister removes a connection. Cancels the Redis subscription when the
// participant's last connection closes.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.participants[c.ParticipantID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.participants, c.ParticipantID)
			if cancel, ok := h.subs[c.ParticipantID]; ok {
				cancel()
				delete(h.subs, c.ParticipantID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("conn_id", c.ID), zap.String("participant_id", c.ParticipantID.String()))
}

// deliverLocal sends a message to this instance's connections for one participant.
func (h *Hub) deliverLocal(participantID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.participants[participantID]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish pushes a payload to a participant. When Redis is configured the
// message goes through pub/sub so the subscriber callback delivers it exactly
// once per instance; without Redis it is delivered locally.
func (h *Hub) Publish(_ context.Context, participantID uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if h.redisPub != nil {
		return h.redisPub.PublishParticipantEvent(participantID, EventNotification, data)
	}
	h.deliverLocal(participantID, EventNotification, json.RawMessage(data))
	return nil
}

// ConnectionCount returns the number of live connections for a participant.
func (h *Hub) ConnectionCount(participantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.participants[participantID])
}
