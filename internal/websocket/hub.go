package websocket

import (
	"encoding/json"

	"github.com/isdelr/task-manager-api/internal/models"
	"github.com/rs/zerolog/log"
)

type userMessage struct {
	userID  int64
	payload []byte
}

// Hub maintains the set of active clients, grouped by user, and pushes
// messages to the connections of a single user.
type Hub struct {
	// Registered clients per user id.
	clients map[int64]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	outbound chan userMessage
	done     chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		outbound:   make(chan userMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			log.Info().Int64("user_id", client.UserID).Int("user_clients", len(h.clients[client.UserID])).Msg("Client connected")
		case client := <-h.Unregister:
			if h.remove(client) {
				log.Info().Int64("user_id", client.UserID).Msg("Client disconnected")
			}
		case msg := <-h.outbound:
			for client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.payload:
				default:
					// Slow consumer.
					h.remove(client)
				}
			}
		case <-h.done:
			for _, subs := range h.clients {
				for client := range subs {
					close(client.Send)
				}
			}
			h.clients = make(map[int64]map[*Client]bool)
			return
		}
	}
}

// Add registers client. It reports false once the hub is stopped.
func (h *Hub) Add(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Remove unregisters client and closes its send channel.
func (h *Hub) Remove(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// SendToUser queues payload for every connection of userID. It drops the
// message when the hub is stopped.
func (h *Hub) SendToUser(userID int64, payload []byte) {
	select {
	case h.outbound <- userMessage{userID: userID, payload: payload}:
	case <-h.done:
	}
}

// Publish pushes a recorded task event to its owner.
func (h *Hub) Publish(userID int64, event models.Event) {
	payload, err := json.Marshal(NewTaskEventMessage(event))
	if err != nil {
		log.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to encode event message")
		return
	}
	h.SendToUser(userID, payload)
}

func (h *Hub) remove(client *Client) bool {
	subs, ok := h.clients[client.UserID]
	if !ok || !subs[client] {
		return false
	}
	delete(subs, client)
	close(client.Send)
	if len(subs) == 0 {
		delete(h.clients, client.UserID)
	}
	return true
}
