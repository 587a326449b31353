package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
)

type publication struct {
	userIDs []string
	message []byte
}

type delivery struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and routes messages to the
// clients of specific users.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of user IDs to the set of clients connected for that user.
	subscriptions map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	publish chan publication
	direct  chan delivery
	done    chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan publication, 64),
		direct:        make(chan delivery, 64),
		done:          make(chan struct{}),
	}
}

// Run processes hub traffic until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Int("total_clients", len(h.clients)).Str("client_id", client.ID).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Str("client_id", client.ID).Msg("Client disconnected")
			}
		case d := <-h.direct:
			if h.clients[d.client] {
				h.deliver(d.client, d.message)
			}
		case p := <-h.publish:
			for _, userID := range p.userIDs {
				for client := range h.subscriptions[userID] {
					h.deliver(client, p.message)
				}
			}
		}
	}
}

// Publish queues a message for every connected client of the given users.
// It never blocks once the hub has stopped.
func (h *Hub) Publish(userIDs []string, message []byte) {
	select {
	case h.publish <- publication{userIDs: userIDs, message: message}:
	case <-h.done:
	}
}

// SendTo queues a message for a single client.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- delivery{client: client, message: message}:
	case <-h.done:
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// deliver hands a message to a client, dropping clients that cannot keep up.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.UserID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.UserID)
		}
	}
}
