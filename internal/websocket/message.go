package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message actions.
const (
	ActionPostCreated = "post.created"
	ActionPing        = "ping"
	ActionPong        = "pong"
	ActionError       = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", msg.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}

// NewPostCreatedMessage announces a new post.
func NewPostCreatedMessage(post interface{}) []byte {
	return encode(Message{Action: ActionPostCreated, Payload: post})
}

// NewPongMessage answers a client ping.
func NewPongMessage() []byte {
	return encode(Message{Action: ActionPong})
}

// NewErrorMessage reports a problem with a client request.
func NewErrorMessage(text string) []byte {
	return encode(Message{Action: ActionError, Payload: map[string]string{"error": text}})
}
