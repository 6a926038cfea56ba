package events

import (
	"encoding/json"
	"fmt"

	"github.com/warp/admin-console/generic"
)

const (
	TypeStatusChanged = "record.status_changed"
	messageVersion    = 1
)

// Message is the envelope published for every accepted mutation.
type Message struct {
	Type    string                `json:"type"`
	Version int                   `json:"version"`
	Event   generic.MutationEvent `json:"event"`
}

func NewStatusChangedMessage(e generic.MutationEvent) *Message {
	return &Message{Type: TypeStatusChanged, Version: messageVersion, Event: e}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("decode message: missing type")
	}
	return &m, nil
}
