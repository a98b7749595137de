package ws

import (
	"encoding/json"
	"time"

	"github.com/mcoot/pongarena/internal/model"
)

// Inbound message types
const (
	TypeInput         = "input"
	TypeQueueJoin     = "queue_join"
	TypeQueueLeave    = "queue_leave"
	TypeInviteSend    = "invite_send"
	TypeInviteRespond = "invite_respond"
	TypePing          = "ping"
)

// Envelope is the frame for every message in both directions
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// outbound is the frame written for a model.Event
type outbound struct {
	Type      model.EventType `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Data      any             `json:"data,omitempty"`
}

// InputData carries a paddle intent
type InputData struct {
	Direction int `json:"direction"`
}

// QueueJoinData selects a queue
type QueueJoinData struct {
	Mode string `json:"mode"`
}

// InviteSendData names the invite target
type InviteSendData struct {
	Nick string `json:"nick"`
}

// InviteRespondData answers an invite from nick
type InviteRespondData struct {
	Nick   string `json:"nick"`
	Action string `json:"action"`
}

func encodeEvent(event model.Event) ([]byte, error) {
	return json.Marshal(outbound{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Data:      event.Payload,
	})
}
