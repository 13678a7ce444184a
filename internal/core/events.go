package core

import (
	"encoding/json"

	"github.com/avoronov/huddle/internal/domain"
)

// Inbound event kinds, dispatched on the top-level "type" field.
const (
	EvtJoinRoom     = "join-room"
	EvtLeaveRoom    = "leave-room"
	EvtMessage      = "message"
	EvtJoinVoice    = "user-join-voice"
	EvtLeaveVoice   = "user-left-voice"
	EvtVoiceSignal  = "voice-signal"
	EvtParticipants = "voice-chat-participants"
)

// ChatDelivery is the room-fan-out payload for a text message.
// Field names follow the client protocol: the delivery itself is typed
// "chat" and carries a server-side timestamp.
type ChatDelivery struct {
	Type       string `json:"type"` // always "chat"
	Message    string `json:"message"`
	UserName   string `json:"userName"`
	Avatar     string `json:"avatar,omitempty"`
	RenderTime string `json:"renderTime"`
}

// SignalDelivery relays an opaque signaling payload. The gateway forwards
// Payload untouched; it is never interpreted here.
type SignalDelivery struct {
	Type     string          `json:"type"` // always "voice-signal"
	Payload  json.RawMessage `json:"payload"`
	From     ConnID          `json:"from"`
	UserName string          `json:"userName"`
}

// Participant is a read-only view of one voice-room member, joined against
// the live registry at query time.
type Participant struct {
	ID       ConnID          `json:"id"`
	UserID   domain.Identity `json:"userId"`
	UserName string          `json:"userName"`
}

// ParticipantsReply is sent to the requester only.
type ParticipantsReply struct {
	Type         string         `json:"type"` // always "voice-chat-participants"
	Room         domain.RoomKey `json:"roomId"`
	Participants []Participant  `json:"participants"`
}
