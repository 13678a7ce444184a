package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

func (ctl *Controller) handleJoinVoice(id core.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad user-join-voice payload, dropped")
		return
	}
	ctl.Gateway.JoinVoice(id, domain.RoomKey(p.RoomID))
}

func (ctl *Controller) handleLeaveVoice(id core.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad user-left-voice payload, dropped")
		return
	}
	ctl.Gateway.LeaveVoice(id, domain.RoomKey(p.RoomID))
}

func (ctl *Controller) handleVoiceSignal(id core.ConnID, data []byte) {
	var p struct {
		Payload json.RawMessage `json:"payload"`
		RoomID  string          `json:"roomId"`
		Target  string          `json:"target"`
	}
	if err := json.Unmarshal(data, &p); err != nil || len(p.Payload) == 0 || (p.RoomID == "" && p.Target == "") {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad voice-signal payload, dropped")
		return
	}
	ctl.Gateway.VoiceSignal(id, domain.RoomKey(p.RoomID), p.Payload, core.ConnID(p.Target))
}

func (ctl *Controller) handleParticipants(id core.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad voice-chat-participants payload, dropped")
		return
	}
	ctl.Gateway.Participants(id, domain.RoomKey(p.RoomID))
}
