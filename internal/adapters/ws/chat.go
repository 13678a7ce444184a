package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

func (ctl *Controller) handleJoinRoom(id core.ConnID, data []byte) {
	var p struct {
		RoomID   string `json:"roomId"`
		UserName string `json:"userName"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.UserName == "" {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad join-room payload, dropped")
		return
	}
	ctl.Gateway.JoinRoom(id, domain.RoomKey(p.RoomID), p.UserName)
}

func (ctl *Controller) handleLeaveRoom(id core.ConnID, data []byte) {
	var p struct {
		RoomID   string `json:"roomId"`
		UserName string `json:"userName"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad leave-room payload, dropped")
		return
	}
	ctl.Gateway.LeaveRoom(id, domain.RoomKey(p.RoomID))
}

func (ctl *Controller) handleMessage(id core.ConnID, data []byte) {
	var p struct {
		Message string `json:"message"`
		RoomID  string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.Message == "" {
		log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad message payload, dropped")
		return
	}
	ctl.Gateway.Message(id, domain.RoomKey(p.RoomID), p.Message)
}
