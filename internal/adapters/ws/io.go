package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, id core.ConnID, c *wireConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Str("conn", string(id)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("conn", string(id)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Str("conn", string(id)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Str("conn", string(id)).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the single reader for the connection, so events from one
// client are handled strictly in the order received. Its defer is the one
// place disconnect cleanup runs, for graceful and abnormal closes alike.
func (ctl *Controller) readPump(ctx context.Context, id core.ConnID, c *wireConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("conn", string(id)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Gateway.Disconnected(id)
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * ctl.PingPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * ctl.PingPeriod))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("conn", string(id)).Msg("readPump read error")
			}
			return
		}
		// Binary frames are rejected across the board: never interpreted,
		// never forwarded, never persisted.
		if msgType != websocket.TextMessage {
			log.Warn().Str("module", "adapters.ws").Str("conn", string(id)).Msg("binary frame dropped")
			continue
		}
		ctl.dispatch(id, data)
	}
}

// dispatch routes one inbound event. Malformed events and unknown kinds
// are dropped with a log line; the connection stays alive.
func (ctl *Controller) dispatch(id core.ConnID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Str("conn", string(id)).Msg("bad json, dropped")
		return
	}

	switch env.Type {
	case core.EvtJoinRoom:
		ctl.handleJoinRoom(id, data)
	case core.EvtLeaveRoom:
		ctl.handleLeaveRoom(id, data)
	case core.EvtMessage:
		ctl.handleMessage(id, data)
	case core.EvtJoinVoice:
		ctl.handleJoinVoice(id, data)
	case core.EvtLeaveVoice:
		ctl.handleLeaveVoice(id, data)
	case core.EvtVoiceSignal:
		ctl.handleVoiceSignal(id, data)
	case core.EvtParticipants:
		ctl.handleParticipants(id, data)
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown event, ignored")
	}
}
