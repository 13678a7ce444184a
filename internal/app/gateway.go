package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

// AvatarLookup is a best-effort enrichment collaborator. It must never
// block delivery: the gateway queries it off the hot path.
type AvatarLookup interface {
	AvatarOf(ctx context.Context, id domain.Identity) (string, error)
}

const avatarLookupTimeout = 2 * time.Second

// Gateway is the event router: it validates inbound events against the
// registry, fans out to the right peer set, and hands chat messages to the
// sink. All methods are safe for concurrent use; events from one connection
// are expected to arrive in order (one reader goroutine per connection).
type Gateway struct {
	Registry *Registry
	Sink     *Sink
	Avatars  AvatarLookup // optional
	Policy   Policy       // optional

	// now is the message timestamp source; replaceable in tests.
	now func() time.Time
}

func NewGateway(reg *Registry, sink *Sink, avatars AvatarLookup, policy Policy) *Gateway {
	return &Gateway{
		Registry: reg,
		Sink:     sink,
		Avatars:  avatars,
		Policy:   policy,
		now:      time.Now,
	}
}

// Connected registers an admitted connection and kicks off the avatar
// lookup in the background.
func (g *Gateway) Connected(id core.ConnID, identity domain.Identity, conn core.ClientConn, cancel context.CancelFunc) {
	g.Registry.Admit(id, identity, conn, cancel)

	if g.Avatars == nil {
		return
	}
	go func() {
		ctx, done := context.WithTimeout(context.Background(), avatarLookupTimeout)
		defer done()
		uri, err := g.Avatars.AvatarOf(ctx, identity)
		if err != nil {
			log.Debug().Err(err).Str("module", "app.gateway").Str("user", string(identity)).Msg("avatar lookup failed")
			return
		}
		if uri != "" {
			g.Registry.SetAvatar(id, uri)
		}
	}()
}

// Disconnected runs the full cleanup for a closed transport. Safe to call
// on a connection that is already gone.
func (g *Gateway) Disconnected(id core.ConnID) {
	if g.Registry.Remove(id) {
		log.Info().Str("module", "app.gateway").Str("conn", string(id)).Msg("disconnected")
	}
}

// JoinRoom sets the display name and moves the connection into the chat
// room; a switch from another room is leave-then-join inside the registry.
func (g *Gateway) JoinRoom(id core.ConnID, room domain.RoomKey, displayName string) {
	if room == "" || len(room) > domain.MaxRoomKeyLen {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("join-room: bad room key")
		return
	}
	if err := domain.ValidateDisplayName(displayName); err != nil {
		log.Warn().Err(err).Str("module", "app.gateway").Str("conn", string(id)).Msg("join-room: bad display name")
		return
	}
	g.Registry.SetDisplayName(id, displayName)
	if !g.Registry.JoinChat(id, room) {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("join-room: connection gone")
		return
	}
	log.Info().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Str("name", displayName).Msg("joined room")
}

func (g *Gateway) LeaveRoom(id core.ConnID, room domain.RoomKey) {
	if !g.Registry.LeaveChat(id, room) {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Msg("leave-room: not a member")
		return
	}
	log.Info().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Msg("left room")
}

// Message relays a text message to every other member of the room and
// submits a copy to the persistence sink. Delivery never waits on
// persistence.
func (g *Gateway) Message(id core.ConnID, room domain.RoomKey, text string) {
	sender, ok := g.Registry.Get(id)
	if !ok {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("message: connection gone")
		return
	}
	current, in := g.Registry.ChatRoomOf(id)
	if !in || current != room {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Msg("message: sender not a member, dropped")
		return
	}

	sentAt := g.now()
	frame, err := json.Marshal(core.ChatDelivery{
		Type:       "chat",
		Message:    text,
		UserName:   sender.DisplayName,
		Avatar:     sender.Avatar,
		RenderTime: sentAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Msg("message: marshal")
		return
	}
	g.fanOut(room, g.Registry.ChatMembers(room), id, frame)

	if g.Sink != nil {
		g.Sink.Submit(domain.ChatMessage{
			Room:        room,
			Sender:      sender.Identity,
			DisplayName: sender.DisplayName,
			Text:        text,
			SentAt:      sentAt,
		})
	}
}

func (g *Gateway) JoinVoice(id core.ConnID, room domain.RoomKey) {
	if room == "" || len(room) > domain.MaxRoomKeyLen {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("user-join-voice: bad room key")
		return
	}
	if g.Registry.JoinVoice(id, room) {
		log.Info().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Msg("joined voice")
	}
}

func (g *Gateway) LeaveVoice(id core.ConnID, room domain.RoomKey) {
	g.Registry.LeaveVoice(id, room)
	log.Info().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Msg("left voice")
}

// VoiceSignal relays an opaque envelope. With a target it is delivered
// point-to-point (the target only has to exist); without one it is
// broadcast to every other member of the room, which requires the sender
// to be a member.
func (g *Gateway) VoiceSignal(id core.ConnID, room domain.RoomKey, payload json.RawMessage, target core.ConnID) {
	if len(payload) == 0 {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("voice-signal: empty payload, dropped")
		return
	}
	sender, ok := g.Registry.Get(id)
	if !ok {
		return
	}
	frame, err := json.Marshal(core.SignalDelivery{
		Type:     core.EvtVoiceSignal,
		Payload:  payload,
		From:     id,
		UserName: sender.DisplayName,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Msg("voice-signal: marshal")
		return
	}

	if target != "" {
		peer, live := g.Registry.Get(target)
		if !live {
			log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Str("target", string(target)).Msg("voice-signal: target gone, dropped")
			return
		}
		if err := peer.Conn.TrySend(frame); err != nil {
			g.onSlow(room, target)
		}
		return
	}

	if !g.Registry.InVoice(id, room) {
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Str("room", string(room)).Msg("voice-signal: sender not a member, dropped")
		return
	}
	g.fanOut(room, g.Registry.VoiceMembers(room), id, frame)
}

// Participants answers the requester only, computed from live registry
// entries at query time, never a cached snapshot.
func (g *Gateway) Participants(id core.ConnID, room domain.RoomKey) {
	requester, ok := g.Registry.Get(id)
	if !ok {
		return
	}
	members := g.Registry.VoiceMembers(room)
	items := make([]core.Participant, 0, len(members))
	for _, m := range members {
		items = append(items, core.Participant{ID: m.ID, UserID: m.Identity, UserName: m.DisplayName})
	}
	frame, err := json.Marshal(core.ParticipantsReply{
		Type:         core.EvtParticipants,
		Room:         room,
		Participants: items,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Msg("participants: marshal")
		return
	}
	if err := requester.Conn.TrySend(frame); err != nil {
		g.onSlow(room, id)
	}
}

// fanOut delivers frame to every member except the sender.
func (g *Gateway) fanOut(room domain.RoomKey, members []Member, from core.ConnID, frame core.Frame) core.PublishResult {
	var res core.PublishResult
	for _, m := range members {
		if m.ID == from {
			continue
		}
		if err := m.Conn.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, m.ID)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.gateway").Str("room", string(room)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("fan-out")
	for _, slow := range res.Dropped {
		g.onSlow(room, slow)
	}
	return res
}

func (g *Gateway) onSlow(room domain.RoomKey, id core.ConnID) {
	if g.Policy == nil {
		return
	}
	switch g.Policy.OnBackpressure(room, id) {
	case KickMember:
		log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("kicking slow consumer")
		g.Registry.Cancel(id)
	case DropFrame, NoAction:
	}
}
