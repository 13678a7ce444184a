// Package app owns the gateway's in-memory state and event routing.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

// connEntry is the single owned record for one live connection. Mutable
// fields are guarded by the registry lock; nothing is bolted on at runtime.
type connEntry struct {
	id       core.ConnID
	identity domain.Identity
	conn     core.ClientConn
	cancel   context.CancelFunc

	displayName string
	avatar      string
	chatRoom    domain.RoomKey // at most one; "" means none
	voiceRooms  map[domain.RoomKey]struct{}
}

// Member is a snapshot of one connection for fan-out and enumeration.
type Member struct {
	ID          core.ConnID
	Identity    domain.Identity
	DisplayName string
	Avatar      string
	Conn        core.ClientConn
}

type RoomInfo struct {
	Name        domain.RoomKey `json:"name"`
	Kind        string         `json:"kind"` // "chat" or "voice"
	MemberCount int            `json:"client_count"`
}

// Registry holds the live connection set and both room relations: the
// single-valued chat membership and the multi-valued voice membership.
// Room sets hold only connection IDs, never the entries themselves, and a
// set never references an ID that is not currently live: admit, join, leave
// and remove all mutate under one lock.
type Registry struct {
	mu         sync.RWMutex
	conns      map[core.ConnID]*connEntry
	chatRooms  map[domain.RoomKey]map[core.ConnID]struct{}
	voiceRooms map[domain.RoomKey]map[core.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[core.ConnID]*connEntry),
		chatRooms:  make(map[domain.RoomKey]map[core.ConnID]struct{}),
		voiceRooms: make(map[domain.RoomKey]map[core.ConnID]struct{}),
	}
}

// Admit inserts an authenticated connection. The identity is immutable for
// the life of the connection.
func (r *Registry) Admit(id core.ConnID, identity domain.Identity, conn core.ClientConn, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{
		id:         id,
		identity:   identity,
		conn:       conn,
		cancel:     cancel,
		voiceRooms: make(map[domain.RoomKey]struct{}),
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("user", string(identity)).Msg("connection admitted")
}

// Remove drops the connection and mirrors the removal into every room that
// references it. After Remove returns, a concurrent join for the same ID is
// a no-op. Returns false when the ID was already gone.
func (r *Registry) Remove(id core.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	if e.chatRoom != "" {
		r.dropMember(r.chatRooms, e.chatRoom, id)
	}
	for room := range e.voiceRooms {
		r.dropMember(r.voiceRooms, room, id)
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection removed")
	return true
}

// Cancel aborts the connection's event stream. Used by the backpressure
// policy to kick slow consumers.
func (r *Registry) Cancel(id core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection canceled")
	return true
}

func (r *Registry) SetDisplayName(id core.ConnID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.displayName = name
	}
}

// SetAvatar records the best-effort avatar lookup result. Arriving after
// disconnect is harmless.
func (r *Registry) SetAvatar(id core.ConnID, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.avatar = uri
	}
}

// JoinChat moves the connection into room. A connection is in at most one
// chat room: joining while in another room implicitly leaves it first.
// Joining the current room again is a no-op. Returns false when the
// connection is no longer live.
func (r *Registry) JoinChat(id core.ConnID, room domain.RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	if e.chatRoom == room {
		return true
	}
	if e.chatRoom != "" {
		r.dropMember(r.chatRooms, e.chatRoom, id)
	}
	r.addMember(r.chatRooms, room, id)
	e.chatRoom = room
	return true
}

// LeaveChat is idempotent; leaving a room the connection is not in does
// nothing. Reports whether membership was actually removed.
func (r *Registry) LeaveChat(id core.ConnID, room domain.RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok || e.chatRoom != room {
		return false
	}
	r.dropMember(r.chatRooms, room, id)
	e.chatRoom = ""
	return true
}

func (r *Registry) JoinVoice(id core.ConnID, room domain.RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	if _, in := e.voiceRooms[room]; in {
		return true
	}
	r.addMember(r.voiceRooms, room, id)
	e.voiceRooms[room] = struct{}{}
	return true
}

func (r *Registry) LeaveVoice(id core.ConnID, room domain.RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return
	}
	if _, in := e.voiceRooms[room]; !in {
		return
	}
	r.dropMember(r.voiceRooms, room, id)
	delete(e.voiceRooms, room)
}

// Get returns a snapshot of one live connection.
func (r *Registry) Get(id core.ConnID) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return Member{}, false
	}
	return snapshot(e), true
}

// ChatRoomOf reports the connection's current chat room, if any.
func (r *Registry) ChatRoomOf(id core.ConnID) (domain.RoomKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.chatRoom == "" {
		return "", false
	}
	return e.chatRoom, true
}

// InVoice reports whether the connection is currently a member of room.
func (r *Registry) InVoice(id core.ConnID, room domain.RoomKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	_, in := e.voiceRooms[room]
	return in
}

// ChatMembers snapshots the chat room's member set, sender included.
func (r *Registry) ChatMembers(room domain.RoomKey) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members(r.chatRooms, room)
}

// VoiceMembers snapshots the voice room's member set.
func (r *Registry) VoiceMembers(room domain.RoomKey) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members(r.voiceRooms, room)
}

// Rooms lists every non-empty room with its member count.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.chatRooms)+len(r.voiceRooms))
	for name, set := range r.chatRooms {
		out = append(out, RoomInfo{Name: name, Kind: "chat", MemberCount: len(set)})
	}
	for name, set := range r.voiceRooms {
		out = append(out, RoomInfo{Name: name, Kind: "voice", MemberCount: len(set)})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// members must be called with at least a read lock held.
func (r *Registry) members(rel map[domain.RoomKey]map[core.ConnID]struct{}, room domain.RoomKey) []Member {
	set, ok := rel[room]
	if !ok {
		return nil
	}
	out := make([]Member, 0, len(set))
	for id := range set {
		if e, live := r.conns[id]; live {
			out = append(out, snapshot(e))
		}
	}
	return out
}

func (r *Registry) addMember(rel map[domain.RoomKey]map[core.ConnID]struct{}, room domain.RoomKey, id core.ConnID) {
	set, ok := rel[room]
	if !ok {
		set = make(map[core.ConnID]struct{})
		rel[room] = set
	}
	set[id] = struct{}{}
}

// dropMember prunes the room entry as soon as its member set is empty.
func (r *Registry) dropMember(rel map[domain.RoomKey]map[core.ConnID]struct{}, room domain.RoomKey, id core.ConnID) {
	if set, ok := rel[room]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(rel, room)
		}
	}
}

func snapshot(e *connEntry) Member {
	return Member{
		ID:          e.id,
		Identity:    e.identity,
		DisplayName: e.displayName,
		Avatar:      e.avatar,
		Conn:        e.conn,
	}
}
