package app

import (
	"github.com/avoronov/huddle/internal/core"
	"github.com/avoronov/huddle/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer overflowed
// during fan-out.
type Policy interface {
	OnBackpressure(room domain.RoomKey, member core.ConnID) BackpressureAction
}

// KickSlowPolicy disconnects slow consumers so room membership never keeps
// pointing at a transport that stopped draining.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(domain.RoomKey, core.ConnID) BackpressureAction {
	return KickMember
}
