// Package engine is the proposal negotiation core: the state machine,
// the message thread manager, notification fan-out and the listing
// service. Every operation takes the caller's resolved identity
// explicitly; nothing here reads ambient request state.
package engine

import (
	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
)

// Identity is a caller already resolved by the session layer.
type Identity struct {
	UserID uint64
	Role   types.Role
}

type Engine struct {
	Proposals *Proposals
	Threads   *Threads
	Notify    *Fanout
	Queries   *Queries
}

// New wires the engine components over one persistence port. cache and
// pub are optional; pass nil to run without the unread cache or the
// delivery stream.
func New(st store.Store, cache UnreadCache, pub Publisher) *Engine {
	threads := &Threads{store: st, cache: cache}
	return &Engine{
		Proposals: &Proposals{store: st},
		Threads:   threads,
		Notify:    &Fanout{store: st, pub: pub},
		Queries:   &Queries{store: st, threads: threads},
	}
}
