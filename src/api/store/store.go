// Package store is the persistence port for the negotiation engine. The
// engine issues read/write intents against Store and never sees the
// storage technology; gormStore backs it with MySQL, Memory backs it
// with maps for tests.
package store

import (
	"context"
	"time"

	"github.com/collablink/collab-comms/src/api/types"
)

type Sort string

const (
	SortNewest  Sort = "newest"
	SortOldest  Sort = "oldest"
	SortUpdated Sort = "updated"
)

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ProposalFilter selects proposals for one side of the table. Role decides
// whether UserID is matched against sponsor_id or creator_id.
type ProposalFilter struct {
	UserID uint64
	Role   types.Role
	Status types.ProposalStatus // empty = any
	Search string               // case-insensitive substring, empty = no filter
}

type NotificationFilter struct {
	UserID     uint64
	UnreadOnly bool
}

type Store interface {
	// Proposals. Transition is the only status-changing path and performs
	// the read-and-write as one conditional update: rows move from `from`
	// to `to` plus `changes` only if the status still matches, otherwise
	// ConflictError. Removed proposals resolve as NotFoundError.
	CreateProposal(ctx context.Context, p *types.Proposal) error
	GetProposal(ctx context.Context, id uint64) (*types.Proposal, error)
	TransitionProposal(ctx context.Context, id uint64, from, to types.ProposalStatus, changes map[string]any) (*types.Proposal, error)
	RemoveProposal(ctx context.Context, id uint64) error
	ListProposals(ctx context.Context, f ProposalFilter, sort Sort, page Page) ([]types.Proposal, int64, error)

	// Thread messages. MarkThreadRead bulk-flips is_read on every unread
	// message in the proposal not sent by viewerID and reports how many
	// rows changed; repeated calls flip nothing and return 0.
	CreateMessage(ctx context.Context, m *types.ProposalMessage) error
	ListMessages(ctx context.Context, proposalID uint64, page Page) ([]types.ProposalMessage, int64, error)
	MarkThreadRead(ctx context.Context, proposalID, viewerID uint64) (int64, error)
	CountUnread(ctx context.Context, proposalID, viewerID uint64) (int64, error)

	// Notifications.
	CreateNotification(ctx context.Context, n *types.Notification) error
	GetNotification(ctx context.Context, id uint64) (*types.Notification, error)
	MarkNotificationRead(ctx context.Context, id uint64, at time.Time) error
	ListNotifications(ctx context.Context, f NotificationFilter, page Page) ([]types.Notification, int64, int64, error)

	// Users.
	GetUser(ctx context.Context, id uint64) (*types.User, error)
}
