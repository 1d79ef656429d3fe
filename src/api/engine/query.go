package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
	"github.com/collablink/collab-comms/src/api/validate"
)

// Queries is the read side: pagination, filtering, search text and the
// priority scoring that orders "needs attention" views.
type Queries struct {
	store   store.Store
	threads *Threads
}

func NewQueries(st store.Store, threads *Threads) *Queries {
	return &Queries{store: st, threads: threads}
}

type ProposalPage struct {
	Items   []types.Proposal
	Total   int64
	HasMore bool
}

type Filters struct {
	Status types.ProposalStatus
	Search string
}

func (q *Queries) ListProposals(ctx context.Context, userID uint64, role types.Role, f Filters, sortBy store.Sort, page store.Page) (*ProposalPage, error) {
	items, total, err := q.store.ListProposals(ctx, store.ProposalFilter{
		UserID: userID,
		Role:   role,
		Status: f.Status,
		Search: f.Search,
	}, sortBy, page)
	if err != nil {
		return nil, err
	}
	return &ProposalPage{
		Items:   items,
		Total:   total,
		HasMore: int64(page.Offset+len(items)) < total,
	}, nil
}

// Priority base scores by status.
const (
	priorityPending  = 100
	priorityAccepted = 50
	priorityRejected = 10
	priorityArchived = 1

	priorityUnreadBoost = 200
	priorityDayBoost    = 50
	priorityWeekBoost   = 20
)

// Priority scores a proposal for display ordering. Boosts add to the
// status base; a pending proposal with unread messages updated today
// scores 100+200+50+20.
func Priority(p *types.Proposal, unread int64, now time.Time) int {
	score := 0
	switch p.Status {
	case types.StatusPending:
		score = priorityPending
	case types.StatusAccepted:
		score = priorityAccepted
	case types.StatusRejected:
		score = priorityRejected
	case types.StatusArchived:
		score = priorityArchived
	}
	if unread > 0 {
		score += priorityUnreadBoost
	}
	age := now.Sub(p.UpdatedAt)
	if age < 24*time.Hour {
		score += priorityDayBoost
	}
	if age < 7*24*time.Hour {
		score += priorityWeekBoost
	}
	return score
}

// SearchText is the lower-cased haystack the substring filter runs over.
func SearchText(p *types.Proposal) string {
	parts := []string{
		p.Subject,
		p.Message,
		p.Sponsor.DisplayName,
		p.Creator.DisplayName,
		p.ContentTitle,
		p.BudgetRange,
		p.Timeline,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Summarize shortens a proposal's message for list views.
func Summarize(p *types.Proposal, maxLen int) string {
	return validate.Summarize(p.Message, maxLen)
}

// RankedProposal pairs a proposal with its derived ordering inputs.
type RankedProposal struct {
	Proposal types.Proposal
	Unread   int64
	Priority int
}

// needsAttentionWindow bounds how many proposals are ranked in memory.
const needsAttentionWindow = 100

// NeedsAttention returns the viewer's proposals ordered by priority
// score, highest first, ties broken by most recent update.
func (q *Queries) NeedsAttention(ctx context.Context, userID uint64, role types.Role, page store.Page) ([]RankedProposal, error) {
	items, _, err := q.store.ListProposals(ctx, store.ProposalFilter{
		UserID: userID,
		Role:   role,
	}, store.SortUpdated, store.Page{Limit: needsAttentionWindow})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ranked := make([]RankedProposal, 0, len(items))
	for _, p := range items {
		unread, err := q.threads.UnreadCount(ctx, userID, p.ID)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, RankedProposal{
			Proposal: p,
			Unread:   unread,
			Priority: Priority(&p, unread, now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].Proposal.UpdatedAt.After(ranked[j].Proposal.UpdatedAt)
	})

	if page.Limit <= 0 {
		page.Limit = 20
	}
	lo := page.Offset
	if lo < 0 {
		lo = 0
	}
	if lo > len(ranked) {
		lo = len(ranked)
	}
	hi := lo + page.Limit
	if hi > len(ranked) {
		hi = len(ranked)
	}
	return ranked[lo:hi], nil
}
