package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/collablink/collab-comms/src/api/types"
)

// Memory keeps everything in maps behind one mutex. It exists for
// unit tests and local runs; semantics mirror gormStore, including the
// conditional status update.
type Memory struct {
	mu            sync.Mutex
	users         map[uint64]types.User
	proposals     map[uint64]types.Proposal
	messages      map[uint64]types.ProposalMessage
	notifications map[uint64]types.Notification
	nextID        uint64
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[uint64]types.User),
		proposals:     make(map[uint64]types.Proposal),
		messages:      make(map[uint64]types.ProposalMessage),
		notifications: make(map[uint64]types.Notification),
	}
}

// SeedUser registers an account so display names resolve in tests.
func (s *Memory) SeedUser(u types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	}
	s.users[u.ID] = u
}

func (s *Memory) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Memory) CreateProposal(_ context.Context, p *types.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.attachParties(p)
	s.proposals[p.ID] = *p
	return nil
}

func (s *Memory) attachParties(p *types.Proposal) {
	if u, ok := s.users[p.SponsorID]; ok {
		p.Sponsor = u
	}
	if u, ok := s.users[p.CreatorID]; ok {
		p.Creator = u
	}
}

func (s *Memory) getProposal(id uint64) (types.Proposal, error) {
	p, ok := s.proposals[id]
	if !ok || p.Removed {
		return types.Proposal{}, &types.NotFoundError{Entity: "proposal", ID: id}
	}
	return p, nil
}

func (s *Memory) GetProposal(_ context.Context, id uint64) (*types.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.getProposal(id)
	if err != nil {
		return nil, err
	}
	s.attachParties(&p)
	return &p, nil
}

func (s *Memory) TransitionProposal(_ context.Context, id uint64, from, to types.ProposalStatus, changes map[string]any) (*types.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.getProposal(id)
	if err != nil {
		return nil, err
	}
	if p.Status != from {
		return nil, &types.ConflictError{Entity: "proposal", ID: id}
	}
	p.Status = to
	for k, v := range changes {
		switch k {
		case "subject":
			p.Subject = v.(string)
		case "message":
			p.Message = v.(string)
		case "budget_range":
			p.BudgetRange = v.(string)
		case "timeline":
			p.Timeline = v.(string)
		case "content_id":
			p.ContentID, _ = v.(*uint64)
		case "content_title":
			p.ContentTitle = v.(string)
		case "response_message":
			p.ResponseMsg = v.(string)
		case "responded_at":
			p.RespondedAt, _ = v.(*time.Time)
		}
	}
	p.UpdatedAt = time.Now()
	s.proposals[id] = p
	s.attachParties(&p)
	return &p, nil
}

func (s *Memory) RemoveProposal(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.getProposal(id)
	if err != nil {
		return err
	}
	p.Removed = true
	p.UpdatedAt = time.Now()
	s.proposals[id] = p
	return nil
}

// matches mirrors the gorm search haystack; parties must be attached
// before the display names can match.
func matches(p *types.Proposal, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, hay := range []string{
		p.Subject, p.Message,
		p.Sponsor.DisplayName, p.Creator.DisplayName,
		p.ContentTitle, p.BudgetRange, p.Timeline,
	} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func (s *Memory) ListProposals(_ context.Context, f ProposalFilter, sortBy Sort, page Page) ([]types.Proposal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.normalized()

	var all []types.Proposal
	for _, p := range s.proposals {
		if p.Removed {
			continue
		}
		if f.Role == types.RoleCreator {
			if p.CreatorID != f.UserID {
				continue
			}
		} else if p.SponsorID != f.UserID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		s.attachParties(&p)
		if !matches(&p, f.Search) {
			continue
		}
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		switch sortBy {
		case SortOldest:
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		case SortUpdated:
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		default:
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
	})

	total := int64(len(all))
	lo := page.Offset
	if lo > len(all) {
		lo = len(all)
	}
	hi := lo + page.Limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (s *Memory) CreateMessage(_ context.Context, m *types.ProposalMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.id()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages[m.ID] = *m
	return nil
}

func (s *Memory) ListMessages(_ context.Context, proposalID uint64, page Page) ([]types.ProposalMessage, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.normalized()

	var all []types.ProposalMessage
	for _, m := range s.messages {
		if m.ProposalID == proposalID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	lo := page.Offset
	if lo > len(all) {
		lo = len(all)
	}
	hi := lo + page.Limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (s *Memory) MarkThreadRead(_ context.Context, proposalID, viewerID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flipped int64
	for id, m := range s.messages {
		if m.ProposalID == proposalID && m.SenderID != viewerID && !m.IsRead {
			m.IsRead = true
			s.messages[id] = m
			flipped++
		}
	}
	return flipped, nil
}

func (s *Memory) CountUnread(_ context.Context, proposalID, viewerID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ProposalID == proposalID && m.SenderID != viewerID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Memory) CreateNotification(_ context.Context, n *types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.id()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications[n.ID] = *n
	return nil
}

func (s *Memory) GetNotification(_ context.Context, id uint64) (*types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, &types.NotFoundError{Entity: "notification", ID: id}
	}
	return &n, nil
}

func (s *Memory) MarkNotificationRead(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.IsRead {
		return nil
	}
	n.IsRead = true
	n.ReadAt = &at
	s.notifications[id] = n
	return nil
}

func (s *Memory) ListNotifications(_ context.Context, f NotificationFilter, page Page) ([]types.Notification, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.normalized()

	var all []types.Notification
	var total, unread int64
	for _, n := range s.notifications {
		if n.UserID != f.UserID {
			continue
		}
		total++
		if !n.IsRead {
			unread++
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	lo := page.Offset
	if lo > len(all) {
		lo = len(all)
	}
	hi := lo + page.Limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, unread, nil
}

func (s *Memory) GetUser(_ context.Context, id uint64) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, &types.NotFoundError{Entity: "user", ID: id}
	}
	return &u, nil
}
