package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/collablink/collab-comms/src/api/types"
)

type gormStore struct {
	db *gorm.DB
}

// NewGorm wraps a gorm connection in the persistence port.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Migrate creates or updates the engine's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},
		&types.Proposal{},
		&types.ProposalMessage{},
		&types.Notification{},
	)
}

func (s *gormStore) CreateProposal(ctx context.Context, p *types.Proposal) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return types.Persistence("create proposal", err)
	}
	return nil
}

func (s *gormStore) GetProposal(ctx context.Context, id uint64) (*types.Proposal, error) {
	var p types.Proposal
	err := s.db.WithContext(ctx).
		Preload("Sponsor").
		Preload("Creator").
		First(&p, "id = ? AND removed = ?", id, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Entity: "proposal", ID: id}
	}
	if err != nil {
		return nil, types.Persistence("get proposal", err)
	}
	return &p, nil
}

func (s *gormStore) TransitionProposal(ctx context.Context, id uint64, from, to types.ProposalStatus, changes map[string]any) (*types.Proposal, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range changes {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).
		Model(&types.Proposal{}).
		Where("id = ? AND status = ? AND removed = ?", id, from, false).
		Updates(updates)
	if res.Error != nil {
		return nil, types.Persistence("transition proposal", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or the guard lost a race; re-read to tell.
		if _, err := s.GetProposal(ctx, id); err != nil {
			return nil, err
		}
		return nil, &types.ConflictError{Entity: "proposal", ID: id}
	}
	return s.GetProposal(ctx, id)
}

func (s *gormStore) RemoveProposal(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).
		Model(&types.Proposal{}).
		Where("id = ? AND removed = ?", id, false).
		Updates(map[string]any{"removed": true, "updated_at": time.Now()})
	if res.Error != nil {
		return types.Persistence("remove proposal", res.Error)
	}
	if res.RowsAffected == 0 {
		return &types.NotFoundError{Entity: "proposal", ID: id}
	}
	return nil
}

func (s *gormStore) ListProposals(ctx context.Context, f ProposalFilter, sort Sort, page Page) ([]types.Proposal, int64, error) {
	page = page.normalized()
	q := s.db.WithContext(ctx).Model(&types.Proposal{}).Where("removed = ?", false)

	switch f.Role {
	case types.RoleCreator:
		q = q.Where("creator_id = ?", f.UserID)
	default:
		q = q.Where("sponsor_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		// Same haystack as engine.SearchText: subject, message, both
		// parties' display names, content title, budget, timeline.
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.
			Joins("JOIN users AS sponsors ON sponsors.id = proposals.sponsor_id").
			Joins("JOIN users AS creators ON creators.id = proposals.creator_id").
			Where(`LOWER(proposals.subject) LIKE ? OR LOWER(proposals.message) LIKE ?
				OR LOWER(sponsors.display_name) LIKE ? OR LOWER(creators.display_name) LIKE ?
				OR LOWER(proposals.content_title) LIKE ? OR LOWER(proposals.budget_range) LIKE ?
				OR LOWER(proposals.timeline) LIKE ?`,
				like, like, like, like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, types.Persistence("count proposals", err)
	}

	switch sort {
	case SortOldest:
		q = q.Order("proposals.created_at asc")
	case SortUpdated:
		q = q.Order("proposals.updated_at desc")
	default:
		q = q.Order("proposals.created_at desc")
	}

	var list []types.Proposal
	err := q.Preload("Sponsor").Preload("Creator").
		Limit(page.Limit).Offset(page.Offset).
		Find(&list).Error
	if err != nil {
		return nil, 0, types.Persistence("list proposals", err)
	}
	return list, total, nil
}

func (s *gormStore) CreateMessage(ctx context.Context, m *types.ProposalMessage) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return types.Persistence("create message", err)
	}
	return nil
}

func (s *gormStore) ListMessages(ctx context.Context, proposalID uint64, page Page) ([]types.ProposalMessage, int64, error) {
	page = page.normalized()
	q := s.db.WithContext(ctx).Model(&types.ProposalMessage{}).Where("proposal_id = ?", proposalID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, types.Persistence("count messages", err)
	}
	var list []types.ProposalMessage
	err := q.Order("created_at desc, id desc").Limit(page.Limit).Offset(page.Offset).Find(&list).Error
	if err != nil {
		return nil, 0, types.Persistence("list messages", err)
	}
	return list, total, nil
}

func (s *gormStore) MarkThreadRead(ctx context.Context, proposalID, viewerID uint64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&types.ProposalMessage{}).
		Where("proposal_id = ? AND sender_id <> ? AND is_read = ?", proposalID, viewerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, types.Persistence("mark thread read", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) CountUnread(ctx context.Context, proposalID, viewerID uint64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&types.ProposalMessage{}).
		Where("proposal_id = ? AND sender_id <> ? AND is_read = ?", proposalID, viewerID, false).
		Count(&n).Error
	if err != nil {
		return 0, types.Persistence("count unread", err)
	}
	return n, nil
}

func (s *gormStore) CreateNotification(ctx context.Context, n *types.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return types.Persistence("create notification", err)
	}
	return nil
}

func (s *gormStore) GetNotification(ctx context.Context, id uint64) (*types.Notification, error) {
	var n types.Notification
	err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Entity: "notification", ID: id}
	}
	if err != nil {
		return nil, types.Persistence("get notification", err)
	}
	return &n, nil
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, id uint64, at time.Time) error {
	// Only flips unread rows so read_at is set exactly once.
	res := s.db.WithContext(ctx).
		Model(&types.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return types.Persistence("mark notification read", res.Error)
	}
	return nil
}

func (s *gormStore) ListNotifications(ctx context.Context, f NotificationFilter, page Page) ([]types.Notification, int64, int64, error) {
	page = page.normalized()
	base := s.db.WithContext(ctx).Model(&types.Notification{}).Where("user_id = ?", f.UserID)

	var total, unread int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, 0, types.Persistence("count notifications", err)
	}
	if err := base.Session(&gorm.Session{}).Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return nil, 0, 0, types.Persistence("count unread notifications", err)
	}

	q := base.Session(&gorm.Session{})
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var list []types.Notification
	err := q.Order("created_at desc, id desc").Limit(page.Limit).Offset(page.Offset).Find(&list).Error
	if err != nil {
		return nil, 0, 0, types.Persistence("list notifications", err)
	}
	return list, total, unread, nil
}

func (s *gormStore) GetUser(ctx context.Context, id uint64) (*types.User, error) {
	var u types.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, types.Persistence("get user", err)
	}
	return &u, nil
}
