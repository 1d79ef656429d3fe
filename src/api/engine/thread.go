package engine

import (
	"context"

	"github.com/collablink/collab-comms/src/api/permission"
	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
	"github.com/collablink/collab-comms/src/api/validate"
)

// UnreadCache is an optional read-through cache for unread counts, keyed
// by (proposal, viewer). Counts are always recomputable from the store;
// the cache only shortcuts the hot read path and is invalidated on every
// write to the thread.
type UnreadCache interface {
	Get(ctx context.Context, proposalID, viewerID uint64) (int64, bool)
	Set(ctx context.Context, proposalID, viewerID uint64, n int64)
	Invalidate(ctx context.Context, proposalID uint64)
}

// Threads appends to a proposal's message thread and tracks what each
// party has read.
type Threads struct {
	store store.Store
	cache UnreadCache
}

func NewThreads(st store.Store, cache UnreadCache) *Threads {
	return &Threads{store: st, cache: cache}
}

type ThreadPage struct {
	Messages []types.ProposalMessage
	Total    int64
	HasMore  bool
}

func (t *Threads) PostMessage(ctx context.Context, senderID, proposalID uint64, content, attachmentURL, attachmentName string) (*types.ProposalMessage, []types.NotificationEvent, error) {
	p, err := t.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if !permission.CanMessage(p, senderID) {
		return nil, nil, types.Unauthorized("not a party to this proposal")
	}

	body := validate.Sanitize(content)
	if err := validate.ThreadContent(body); err != nil {
		return nil, nil, err
	}
	attachmentName = validate.Sanitize(attachmentName)
	if err := validate.Attachment(attachmentURL, attachmentName); err != nil {
		return nil, nil, err
	}

	m := &types.ProposalMessage{
		ProposalID:     proposalID,
		SenderID:       senderID,
		Content:        body,
		AttachmentURL:  attachmentURL,
		AttachmentName: attachmentName,
	}
	if err := t.store.CreateMessage(ctx, m); err != nil {
		return nil, nil, err
	}
	if t.cache != nil {
		t.cache.Invalidate(ctx, proposalID)
	}

	senderName := p.Sponsor.DisplayName
	if senderID == p.CreatorID {
		senderName = p.Creator.DisplayName
	}
	ev := types.MessagePosted{
		ProposalID:  proposalID,
		ContentID:   p.ContentID,
		SenderID:    senderID,
		RecipientID: p.CounterpartyOf(senderID),
		SenderName:  senderName,
		Snippet:     validate.Summarize(body, 80),
	}
	return m, []types.NotificationEvent{ev}, nil
}

// ListMessages returns the thread newest-first. With markAsRead set it
// also flips every unread message not sent by the viewer; this is the
// only path that mutates is_read and repeating it is a no-op.
func (t *Threads) ListMessages(ctx context.Context, viewerID, proposalID uint64, page store.Page, markAsRead bool) (*ThreadPage, error) {
	p, err := t.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !permission.CanMessage(p, viewerID) {
		return nil, types.Unauthorized("not a party to this proposal")
	}

	if markAsRead {
		flipped, err := t.store.MarkThreadRead(ctx, proposalID, viewerID)
		if err != nil {
			return nil, err
		}
		if flipped > 0 && t.cache != nil {
			t.cache.Invalidate(ctx, proposalID)
		}
	}

	msgs, total, err := t.store.ListMessages(ctx, proposalID, page)
	if err != nil {
		return nil, err
	}
	return &ThreadPage{
		Messages: msgs,
		Total:    total,
		HasMore:  int64(page.Offset+len(msgs)) < total,
	}, nil
}

// UnreadCount derives the viewer's unread total for one proposal. The
// value is never stored as a mutable counter; the cache, when present,
// holds a recomputable copy only.
func (t *Threads) UnreadCount(ctx context.Context, viewerID, proposalID uint64) (int64, error) {
	if t.cache != nil {
		if n, ok := t.cache.Get(ctx, proposalID, viewerID); ok {
			return n, nil
		}
	}
	n, err := t.store.CountUnread(ctx, proposalID, viewerID)
	if err != nil {
		return 0, err
	}
	if t.cache != nil {
		t.cache.Set(ctx, proposalID, viewerID, n)
	}
	return n, nil
}
