package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
	"github.com/collablink/collab-comms/src/api/validate"
)

// Publisher hands freshly persisted notifications to the delivery side
// (the redis stream the delivery workers consume). Publishing is best
// effort; the durable record is the notification row itself.
type Publisher interface {
	PublishNotification(ctx context.Context, n *types.Notification) error
}

// Fanout turns negotiation events into per-recipient notification
// records. Callers treat Emit as fire-and-forget: a failed write is
// retried and then logged, never propagated back into the transition
// that produced the event.
type Fanout struct {
	store store.Store
	pub   Publisher
}

func NewFanout(st store.Store, pub Publisher) *Fanout {
	return &Fanout{store: st, pub: pub}
}

const emitAttempts = 3

// EmitAll persists one notification per event. Failures are logged; the
// triggering mutation has already committed and is never rolled back.
func (f *Fanout) EmitAll(ctx context.Context, events []types.NotificationEvent) {
	for _, ev := range events {
		if _, err := f.Emit(ctx, ev); err != nil {
			log.Printf("notification fan-out dropped event for user %d: %v", ev.Recipient(), err)
		}
	}
}

// Emit builds and persists exactly one notification for the event's
// recipient, retrying transient store failures.
func (f *Fanout) Emit(ctx context.Context, ev types.NotificationEvent) (*types.Notification, error) {
	n := f.build(ev)
	var err error
	for attempt := 1; attempt <= emitAttempts; attempt++ {
		if err = f.store.CreateNotification(ctx, n); err == nil {
			break
		}
		log.Printf("notification write attempt %d/%d: %v", attempt, emitAttempts, err)
		if attempt == emitAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	if err != nil {
		return nil, err
	}
	if f.pub != nil {
		if perr := f.pub.PublishNotification(ctx, n); perr != nil {
			log.Printf("notification publish: %v", perr)
		}
	}
	return n, nil
}

func (f *Fanout) build(ev types.NotificationEvent) *types.Notification {
	n := &types.Notification{UserID: ev.Recipient()}
	switch e := ev.(type) {
	case types.ProposalCreated:
		n.Type = types.NotifyNewProposal
		n.Title = "New collaboration proposal"
		n.Content = fmt.Sprintf("%s sent you a proposal: %s", e.SponsorName, excerpt(e.Subject))
		n.ProposalID = &e.ProposalID
		n.ContentID = e.ContentID
	case types.ProposalResponded:
		switch e.Decision {
		case types.StatusAccepted:
			n.Type = types.NotifyProposalAccepted
			n.Title = "Proposal accepted"
			n.Content = fmt.Sprintf("%s accepted your proposal: %s", e.CreatorName, excerpt(e.Subject))
		case types.StatusRejected:
			n.Type = types.NotifyProposalRejected
			n.Title = "Proposal declined"
			n.Content = fmt.Sprintf("%s declined your proposal: %s", e.CreatorName, excerpt(e.Subject))
		default:
			n.Type = types.NotifyProposalResponse
			n.Title = "Proposal update"
			n.Content = fmt.Sprintf("%s responded to your proposal: %s", e.CreatorName, excerpt(e.Subject))
		}
		n.ProposalID = &e.ProposalID
		n.ContentID = e.ContentID
	case types.MessagePosted:
		n.Type = types.NotifyNewMessage
		n.Title = "New message"
		n.Content = fmt.Sprintf("%s: %s", e.SenderName, e.Snippet)
		n.ProposalID = &e.ProposalID
		n.ContentID = e.ContentID
	}
	return n
}

func excerpt(s string) string {
	return validate.Summarize(s, 60)
}

type NotificationPage struct {
	Items   []types.Notification
	Total   int64
	Unread  int64
	HasMore bool
}

// MarkRead flips one notification for its own recipient. Idempotent;
// read_at is set on the first call only.
func (f *Fanout) MarkRead(ctx context.Context, callerID, notificationID uint64) (*types.Notification, error) {
	n, err := f.store.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != callerID {
		return nil, types.Unauthorized("notification belongs to another user")
	}
	if n.IsRead {
		return n, nil
	}
	if err := f.store.MarkNotificationRead(ctx, notificationID, time.Now()); err != nil {
		return nil, err
	}
	return f.store.GetNotification(ctx, notificationID)
}

func (f *Fanout) ListByUser(ctx context.Context, userID uint64, unreadOnly bool, page store.Page) (*NotificationPage, error) {
	items, total, unread, err := f.store.ListNotifications(ctx, store.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
	}, page)
	if err != nil {
		return nil, err
	}
	listable := total
	if unreadOnly {
		listable = unread
	}
	return &NotificationPage{
		Items:   items,
		Total:   total,
		Unread:  unread,
		HasMore: int64(page.Offset+len(items)) < listable,
	}, nil
}
