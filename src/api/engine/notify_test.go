package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
)

func TestEmitBuildsOneRecordPerEvent(t *testing.T) {
	eng := newTestEngine(t)
	pid := uint64(7)

	cases := []struct {
		name     string
		event    types.NotificationEvent
		wantUser uint64
		wantType types.NotificationType
		contains string
	}{
		{
			name: "proposal created",
			event: types.ProposalCreated{
				ProposalID: pid, SponsorID: sponsorID, CreatorID: creatorID,
				SponsorName: "Acme Media", Subject: "Video collaboration",
			},
			wantUser: creatorID,
			wantType: types.NotifyNewProposal,
			contains: "Acme Media sent you a proposal",
		},
		{
			name: "proposal accepted",
			event: types.ProposalResponded{
				ProposalID: pid, SponsorID: sponsorID, CreatorID: creatorID,
				CreatorName: "Rivka Chen", Subject: "Video collaboration",
				Decision: types.StatusAccepted,
			},
			wantUser: sponsorID,
			wantType: types.NotifyProposalAccepted,
			contains: "accepted your proposal",
		},
		{
			name: "proposal rejected",
			event: types.ProposalResponded{
				ProposalID: pid, SponsorID: sponsorID, CreatorID: creatorID,
				CreatorName: "Rivka Chen", Subject: "Video collaboration",
				Decision: types.StatusRejected,
			},
			wantUser: sponsorID,
			wantType: types.NotifyProposalRejected,
			contains: "declined your proposal",
		},
		{
			name: "message posted",
			event: types.MessagePosted{
				ProposalID: pid, SenderID: creatorID, RecipientID: sponsorID,
				SenderName: "Rivka Chen", Snippet: "see the draft",
			},
			wantUser: sponsorID,
			wantType: types.NotifyNewMessage,
			contains: "Rivka Chen: see the draft",
		},
	}

	for _, tc := range cases {
		n, err := eng.Notify.Emit(context.Background(), tc.event)
		if err != nil {
			t.Fatalf("%s: emit: %v", tc.name, err)
		}
		if n.UserID != tc.wantUser {
			t.Fatalf("%s: recipient = %d, want %d", tc.name, n.UserID, tc.wantUser)
		}
		if n.Type != tc.wantType {
			t.Fatalf("%s: type = %s, want %s", tc.name, n.Type, tc.wantType)
		}
		if !strings.Contains(n.Content, tc.contains) {
			t.Fatalf("%s: content %q missing %q", tc.name, n.Content, tc.contains)
		}
		if n.ProposalID == nil || *n.ProposalID != pid {
			t.Fatalf("%s: proposal back-reference missing", tc.name)
		}
		if n.IsRead {
			t.Fatalf("%s: new notification must be unread", tc.name)
		}
	}
}

// flakyStore refuses notification writes so the retry path is reachable.
type flakyStore struct {
	store.Store
}

func (s flakyStore) CreateNotification(context.Context, *types.Notification) error {
	return types.Persistence("create notification", errors.New("connection reset"))
}

func TestEmitStopsRetryingWhenContextCancelled(t *testing.T) {
	fanout := NewFanout(flakyStore{Store: store.NewMemory()}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := fanout.Emit(ctx, types.MessagePosted{
		ProposalID: 1, SenderID: creatorID, RecipientID: sponsorID,
		SenderName: "Rivka Chen", Snippet: "ping",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The first attempt runs, but no retry backoff is waited out.
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("emit blocked %v after cancellation", elapsed)
	}
}

func TestMarkReadIsRecipientOnlyAndIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	n, err := eng.Notify.Emit(context.Background(), types.MessagePosted{
		ProposalID: 1, SenderID: creatorID, RecipientID: sponsorID,
		SenderName: "Rivka Chen", Snippet: "ping",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	if _, err := eng.Notify.MarkRead(context.Background(), creatorID, n.ID); !isAuthorization(err) {
		t.Fatalf("non-recipient mark-read should be an authorization error, got %v", err)
	}

	first, err := eng.Notify.MarkRead(context.Background(), sponsorID, n.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !first.IsRead || first.ReadAt == nil {
		t.Fatalf("notification not marked: %+v", first)
	}

	second, err := eng.Notify.MarkRead(context.Background(), sponsorID, n.ID)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("read_at must be set exactly once")
	}

	if _, err := eng.Notify.MarkRead(context.Background(), sponsorID, 12345); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListByUserCountsAndFilters(t *testing.T) {
	eng := newTestEngine(t)
	for i := 0; i < 3; i++ {
		if _, err := eng.Notify.Emit(context.Background(), types.MessagePosted{
			ProposalID: 1, SenderID: creatorID, RecipientID: sponsorID,
			SenderName: "Rivka Chen", Snippet: "update",
		}); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}
	page, err := eng.Notify.ListByUser(context.Background(), sponsorID, false, store.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.Unread != 3 {
		t.Fatalf("total %d unread %d, want 3/3", page.Total, page.Unread)
	}

	if _, err := eng.Notify.MarkRead(context.Background(), sponsorID, page.Items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unreadOnly, err := eng.Notify.ListByUser(context.Background(), sponsorID, true, store.Page{})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unreadOnly.Items) != 2 || unreadOnly.Total != 3 || unreadOnly.Unread != 2 {
		t.Fatalf("unreadOnly = len %d total %d unread %d", len(unreadOnly.Items), unreadOnly.Total, unreadOnly.Unread)
	}
}
