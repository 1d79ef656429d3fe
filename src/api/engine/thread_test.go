package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
)

func post(t *testing.T, eng *Engine, senderID, proposalID uint64, content string) *types.ProposalMessage {
	t.Helper()
	m, events, err := eng.Threads.PostMessage(context.Background(), senderID, proposalID, content, "", "")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	eng.Notify.EmitAll(context.Background(), events)
	return m
}

func unread(t *testing.T, eng *Engine, viewerID, proposalID uint64) int64 {
	t.Helper()
	n, err := eng.Threads.UnreadCount(context.Background(), viewerID, proposalID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	return n
}

func TestUnreadCountFollowsThread(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	for i := 0; i < 3; i++ {
		post(t, eng, creatorID, p.ID, "Here is an update on the collaboration timeline.")
	}
	if got := unread(t, eng, sponsorID, p.ID); got != 3 {
		t.Fatalf("sponsor unread = %d, want 3", got)
	}
	// The sender's own messages never count as unread for the sender.
	if got := unread(t, eng, creatorID, p.ID); got != 0 {
		t.Fatalf("creator unread = %d, want 0", got)
	}

	if _, err := eng.Threads.ListMessages(context.Background(), sponsorID, p.ID, store.Page{}, true); err != nil {
		t.Fatalf("list with mark-as-read: %v", err)
	}
	if got := unread(t, eng, sponsorID, p.ID); got != 0 {
		t.Fatalf("unread after mark = %d, want 0", got)
	}

	post(t, eng, creatorID, p.ID, "One more thing about the schedule.")
	if got := unread(t, eng, sponsorID, p.ID); got != 1 {
		t.Fatalf("unread after new message = %d, want 1", got)
	}
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)
	post(t, eng, creatorID, p.ID, "Checking in about the brief.")

	for i := 0; i < 2; i++ {
		if _, err := eng.Threads.ListMessages(context.Background(), sponsorID, p.ID, store.Page{}, true); err != nil {
			t.Fatalf("mark-as-read pass %d: %v", i+1, err)
		}
		if got := unread(t, eng, sponsorID, p.ID); got != 0 {
			t.Fatalf("pass %d unread = %d, want 0", i+1, got)
		}
	}
}

func TestMarkAsReadNeverTouchesOwnMessages(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)
	post(t, eng, sponsorID, p.ID, "Following up from our side.")

	// The creator reading the thread flips the sponsor's message...
	if _, err := eng.Threads.ListMessages(context.Background(), creatorID, p.ID, store.Page{}, true); err != nil {
		t.Fatalf("list: %v", err)
	}
	// ...but a sender "reading" their own message is a no-op.
	page, err := eng.Threads.ListMessages(context.Background(), sponsorID, p.ID, store.Page{}, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != 1 || !page.Messages[0].IsRead {
		t.Fatalf("messages = %+v", page.Messages)
	}
}

func TestPostMessageGuards(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	if _, _, err := eng.Threads.PostMessage(context.Background(), strangerID, p.ID, "hello", "", ""); !isAuthorization(err) {
		t.Fatalf("stranger post should be an authorization error, got %v", err)
	}
	if _, _, err := eng.Threads.PostMessage(context.Background(), sponsorID, p.ID, "   ", "", ""); !isValidationErr(err) {
		t.Fatalf("blank message should be a validation error, got %v", err)
	}
	if _, _, err := eng.Threads.PostMessage(context.Background(), sponsorID, p.ID, "see attachment", "ftp://example.com/f", "f"); !isValidationErr(err) {
		t.Fatalf("non-http attachment should be a validation error, got %v", err)
	}
}

func TestMessagingStaysOpenAfterDecision(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)
	if _, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusRejected, ""); err != nil {
		t.Fatalf("respond: %v", err)
	}
	post(t, eng, sponsorID, p.ID, "Understood. Thanks for considering it.")

	got, err := eng.Notify.ListByUser(context.Background(), creatorID, true, store.Page{})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	var found bool
	for _, n := range got.Items {
		if n.Type == types.NotifyNewMessage {
			found = true
			if !strings.Contains(n.Content, "Acme Media") {
				t.Fatalf("message notification %q should carry the sender name", n.Content)
			}
		}
	}
	if !found {
		t.Fatalf("no NEW_MESSAGE notification for the creator: %+v", got.Items)
	}
}

func TestListMessagesNewestFirstWithPaging(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)
	post(t, eng, creatorID, p.ID, "first message in the thread")
	post(t, eng, sponsorID, p.ID, "second message in the thread")
	post(t, eng, creatorID, p.ID, "third message in the thread")

	page, err := eng.Threads.ListMessages(context.Background(), sponsorID, p.ID, store.Page{Limit: 2}, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Messages) != 2 || !page.HasMore {
		t.Fatalf("page = total %d, len %d, hasMore %v", page.Total, len(page.Messages), page.HasMore)
	}
	if !strings.HasPrefix(page.Messages[0].Content, "third") {
		t.Fatalf("expected newest first, got %q", page.Messages[0].Content)
	}

	rest, err := eng.Threads.ListMessages(context.Background(), sponsorID, p.ID, store.Page{Limit: 2, Offset: 2}, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rest.Messages) != 1 || rest.HasMore {
		t.Fatalf("rest = len %d, hasMore %v", len(rest.Messages), rest.HasMore)
	}
}

// fakeCache records invalidations so cache wiring can be asserted without
// redis; the redis-backed implementation is covered in the data package.
type fakeCache struct {
	values      map[[2]uint64]int64
	invalidated int
}

func newFakeCache() *fakeCache { return &fakeCache{values: make(map[[2]uint64]int64)} }

func (f *fakeCache) Get(_ context.Context, pid, vid uint64) (int64, bool) {
	n, ok := f.values[[2]uint64{pid, vid}]
	return n, ok
}

func (f *fakeCache) Set(_ context.Context, pid, vid uint64, n int64) {
	f.values[[2]uint64{pid, vid}] = n
}

func (f *fakeCache) Invalidate(_ context.Context, pid uint64) {
	f.invalidated++
	for k := range f.values {
		if k[0] == pid {
			delete(f.values, k)
		}
	}
}

func TestUnreadCacheInvalidation(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedUser(types.User{ID: sponsorID, Username: "acme", DisplayName: "Acme Media", Role: types.RoleSponsor})
	mem.SeedUser(types.User{ID: creatorID, Username: "rivka", DisplayName: "Rivka Chen", Role: types.RoleCreator})
	cache := newFakeCache()
	eng := New(mem, cache, nil)
	p := mustCreate(t, eng)

	post(t, eng, creatorID, p.ID, "warming the cache up next read")
	if got := unread(t, eng, sponsorID, p.ID); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}
	if _, ok := cache.Get(context.Background(), p.ID, sponsorID); !ok {
		t.Fatalf("count not cached after read")
	}

	// A new message must drop the stale entry.
	post(t, eng, creatorID, p.ID, "and another one right after")
	if _, ok := cache.Get(context.Background(), p.ID, sponsorID); ok {
		t.Fatalf("cache not invalidated by post")
	}
	if got := unread(t, eng, sponsorID, p.ID); got != 2 {
		t.Fatalf("unread = %d, want 2", got)
	}

	// Mark-as-read drops it as well.
	if _, err := eng.Threads.ListMessages(context.Background(), sponsorID, p.ID, store.Page{}, true); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := unread(t, eng, sponsorID, p.ID); got != 0 {
		t.Fatalf("unread after mark = %d, want 0", got)
	}
}
