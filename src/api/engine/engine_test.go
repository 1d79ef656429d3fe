package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
)

const (
	sponsorID  = 1
	creatorID  = 2
	strangerID = 99
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	mem := store.NewMemory()
	mem.SeedUser(types.User{ID: sponsorID, Username: "acme", DisplayName: "Acme Media", Role: types.RoleSponsor})
	mem.SeedUser(types.User{ID: creatorID, Username: "rivka", DisplayName: "Rivka Chen", Role: types.RoleCreator})
	mem.SeedUser(types.User{ID: strangerID, Username: "nobody", DisplayName: "No Body", Role: types.RoleCreator})
	return New(mem, nil, nil)
}

func validInput() CreateInput {
	return CreateInput{
		CreatorID: creatorID,
		Subject:   "Sponsored video collaboration",
		Message:   "We would like to sponsor a dedicated video about our new product line.",
	}
}

func mustCreate(t *testing.T, eng *Engine) *types.Proposal {
	t.Helper()
	p, events, err := eng.Proposals.Create(context.Background(), Identity{UserID: sponsorID, Role: types.RoleSponsor}, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	eng.Notify.EmitAll(context.Background(), events)
	return p
}

func strptr(s string) *string { return &s }

func asValidation(err error, target **types.ValidationError) bool {
	return err != nil && errors.As(err, target)
}

func isValidationErr(err error) bool { return errors.Is(err, types.ErrValidation) }
func isAuthorization(err error) bool { return errors.Is(err, types.ErrAuthorization) }
func isInvalidState(err error) bool  { return errors.Is(err, types.ErrInvalidState) }
func isNotFound(err error) bool      { return errors.Is(err, types.ErrNotFound) }

func TestCreateRejectsShortSubject(t *testing.T) {
	eng := newTestEngine(t)
	in := validInput()
	in.Subject = "Hi"

	_, _, err := eng.Proposals.Create(context.Background(), Identity{UserID: sponsorID, Role: types.RoleSponsor}, in)
	var ve *types.ValidationError
	if !asValidation(err, &ve) || ve.Field != "subject" {
		t.Fatalf("expected subject validation error, got %v", err)
	}
	if !strings.Contains(ve.Reason, "minimum 5") {
		t.Fatalf("unexpected reason: %q", ve.Reason)
	}
}

func TestCreateRejectsNonSponsor(t *testing.T) {
	eng := newTestEngine(t)
	_, _, err := eng.Proposals.Create(context.Background(), Identity{UserID: creatorID, Role: types.RoleCreator}, validInput())
	if !isAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestCreateNotifiesCreatorOnly(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	if p.Status != types.StatusPending {
		t.Fatalf("status = %s, want PENDING", p.Status)
	}
	if p.RespondedAt != nil {
		t.Fatalf("responded_at should be nil on a new proposal")
	}

	forCreator, err := eng.Notify.ListByUser(context.Background(), creatorID, false, store.Page{})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if forCreator.Total != 1 || forCreator.Items[0].Type != types.NotifyNewProposal {
		t.Fatalf("creator notifications = %+v", forCreator)
	}
	if got := forCreator.Items[0].Content; !strings.Contains(got, "Acme Media") {
		t.Fatalf("notification content %q should carry the sponsor name", got)
	}

	forSponsor, err := eng.Notify.ListByUser(context.Background(), sponsorID, false, store.Page{})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if forSponsor.Total != 0 {
		t.Fatalf("sponsor should have no notifications, got %d", forSponsor.Total)
	}
}

func TestRespondAcceptSetsRespondedAt(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	updated, events, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusAccepted, "Sounds great, let's do it.")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	eng.Notify.EmitAll(context.Background(), events)

	if updated.Status != types.StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", updated.Status)
	}
	if updated.RespondedAt == nil {
		t.Fatalf("responded_at not set")
	}
	if updated.ResponseMsg == "" {
		t.Fatalf("response message not stored")
	}

	got, err := eng.Notify.ListByUser(context.Background(), sponsorID, false, store.Page{})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if got.Total != 1 || got.Items[0].Type != types.NotifyProposalAccepted {
		t.Fatalf("sponsor notifications = %+v", got)
	}
}

func TestRespondRejectedByWrongRole(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	if _, _, err := eng.Proposals.Respond(context.Background(), sponsorID, p.ID, types.StatusAccepted, ""); !isAuthorization(err) {
		t.Fatalf("sponsor responding should be an authorization error, got %v", err)
	}
	if _, _, err := eng.Proposals.Respond(context.Background(), strangerID, p.ID, types.StatusAccepted, ""); !isAuthorization(err) {
		t.Fatalf("stranger responding should be an authorization error, got %v", err)
	}
}

func TestRespondTwiceFailsWithStateError(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	if _, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusAccepted, ""); err != nil {
		t.Fatalf("first respond: %v", err)
	}
	_, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusRejected, "")
	if !isInvalidState(err) {
		t.Fatalf("second respond should fail with a state error, got %v", err)
	}
}

func TestRespondRejectsBadDecision(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)
	if _, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusArchived, ""); !isValidationErr(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEditOnlySponsorWhilePending(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	updated, err := eng.Proposals.Edit(context.Background(), sponsorID, p.ID, Patch{Subject: strptr("Updated collaboration subject")})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Subject != "Updated collaboration subject" {
		t.Fatalf("subject = %q", updated.Subject)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) && !updated.UpdatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("updated_at did not advance")
	}

	if _, err := eng.Proposals.Edit(context.Background(), creatorID, p.ID, Patch{Subject: strptr("Nope nope nope")}); !isAuthorization(err) {
		t.Fatalf("creator edit should be an authorization error, got %v", err)
	}

	if _, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusRejected, ""); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if _, err := eng.Proposals.Edit(context.Background(), sponsorID, p.ID, Patch{Subject: strptr("Too late anyway")}); !isInvalidState(err) {
		t.Fatalf("post-decision edit should fail with a state error, got %v", err)
	}
}

func TestEditValidatesChangedFields(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	if _, err := eng.Proposals.Edit(context.Background(), sponsorID, p.ID, Patch{Message: strptr("short")}); !isValidationErr(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// An empty patch is a no-op, not an error.
	if _, err := eng.Proposals.Edit(context.Background(), sponsorID, p.ID, Patch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
}

func TestArchiveTransitions(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	// Not reachable from PENDING.
	if _, err := eng.Proposals.Archive(context.Background(), creatorID, p.ID); !isInvalidState(err) {
		t.Fatalf("archiving a pending proposal should fail, got %v", err)
	}

	if _, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusAccepted, ""); err != nil {
		t.Fatalf("respond: %v", err)
	}
	archived, err := eng.Proposals.Archive(context.Background(), creatorID, p.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Status != types.StatusArchived {
		t.Fatalf("status = %s, want ARCHIVED", archived.Status)
	}
	// responded_at survives archival.
	if archived.RespondedAt == nil {
		t.Fatalf("responded_at lost on archive")
	}

	// Archiving again is a no-op returning the terminal state.
	again, err := eng.Proposals.Archive(context.Background(), sponsorID, p.ID)
	if err != nil {
		t.Fatalf("second archive: %v", err)
	}
	if again.Status != types.StatusArchived {
		t.Fatalf("second archive status = %s", again.Status)
	}

	if _, err := eng.Proposals.Archive(context.Background(), strangerID, p.ID); !isAuthorization(err) {
		t.Fatalf("stranger archive should be an authorization error, got %v", err)
	}
}

func TestDeleteIsSponsorOnlyAndFinal(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)

	if err := eng.Proposals.Delete(context.Background(), creatorID, p.ID); !isAuthorization(err) {
		t.Fatalf("creator delete should be an authorization error, got %v", err)
	}
	if err := eng.Proposals.Delete(context.Background(), sponsorID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Removed proposals stop resolving; no further mutations apply.
	if _, err := eng.Proposals.Get(context.Background(), sponsorID, p.ID); !isNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, _, err := eng.Proposals.Respond(context.Background(), creatorID, p.ID, types.StatusAccepted, ""); !isNotFound(err) {
		t.Fatalf("respond after delete should be not found, got %v", err)
	}
}

func TestGetRequiresParty(t *testing.T) {
	eng := newTestEngine(t)
	p := mustCreate(t, eng)
	if _, err := eng.Proposals.Get(context.Background(), strangerID, p.ID); !isAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}
