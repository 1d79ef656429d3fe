package engine

import (
	"context"
	"errors"
	"time"

	"github.com/collablink/collab-comms/src/api/permission"
	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
	"github.com/collablink/collab-comms/src/api/validate"
)

// Proposals owns the proposal lifecycle. Mutations return the updated
// entity plus the notification events the caller should hand to Fanout;
// the write and the emission are deliberately separated so fan-out can be
// retried without re-running the transition.
type Proposals struct {
	store store.Store
}

func NewProposals(st store.Store) *Proposals {
	return &Proposals{store: st}
}

type CreateInput struct {
	CreatorID    uint64
	ContentID    *uint64
	ContentTitle string
	Subject      string
	Message      string
	BudgetRange  string
	Timeline     string
}

type Patch struct {
	Subject      *string
	Message      *string
	BudgetRange  *string
	Timeline     *string
	ContentID    *uint64
	ContentTitle *string
}

func (s *Proposals) Create(ctx context.Context, caller Identity, in CreateInput) (*types.Proposal, []types.NotificationEvent, error) {
	if caller.Role != types.RoleSponsor {
		return nil, nil, types.Unauthorized("only sponsors may create proposals")
	}
	if in.CreatorID == 0 || in.CreatorID == caller.UserID {
		return nil, nil, types.Invalid("creatorId", "must reference another account")
	}

	subject := validate.Sanitize(in.Subject)
	message := validate.Sanitize(in.Message)
	budget := validate.Sanitize(in.BudgetRange)
	timeline := validate.Sanitize(in.Timeline)
	for _, check := range []error{
		validate.Subject(subject),
		validate.Message(message),
		validate.BudgetRange(budget),
		validate.Timeline(timeline),
	} {
		if check != nil {
			return nil, nil, check
		}
	}

	creator, err := s.store.GetUser(ctx, in.CreatorID)
	if err != nil {
		return nil, nil, err
	}
	if creator.Role != types.RoleCreator {
		return nil, nil, types.Invalid("creatorId", "recipient is not a creator account")
	}
	sponsor, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, nil, err
	}

	p := &types.Proposal{
		SponsorID:    caller.UserID,
		CreatorID:    in.CreatorID,
		ContentID:    in.ContentID,
		ContentTitle: validate.Sanitize(in.ContentTitle),
		Subject:      subject,
		Message:      message,
		BudgetRange:  budget,
		Timeline:     timeline,
		Status:       types.StatusPending,
	}
	if err := s.store.CreateProposal(ctx, p); err != nil {
		return nil, nil, err
	}

	ev := types.ProposalCreated{
		ProposalID:  p.ID,
		ContentID:   p.ContentID,
		SponsorID:   p.SponsorID,
		CreatorID:   p.CreatorID,
		SponsorName: sponsor.DisplayName,
		Subject:     p.Subject,
	}
	return p, []types.NotificationEvent{ev}, nil
}

// Get fetches one proposal for a party to it.
func (s *Proposals) Get(ctx context.Context, callerID, proposalID uint64) (*types.Proposal, error) {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !permission.IsParty(p, callerID) {
		return nil, types.Unauthorized("not a party to this proposal")
	}
	return p, nil
}

func (s *Proposals) Edit(ctx context.Context, callerID, proposalID uint64, patch Patch) (*types.Proposal, error) {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if callerID != p.SponsorID {
		return nil, types.Unauthorized("only the sponsor may edit this proposal")
	}
	if !permission.CanEdit(p, callerID) {
		return nil, &types.StateError{Status: p.Status, Action: "edit"}
	}

	changes := make(map[string]any)
	if patch.Subject != nil {
		v := validate.Sanitize(*patch.Subject)
		if err := validate.Subject(v); err != nil {
			return nil, err
		}
		changes["subject"] = v
	}
	if patch.Message != nil {
		v := validate.Sanitize(*patch.Message)
		if err := validate.Message(v); err != nil {
			return nil, err
		}
		changes["message"] = v
	}
	if patch.BudgetRange != nil {
		v := validate.Sanitize(*patch.BudgetRange)
		if err := validate.BudgetRange(v); err != nil {
			return nil, err
		}
		changes["budget_range"] = v
	}
	if patch.Timeline != nil {
		v := validate.Sanitize(*patch.Timeline)
		if err := validate.Timeline(v); err != nil {
			return nil, err
		}
		changes["timeline"] = v
	}
	if patch.ContentID != nil {
		changes["content_id"] = patch.ContentID
	}
	if patch.ContentTitle != nil {
		changes["content_title"] = validate.Sanitize(*patch.ContentTitle)
	}
	if len(changes) == 0 {
		return p, nil
	}

	updated, err := s.store.TransitionProposal(ctx, proposalID, types.StatusPending, types.StatusPending, changes)
	if err != nil {
		return nil, s.classifyRace(ctx, proposalID, "edit", err)
	}
	return updated, nil
}

func (s *Proposals) Respond(ctx context.Context, callerID, proposalID uint64, decision types.ProposalStatus, responseMsg string) (*types.Proposal, []types.NotificationEvent, error) {
	if !decision.Responded() {
		return nil, nil, types.Invalid("decision", "must be ACCEPTED or REJECTED")
	}
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if callerID != p.CreatorID {
		return nil, nil, types.Unauthorized("only the creator may respond to this proposal")
	}
	if !permission.CanRespond(p, callerID) {
		return nil, nil, &types.StateError{Status: p.Status, Action: "respond to"}
	}

	response := validate.Sanitize(responseMsg)
	if err := validate.ResponseMessage(response); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	changes := map[string]any{
		"responded_at":     &now,
		"response_message": response,
	}
	updated, err := s.store.TransitionProposal(ctx, proposalID, types.StatusPending, decision, changes)
	if err != nil {
		return nil, nil, s.classifyRace(ctx, proposalID, "respond to", err)
	}

	ev := types.ProposalResponded{
		ProposalID:  updated.ID,
		ContentID:   updated.ContentID,
		SponsorID:   updated.SponsorID,
		CreatorID:   updated.CreatorID,
		CreatorName: updated.Creator.DisplayName,
		Subject:     updated.Subject,
		Decision:    decision,
	}
	return updated, []types.NotificationEvent{ev}, nil
}

// Archive moves an answered proposal to its terminal housekeeping state.
// Archiving an already-archived proposal is a no-op, not an error. No
// notification is emitted; archival is not a negotiation event.
func (s *Proposals) Archive(ctx context.Context, callerID, proposalID uint64) (*types.Proposal, error) {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !permission.IsParty(p, callerID) {
		return nil, types.Unauthorized("not a party to this proposal")
	}
	if p.Status == types.StatusArchived {
		return p, nil
	}
	if !permission.CanArchive(p, callerID) {
		return nil, &types.StateError{Status: p.Status, Action: "archive"}
	}

	updated, err := s.store.TransitionProposal(ctx, proposalID, p.Status, types.StatusArchived, nil)
	if err == nil {
		return updated, nil
	}
	// A concurrent archive by the other party is still a no-op for us.
	if errors.Is(err, types.ErrConflict) {
		current, gerr := s.store.GetProposal(ctx, proposalID)
		if gerr == nil && current.Status == types.StatusArchived {
			return current, nil
		}
	}
	return nil, s.classifyRace(ctx, proposalID, "archive", err)
}

// Delete is the sponsor's soft remove, permitted in any status. Once
// removed the proposal stops resolving and no further mutations apply.
func (s *Proposals) Delete(ctx context.Context, callerID, proposalID uint64) error {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if !permission.CanDelete(p, callerID) {
		return types.Unauthorized("only the sponsor may delete this proposal")
	}
	return s.store.RemoveProposal(ctx, proposalID)
}

// classifyRace turns a lost conditional update into the error the caller
// should see: if the status has moved on it is a state problem, otherwise
// the conflict surfaces as-is so the caller can re-fetch and retry.
func (s *Proposals) classifyRace(ctx context.Context, proposalID uint64, action string, err error) error {
	if !errors.Is(err, types.ErrConflict) {
		return err
	}
	current, gerr := s.store.GetProposal(ctx, proposalID)
	if gerr != nil {
		return gerr
	}
	if current.Status != types.StatusPending {
		return &types.StateError{Status: current.Status, Action: action}
	}
	return err
}
