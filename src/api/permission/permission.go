// Package permission answers whether a caller may perform an action on a
// proposal, given their relationship to it and its current status. All
// predicates are pure, never error, and return false for the zero caller
// id (unauthenticated); surfacing the failure is the caller's job.
package permission

import "github.com/collablink/collab-comms/src/api/types"

// IsParty reports whether the caller is one of the proposal's two sides.
func IsParty(p *types.Proposal, callerID uint64) bool {
	_, ok := p.RoleOf(callerID)
	return ok
}

// CanEdit: only the sponsor, and only while the proposal is unanswered.
func CanEdit(p *types.Proposal, callerID uint64) bool {
	return callerID != 0 && callerID == p.SponsorID && p.Status == types.StatusPending
}

// CanRespond: only the creator, and only while the proposal is unanswered.
func CanRespond(p *types.Proposal, callerID uint64) bool {
	return callerID != 0 && callerID == p.CreatorID && p.Status == types.StatusPending
}

// CanDelete: the sponsor may remove their own outgoing proposal in any status.
func CanDelete(p *types.Proposal, callerID uint64) bool {
	return callerID != 0 && callerID == p.SponsorID
}

// CanMessage: either party, in any status. The thread stays open after the
// decision so the two sides can coordinate.
func CanMessage(p *types.Proposal, callerID uint64) bool {
	return IsParty(p, callerID)
}

// CanArchive: either party, once the proposal has been answered.
func CanArchive(p *types.Proposal, callerID uint64) bool {
	return IsParty(p, callerID) && p.Status.Responded()
}
