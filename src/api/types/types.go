package types

import "time"

// Party roles. Closed set; every permission check switches on these two.
type Role string

const (
	RoleSponsor Role = "sponsor"
	RoleCreator Role = "creator"
)

func (r Role) Valid() bool {
	return r == RoleSponsor || r == RoleCreator
}

// Proposal lifecycle.
type ProposalStatus string

const (
	StatusPending  ProposalStatus = "PENDING"
	StatusAccepted ProposalStatus = "ACCEPTED"
	StatusRejected ProposalStatus = "REJECTED"
	StatusArchived ProposalStatus = "ARCHIVED"
)

// Responded reports whether the status carries a creator decision.
func (s ProposalStatus) Responded() bool {
	return s == StatusAccepted || s == StatusRejected
}

type NotificationType string

const (
	NotifyNewProposal      NotificationType = "NEW_PROPOSAL"
	NotifyProposalResponse NotificationType = "PROPOSAL_RESPONSE"
	NotifyNewMessage       NotificationType = "NEW_MESSAGE"
	NotifyProposalAccepted NotificationType = "PROPOSAL_ACCEPTED"
	NotifyProposalRejected NotificationType = "PROPOSAL_REJECTED"
)

// Platform accounts
type User struct {
	ID          uint64 `gorm:"primaryKey"`
	Username    string `gorm:"size:64;unique;not null"`
	DisplayName string `gorm:"size:128;not null"`
	Role        Role   `gorm:"size:16;not null"`
	CreatedAt   time.Time
}

// Proposals between a sponsor and a creator
type Proposal struct {
	ID          uint64 `gorm:"primaryKey"`
	SponsorID   uint64 `gorm:"index;not null"`
	CreatorID   uint64 `gorm:"index;not null"`
	ContentID   *uint64
	Subject     string         `gorm:"size:255;not null"`
	Message     string         `gorm:"type:text;not null"`
	BudgetRange string         `gorm:"size:128"`
	Timeline    string         `gorm:"size:512"`
	Status      ProposalStatus `gorm:"size:16;index;not null;default:PENDING"`
	RespondedAt *time.Time
	ResponseMsg string `gorm:"size:2048;column:response_message"`
	// Sponsor-only soft delete, deliberately outside the status enum.
	Removed   bool `gorm:"default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Sponsor  User              `gorm:"foreignKey:SponsorID"`
	Creator  User              `gorm:"foreignKey:CreatorID"`
	Messages []ProposalMessage `gorm:"foreignKey:ProposalID"`
	// Denormalized title of the referenced content item, if any.
	ContentTitle string `gorm:"size:255"`
}

// Thread messages
type ProposalMessage struct {
	ID             uint64 `gorm:"primaryKey"`
	ProposalID     uint64 `gorm:"index;not null"`
	SenderID       uint64 `gorm:"index;not null"`
	Content        string `gorm:"size:2048;not null"`
	AttachmentURL  string `gorm:"size:2048"`
	AttachmentName string `gorm:"size:255"`
	IsRead         bool   `gorm:"default:false;index"`
	CreatedAt      time.Time

	Proposal Proposal `gorm:"foreignKey:ProposalID"`
}

// Notification fan-out records
type Notification struct {
	ID         uint64           `gorm:"primaryKey"`
	UserID     uint64           `gorm:"index;not null"`
	Type       NotificationType `gorm:"size:32;not null"`
	Title      string           `gorm:"size:255;not null"`
	Content    string           `gorm:"size:512"`
	ProposalID *uint64          `gorm:"index"`
	ContentID  *uint64
	IsRead     bool `gorm:"default:false;index"`
	ReadAt     *time.Time
	CreatedAt  time.Time
}

// RoleOf returns the caller's side of the proposal, or false when the
// caller is neither party.
func (p *Proposal) RoleOf(userID uint64) (Role, bool) {
	switch userID {
	case 0:
		return "", false
	case p.SponsorID:
		return RoleSponsor, true
	case p.CreatorID:
		return RoleCreator, true
	}
	return "", false
}

// CounterpartyOf returns the other party of the proposal relative to actor.
func (p *Proposal) CounterpartyOf(actorID uint64) uint64 {
	if actorID == p.SponsorID {
		return p.CreatorID
	}
	return p.SponsorID
}
