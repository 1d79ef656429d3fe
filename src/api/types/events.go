package types

// Notification events. Mutations return these instead of writing
// notifications inline, so fan-out can be retried and tested on its own.

type NotificationEvent interface {
	// Recipient is the non-acting party the notification is addressed to.
	Recipient() uint64
	notificationEvent()
}

type ProposalCreated struct {
	ProposalID  uint64
	ContentID   *uint64
	SponsorID   uint64
	CreatorID   uint64
	SponsorName string
	Subject     string
}

func (e ProposalCreated) Recipient() uint64  { return e.CreatorID }
func (e ProposalCreated) notificationEvent() {}

type ProposalResponded struct {
	ProposalID  uint64
	ContentID   *uint64
	SponsorID   uint64
	CreatorID   uint64
	CreatorName string
	Subject     string
	Decision    ProposalStatus // StatusAccepted or StatusRejected
}

func (e ProposalResponded) Recipient() uint64  { return e.SponsorID }
func (e ProposalResponded) notificationEvent() {}

type MessagePosted struct {
	ProposalID  uint64
	ContentID   *uint64
	SenderID    uint64
	RecipientID uint64
	SenderName  string
	Snippet     string // already sanitized, short excerpt only
}

func (e MessagePosted) Recipient() uint64  { return e.RecipientID }
func (e MessagePosted) notificationEvent() {}
