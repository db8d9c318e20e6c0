package events

// Topic constants for domain events emitted by the backend.
const (
	TopicTicketPosted      = "ticket.posted"
	TopicTicketClosed      = "ticket.closed"
	TopicTicketReopened    = "ticket.reopened"
	TopicTicketDeleted     = "ticket.deleted"
	TopicSalesDaySubmitted = "salesday.submitted"
	TopicRollupCompleted   = "report.rollup_completed"
)
