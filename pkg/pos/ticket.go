package pos

// TicketStatus represents the sync lifecycle state of a queued sale.
type TicketStatus string

const (
	// TicketPending means the sale is durably queued and awaiting upload.
	TicketPending TicketStatus = "pending"
	// TicketSynced means the server accepted the sale and issued an invoice.
	TicketSynced TicketStatus = "synced"
	// TicketError means the last upload attempt failed; the ticket stays in
	// the queue and is retried on the next drain.
	TicketError TicketStatus = "error"
)

// Ticket is a locally durable record of one sale awaiting (or having
// completed) upload to the central server. The ticket ID doubles as the
// idempotency key for every submission attempt, so a ticket is never
// double-created upstream no matter how often it is retried.
type Ticket struct {
	TicketID  string       `json:"ticketId"`
	Payload   Sale         `json:"payload"`
	CreatedAt int64        `json:"createdAt"` // ms since epoch, local enqueue time
	Status    TicketStatus `json:"status"`
	LastError string       `json:"lastError,omitempty"`
	InvoiceNo int64        `json:"invoiceNo,omitempty"`
	InvoiceID string       `json:"invoiceId,omitempty"`
}
