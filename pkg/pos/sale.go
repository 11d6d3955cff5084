package pos

// LineItem is a single product line on a sale.
type LineItem struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"` // minor units (cents)
	Total     int64  `json:"total"`      // minor units (cents)
}

// Sale is the payload of a completed register transaction. From the queue's
// perspective it is opaque; only the orchestrator and the receipt renderer
// look inside.
type Sale struct {
	Reference  string     `json:"reference,omitempty"` // terminal-local sale reference
	TicketID   string     `json:"ticketId,omitempty"`  // attached before the first submit attempt
	Items      []LineItem `json:"items"`
	CustomerID string     `json:"customer_id,omitempty"`
	Tender     string     `json:"tender"`   // e.g. "cash", "card"
	Currency   string     `json:"currency"` // ISO 4217, e.g. "USD"
	Total      int64      `json:"total"`    // minor units (cents)
	SoldAt     int64      `json:"sold_at"`  // ms since epoch
}

// Invoice is the authoritative record the central server issues for an
// accepted sale.
type Invoice struct {
	InvoiceNo int64  `json:"invoice_no"`
	ID        string `json:"id"`
}

// SubmitResult is what the register UI gets back for a completed sale:
// either a confirmed invoice or a provisional ticket, never an error.
type SubmitResult struct {
	TicketID string   `json:"ticketId"`
	Queued   bool     `json:"queued"`
	Invoice  *Invoice `json:"invoice,omitempty"`
}

// Confirmed reports whether the sale has an authoritative invoice number.
func (r SubmitResult) Confirmed() bool {
	return r.Invoice != nil
}

// QueueCounts aggregates the queue by status for operator visibility.
type QueueCounts struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Error   int `json:"error"`
}
