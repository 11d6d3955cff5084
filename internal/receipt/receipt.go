// Package receipt renders the plain-text register receipt. The only thing
// that differs between a confirmed and a provisional sale is the document
// number authority: line items and totals render identically.
package receipt

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillpoint/till/internal/ticketid"
	"github.com/tillpoint/till/pkg/pos"
)

// ProvisionalNotice is printed on every receipt that carries a ticket ID
// instead of a server-issued invoice number.
const ProvisionalNotice = "PROVISIONAL TICKET - official invoice\nnumber will be assigned upon sync"

const width = 40

// Renderer formats receipts for one terminal.
type Renderer struct {
	storeName string
	terminal  string
	printer   *message.Printer
}

// New creates a renderer. storeName and terminal appear in the header.
func New(storeName, terminal string) *Renderer {
	return &Renderer{
		storeName: storeName,
		terminal:  terminal,
		printer:   message.NewPrinter(language.English),
	}
}

// Render produces the receipt for a submitted sale. invoice is nil for a
// provisional (queued) sale.
func (r *Renderer) Render(sale pos.Sale, ticketID string, invoice *pos.Invoice) string {
	var b strings.Builder

	center(&b, r.storeName)
	if r.terminal != "" {
		center(&b, "Terminal "+r.terminal)
	}
	center(&b, time.UnixMilli(sale.SoldAt).Format("2006-01-02 15:04"))
	rule(&b)

	if invoice != nil {
		fmt.Fprintf(&b, "Invoice #%d\n", invoice.InvoiceNo)
	} else {
		fmt.Fprintf(&b, "Ticket %s\n", ticketid.Suffix(ticketID))
	}
	rule(&b)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, item := range sale.Items {
		fmt.Fprintf(tw, "%dx %s\t%s\n", item.Quantity, item.Name, r.amount(sale.Currency, item.Total))
	}
	tw.Flush()
	rule(&b)

	fmt.Fprintf(&b, "TOTAL  %s\n", r.amount(sale.Currency, sale.Total))
	fmt.Fprintf(&b, "Tender: %s\n", sale.Tender)
	if sale.CustomerID != "" {
		fmt.Fprintf(&b, "Customer: %s\n", sale.CustomerID)
	}

	if invoice == nil {
		rule(&b)
		center(&b, "*** "+ProvisionalNotice+" ***")
	}
	return b.String()
}

// RenderTicket re-renders the receipt for a queued ticket, e.g. a reprint.
// A ticket that has synced since the original print shows its confirmed
// invoice number.
func (r *Renderer) RenderTicket(t pos.Ticket) string {
	if t.Status == pos.TicketSynced {
		return r.Render(t.Payload, t.TicketID, &pos.Invoice{InvoiceNo: t.InvoiceNo, ID: t.InvoiceID})
	}
	return r.Render(t.Payload, t.TicketID, nil)
}

// amount formats minor units in the sale's currency. Unknown currency codes
// fall back to a bare decimal rather than failing the print.
func (r *Renderer) amount(code string, cents int64) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f", float64(cents)/100)
	}
	return r.printer.Sprint(currency.Symbol(unit.Amount(float64(cents) / 100)))
}

func center(b *strings.Builder, s string) {
	for _, line := range strings.Split(s, "\n") {
		if pad := (width - len([]rune(line))) / 2; pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", width))
	b.WriteByte('\n')
}
