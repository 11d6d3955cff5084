package receipt

import (
	"strings"
	"testing"

	"github.com/tillpoint/till/pkg/pos"
)

func testSale() pos.Sale {
	return pos.Sale{
		Items: []pos.LineItem{
			{SKU: "A1", Name: "Widget", Quantity: 2, UnitPrice: 250, Total: 500},
			{SKU: "B2", Name: "Gadget", Quantity: 1, UnitPrice: 542, Total: 542},
		},
		Tender:   "card",
		Currency: "USD",
		Total:    1042,
		SoldAt:   1700000000000,
	}
}

func TestConfirmedReceipt(t *testing.T) {
	r := New("Corner Shop", "t-01")
	out := r.Render(testSale(), "pos-123-abc", &pos.Invoice{InvoiceNo: 1042, ID: "inv-1042"})

	if !strings.Contains(out, "Invoice #1042") {
		t.Errorf("expected invoice label, got:\n%s", out)
	}
	if strings.Contains(out, "PROVISIONAL") {
		t.Errorf("confirmed receipt must not carry the provisional notice:\n%s", out)
	}
	if strings.Contains(out, "Ticket abc") {
		t.Errorf("confirmed receipt must not show the ticket label:\n%s", out)
	}
}

func TestProvisionalReceipt(t *testing.T) {
	r := New("Corner Shop", "t-01")
	out := r.Render(testSale(), "pos-123-abc", nil)

	if !strings.Contains(out, "Ticket abc") {
		t.Errorf("expected short ticket label, got:\n%s", out)
	}
	if !strings.Contains(out, "PROVISIONAL TICKET") {
		t.Errorf("expected provisional notice, got:\n%s", out)
	}
	if strings.Contains(out, "Invoice #") {
		t.Errorf("provisional receipt must not show an invoice number:\n%s", out)
	}
}

func TestSaleContentIdenticalEitherWay(t *testing.T) {
	r := New("Corner Shop", "t-01")
	confirmed := r.Render(testSale(), "pos-123-abc", &pos.Invoice{InvoiceNo: 7, ID: "inv-7"})
	provisional := r.Render(testSale(), "pos-123-abc", nil)

	for _, want := range []string{"2x Widget", "1x Gadget", "5.00", "5.42", "10.42", "Tender: card"} {
		if !strings.Contains(confirmed, want) {
			t.Errorf("confirmed receipt missing %q:\n%s", want, confirmed)
		}
		if !strings.Contains(provisional, want) {
			t.Errorf("provisional receipt missing %q:\n%s", want, provisional)
		}
	}
}

func TestRenderTicketBranchesOnStatus(t *testing.T) {
	r := New("Corner Shop", "t-01")

	ticket := pos.Ticket{
		TicketID:  "pos-123-abc",
		Payload:   testSale(),
		CreatedAt: 1700000000000,
		Status:    pos.TicketPending,
	}
	if out := r.RenderTicket(ticket); !strings.Contains(out, "PROVISIONAL TICKET") {
		t.Errorf("pending ticket reprint must stay provisional:\n%s", out)
	}

	ticket.Status = pos.TicketSynced
	ticket.InvoiceNo = 55
	ticket.InvoiceID = "inv-55"
	out := r.RenderTicket(ticket)
	if !strings.Contains(out, "Invoice #55") {
		t.Errorf("synced ticket reprint must show the invoice:\n%s", out)
	}
	if strings.Contains(out, "PROVISIONAL") {
		t.Errorf("synced ticket reprint must not be provisional:\n%s", out)
	}
}

func TestUnknownCurrencyFallsBack(t *testing.T) {
	r := New("Corner Shop", "")
	sale := testSale()
	sale.Currency = "???"
	out := r.Render(sale, "pos-1-a", nil)
	if !strings.Contains(out, "10.42") {
		t.Errorf("expected bare decimal fallback, got:\n%s", out)
	}
}
