// Package sales is the single entry point for "a sale has been completed
// at the register; make it durable and, if possible, official". It owns the
// submit-or-enqueue decision and the drain of the offline queue.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/tillpoint/till/internal/queue"
	"github.com/tillpoint/till/internal/ticketid"
	"github.com/tillpoint/till/internal/upstream"
	"github.com/tillpoint/till/pkg/pos"
)

// ErrSyncInFlight is returned when a drain pass is requested while another
// one is still running. Overlapping passes could double-send a ticket that
// the first pass has posted but not yet marked synced.
var ErrSyncInFlight = errors.New("sales: sync already in progress")

// Submitter posts one sale to the central server.
type Submitter interface {
	Submit(ctx context.Context, ticketID string, sale pos.Sale) (*pos.Invoice, error)
}

// Probe reports the terminal's current view of upstream connectivity.
type Probe interface {
	Online() bool
}

// Alerter escalates conditions an operator must see. Implementations must
// not block the sale flow; fire-and-forget is expected.
type Alerter interface {
	Notify(ctx context.Context, subject, body string)
}

// Report summarizes one drain pass.
type Report struct {
	Attempted int  `json:"attempted"`
	Synced    int  `json:"synced"`
	Failed    int  `json:"failed"`
	Halted    bool `json:"halted"` // pass stopped early on a network failure
}

// Snapshot is the operator-visible state of the terminal.
type Snapshot struct {
	Counts  pos.QueueCounts `json:"counts"`
	Online  bool            `json:"online"`
	Syncing bool            `json:"syncing"`
}

// Service orchestrates sale submission and queue drains.
type Service struct {
	store  queue.Store
	client Submitter
	probe  Probe
	alert  Alerter
	logger *slog.Logger

	syncing  atomic.Bool
	newID    func() string
	onChange func()
}

// New creates a Service. alert may be nil.
func New(store queue.Store, client Submitter, probe Probe, alert Alerter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		client: client,
		probe:  probe,
		alert:  alert,
		logger: logger,
		newID:  ticketid.New,
	}
}

// SetOnChange registers a hook invoked after any state change (new ticket,
// status transition). The API server uses it to push status updates to the
// register UI.
func (s *Service) SetOnChange(fn func()) {
	s.onChange = fn
}

// Submit makes a completed sale durable and, when possible, official. It
// never returns an error: the cashier always gets either a confirmed
// invoice or a provisional ticket. The ticket ID is generated before any
// network attempt so every retry reuses the same idempotency key.
func (s *Service) Submit(ctx context.Context, sale pos.Sale) pos.SubmitResult {
	ticketID := s.newID()

	if s.probe.Online() {
		invoice, err := s.client.Submit(ctx, ticketID, sale)
		if err == nil {
			s.logger.Info("sale confirmed online",
				"ticket", ticketID,
				"invoice_no", invoice.InvoiceNo,
			)
			return pos.SubmitResult{TicketID: ticketID, Invoice: invoice}
		}
		// Online but failed: no immediate retry loop. Queue it and let the
		// drain path recover, same as an offline sale.
		s.logger.Warn("online submit failed, queueing sale", "ticket", ticketID, "error", err)
	} else {
		s.logger.Info("terminal offline, queueing sale", "ticket", ticketID)
	}

	s.enqueue(ctx, ticketID, sale)
	s.changed()
	return pos.SubmitResult{TicketID: ticketID, Queued: true}
}

// enqueue persists the ticket. A storage write failure here is a real
// data-loss risk; it is logged and escalated but never propagated, because
// the sale has already been taken at the register.
func (s *Service) enqueue(ctx context.Context, ticketID string, sale pos.Sale) {
	if err := s.store.Insert(ticketID, sale); err != nil {
		s.logger.Error("failed to persist queued sale", "ticket", ticketID, "error", err)
		s.escalate(ctx, "sale not durably queued",
			fmt.Sprintf("ticket %s could not be written to local storage: %v", ticketID, err))
	}
}

// SyncQueued drains the pending queue oldest-first, one ticket at a time.
// A server rejection fails that ticket and moves on; a network failure
// fails the ticket and halts the pass, since the outage affects every
// remaining send equally. Only one pass runs at a time.
func (s *Service) SyncQueued(ctx context.Context) (Report, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInFlight
	}
	defer s.syncing.Store(false)

	pending := s.store.ListPending()
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt < pending[j].CreatedAt
	})

	var rep Report
	for _, t := range pending {
		rep.Attempted++
		invoice, err := s.client.Submit(ctx, t.TicketID, t.Payload)
		if err == nil {
			if serr := s.store.MarkSynced(t.TicketID, invoice.InvoiceNo, invoice.ID); serr != nil {
				s.logger.Error("failed to record synced ticket", "ticket", t.TicketID, "error", serr)
			}
			rep.Synced++
			s.logger.Info("queued sale synced", "ticket", t.TicketID, "invoice_no", invoice.InvoiceNo)
			continue
		}

		rep.Failed++
		if serr := s.store.MarkError(t.TicketID, err.Error()); serr != nil {
			s.logger.Error("failed to record ticket error", "ticket", t.TicketID, "error", serr)
		}

		if !upstream.IsRejection(err) {
			// Network-level failure: the rest of the queue would fail the
			// same way, so stop here and wait for the next trigger.
			s.logger.Warn("sync halted on network failure", "ticket", t.TicketID, "error", err)
			rep.Halted = true
			break
		}
		s.logger.Warn("queued sale rejected by server", "ticket", t.TicketID, "error", err)
	}

	if rep.Attempted > 0 {
		s.changed()
	}
	if rep.Failed > 0 {
		s.escalate(ctx, "sale sync finished with failures",
			fmt.Sprintf("attempted %d, synced %d, failed %d (halted=%v)",
				rep.Attempted, rep.Synced, rep.Failed, rep.Halted))
	}
	return rep, nil
}

// Status returns the operator-visible snapshot of queue and sync state.
func (s *Service) Status() Snapshot {
	return Snapshot{
		Counts:  s.store.Counts(),
		Online:  s.probe.Online(),
		Syncing: s.syncing.Load(),
	}
}

func (s *Service) escalate(ctx context.Context, subject, body string) {
	if s.alert == nil {
		return
	}
	s.alert.Notify(ctx, subject, body)
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
