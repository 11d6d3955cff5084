// Package queue is the durable local sale queue: every sale that could not
// be confirmed online is persisted here and drained to the server later.
// Tickets are an audit trail; they are never deleted, only their status
// moves between pending, synced and error.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tillpoint/till/internal/kv"
	"github.com/tillpoint/till/pkg/pos"
)

// storageKey is the single well-known key the serialized ticket array lives
// under. Changing it orphans every queued sale on existing terminals.
const storageKey = "till.queue.v1"

// ErrDuplicateTicket is returned when Insert is called with a ticket ID that
// already exists. IDs are generated to make this practically impossible, so
// hitting it means a caller bug, not a storage race.
var ErrDuplicateTicket = errors.New("queue: duplicate ticket id")

// Store is the persistence interface for queued sale tickets.
type Store interface {
	// Insert persists a new pending ticket. The ticket ID must be fresh.
	Insert(ticketID string, payload pos.Sale) error
	// ListAll returns every ticket regardless of status, newest first.
	ListAll() []pos.Ticket
	// ListPending returns pending tickets. Callers that care about drain
	// order must sort by CreatedAt themselves.
	ListPending() []pos.Ticket
	// MarkSynced records the server-issued invoice on a ticket. No-op if
	// the ticket is missing.
	MarkSynced(ticketID string, invoiceNo int64, invoiceID string) error
	// MarkError records a failed upload attempt on a ticket. No-op if the
	// ticket is missing.
	MarkError(ticketID, message string) error
	// Counts aggregates the queue by status.
	Counts() pos.QueueCounts
}

// Queue implements Store on top of a kv.Store, holding the whole ticket
// array as one JSON blob. Reads fail open: a corrupted blob yields an empty
// queue rather than taking the register down with it.
type Queue struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a queue backed by the given kv store.
func New(store kv.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		kv:     store,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source used to stamp CreatedAt. Tests use it
// to enqueue tickets at known times.
func (q *Queue) SetClock(now func() time.Time) {
	q.now = now
}

func (q *Queue) Insert(ticketID string, payload pos.Sale) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tickets := q.load()
	for _, t := range tickets {
		if t.TicketID == ticketID {
			return fmt.Errorf("%w: %s", ErrDuplicateTicket, ticketID)
		}
	}

	ticket := pos.Ticket{
		TicketID:  ticketID,
		Payload:   payload,
		CreatedAt: q.now().UnixMilli(),
		Status:    pos.TicketPending,
	}
	// Newest first: prepend. Display order only; drain order is CreatedAt.
	tickets = append([]pos.Ticket{ticket}, tickets...)
	return q.save(tickets)
}

func (q *Queue) ListAll() []pos.Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

func (q *Queue) ListPending() []pos.Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pending []pos.Ticket
	for _, t := range q.load() {
		if t.Status == pos.TicketPending || t.Status == pos.TicketError {
			pending = append(pending, t)
		}
	}
	return pending
}

func (q *Queue) MarkSynced(ticketID string, invoiceNo int64, invoiceID string) error {
	return q.update(ticketID, func(t *pos.Ticket) {
		t.Status = pos.TicketSynced
		t.InvoiceNo = invoiceNo
		t.InvoiceID = invoiceID
		t.LastError = ""
	})
}

func (q *Queue) MarkError(ticketID, message string) error {
	return q.update(ticketID, func(t *pos.Ticket) {
		t.Status = pos.TicketError
		t.LastError = message
	})
}

func (q *Queue) Counts() pos.QueueCounts {
	q.mu.Lock()
	defer q.mu.Unlock()

	var c pos.QueueCounts
	for _, t := range q.load() {
		switch t.Status {
		case pos.TicketSynced:
			c.Synced++
		case pos.TicketError:
			c.Error++
		default:
			c.Pending++
		}
	}
	return c
}

// Get returns the ticket with the given ID, if present.
func (q *Queue) Get(ticketID string) (pos.Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.load() {
		if t.TicketID == ticketID {
			return t, true
		}
	}
	return pos.Ticket{}, false
}

// update applies fn to the matching ticket and persists the queue. Missing
// tickets are a no-op so a double-call after sync cannot fail.
func (q *Queue) update(ticketID string, fn func(*pos.Ticket)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tickets := q.load()
	for i := range tickets {
		if tickets[i].TicketID == ticketID {
			fn(&tickets[i])
			return q.save(tickets)
		}
	}
	return nil
}

// load reads and decodes the ticket array. Any storage or parse failure is
// logged and treated as an empty queue: losing visibility is recoverable,
// crashing the register on a corrupt blob is not.
func (q *Queue) load() []pos.Ticket {
	raw, ok, err := q.kv.Get(storageKey)
	if err != nil {
		q.logger.Error("queue read failed, treating as empty", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var tickets []pos.Ticket
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		q.logger.Error("queue blob is corrupt, treating as empty", "error", err)
		return nil
	}
	return tickets
}

func (q *Queue) save(tickets []pos.Ticket) error {
	raw, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("queue: encode: %w", err)
	}
	if err := q.kv.Set(storageKey, string(raw)); err != nil {
		return fmt.Errorf("queue: persist: %w", err)
	}
	return nil
}
