// Package events is the in-process notification bus. Components publish after
// their writes commit; the host wires subscribers such as cache invalidation
// and the AMQP forwarder.
package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	RecurringGenerated Type = "recurring.generated"
	RecurringPass      Type = "recurring.pass"
	ExpenseCreated     Type = "expense.created"
	ExpenseDeleted     Type = "expense.deleted"
	SessionStarted     Type = "session.started"
	SessionStopped     Type = "session.stopped"
	TripRecorded       Type = "trip.recorded"
	RecordChanged      Type = "record.changed"
	LedgerRestored     Type = "ledger.restored"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload,omitempty"`
}

// RecordPayload identifies one ledger record touched by an event.
type RecordPayload struct {
	Collection      string    `json:"collection"`
	RecordID        int64     `json:"recordId"`
	AmountCents     int64     `json:"amountCents,omitempty"`
	Date            time.Time `json:"date,omitempty"`
	RecurringItemID int64     `json:"recurringItemId,omitempty"`
}

// PassPayload summarizes one recurring scheduler pass.
type PassPayload struct {
	Checked   int `json:"checked"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}

// RestorePayload summarizes a backup restore.
type RestorePayload struct {
	Version int `json:"version"`
	Records int `json:"records"`
}

type Handler func(ctx context.Context, e Event)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, typ Type, payload any) Event
}

type Bus struct {
	mu   sync.RWMutex
	subs map[int]Handler
	next int
	now  func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler), now: time.Now}
}

// Subscribe registers h for every event and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers a new event synchronously to every subscriber in
// subscription order and returns it.
func (b *Bus) Publish(ctx context.Context, typ Type, payload any) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: b.now(),
		Payload:    payload,
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return e
}
