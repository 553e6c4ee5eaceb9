package events

import (
	"context"
	"testing"
)

func TestBus_PublishOrderAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	var got []string

	unsubA := bus.Subscribe(func(_ context.Context, e Event) { got = append(got, "a:"+string(e.Type)) })
	bus.Subscribe(func(_ context.Context, e Event) { got = append(got, "b:"+string(e.Type)) })

	e := bus.Publish(context.Background(), ExpenseCreated, RecordPayload{Collection: "expenses", RecordID: 1})
	if e.ID == "" || e.OccurredAt.IsZero() {
		t.Fatalf("event not stamped: %+v", e)
	}
	if len(got) != 2 || got[0] != "a:expense.created" || got[1] != "b:expense.created" {
		t.Fatalf("deliveries = %v", got)
	}

	unsubA()
	got = nil
	bus.Publish(context.Background(), ExpenseDeleted, nil)
	if len(got) != 1 || got[0] != "b:expense.deleted" {
		t.Errorf("after unsubscribe deliveries = %v", got)
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		e := bus.Publish(context.Background(), RecordChanged, nil)
		if seen[e.ID] {
			t.Fatalf("duplicate event id %s", e.ID)
		}
		seen[e.ID] = true
	}
}
