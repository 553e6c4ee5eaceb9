package backend

import (
	"context"

	"autonome/internal/amqp"
	"autonome/internal/events"
	"autonome/internal/ledger"
)

// BackendType names a record store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to build a backend.
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQP forwarding is optional; an empty URL disables it.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Result is a ready backend: the store, the event bus every service publishes
// to, and the broker forwarder when AMQP is configured.
type Result struct {
	Store     ledger.Store
	Bus       *events.Bus
	Forwarder *amqp.Forwarder
	AMQP      *amqp.Client

	cleanup []func() error
}

// Close releases everything in reverse creation order.
func (r *Result) Close() error {
	var first error
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		if err := r.cleanup[i](); err != nil && first == nil {
			first = err
		}
	}
	r.cleanup = nil
	return first
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
