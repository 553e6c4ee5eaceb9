package backend

import (
	"context"
	"fmt"

	"autonome/internal/amqp"
	"autonome/internal/events"
	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/storage"
	"autonome/internal/storage/memory"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store and the event bus. A broker that cannot be
// reached is logged and skipped; the ledger keeps working without it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store ledger.Store
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{Store: store, Bus: events.NewBus()}
	res.cleanup = append(res.cleanup, store.Close)

	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP disabled, events stay in process")
		return res, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without forwarding", log.FieldError, err)
		return res, nil
	}
	res.AMQP = client
	res.Forwarder = amqp.NewForwarder(client, 0, f.logger)
	unsubscribe := res.Forwarder.Attach(res.Bus)
	res.cleanup = append(res.cleanup, client.Close, func() error { unsubscribe(); return nil })

	f.logger.InfoContext(ctx, "Initialized AMQP forwarding",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return res, nil
}
