package properties

import (
	"context"
	"sync"

	"estate-backend/internal/domain"

	"gorm.io/gorm"
)

// EventPublisher receives property events once their transaction has committed.
type EventPublisher interface {
	PublishPropertyEvents(ctx context.Context, events []domain.PropertyEvent)
}

// Publishers fans events out to each publisher in order.
type Publishers []EventPublisher

func (ps Publishers) PublishPropertyEvents(ctx context.Context, events []domain.PropertyEvent) {
	for _, p := range ps {
		p.PublishPropertyEvents(ctx, events)
	}
}

type eventBufferKey struct{}

type eventBuffer struct {
	mu     sync.Mutex
	events []domain.PropertyEvent
}

// CollectEvents returns a context under which RecordEvent buffers the events it writes,
// and a func returning them.
func CollectEvents(ctx context.Context) (context.Context, func() []domain.PropertyEvent) {
	buf := &eventBuffer{}
	return context.WithValue(ctx, eventBufferKey{}, buf), func() []domain.PropertyEvent {
		buf.mu.Lock()
		defer buf.mu.Unlock()
		return append([]domain.PropertyEvent(nil), buf.events...)
	}
}

func bufferEvent(tx *gorm.DB, ev domain.PropertyEvent) {
	if tx.Statement == nil || tx.Statement.Context == nil {
		return
	}
	buf, ok := tx.Statement.Context.Value(eventBufferKey{}).(*eventBuffer)
	if !ok {
		return
	}
	buf.mu.Lock()
	buf.events = append(buf.events, ev)
	buf.mu.Unlock()
}

// RunInTx runs fn in one transaction and hands the events it recorded to pub after commit.
// Nothing is published when the transaction rolls back.
func RunInTx(ctx context.Context, db *gorm.DB, pub EventPublisher, fn func(tx *gorm.DB) error) error {
	ctx, recorded := CollectEvents(ctx)
	if err := db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	if pub != nil {
		if events := recorded(); len(events) > 0 {
			pub.PublishPropertyEvents(ctx, events)
		}
	}
	return nil
}
