package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
)

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	dsn := "file:events_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db), db
}

type spySubscriber struct {
	name   string
	seen   []models.OutboxEvent
	fail   bool
	failed int
}

func (s *spySubscriber) Name() string { return s.name }

func (s *spySubscriber) Handle(_ context.Context, event models.OutboxEvent) error {
	if s.fail {
		s.failed++
		return errors.New("printer offline")
	}
	s.seen = append(s.seen, event)
	return nil
}

func TestEmitQueuesEnvelopedEvent(t *testing.T) {
	t.Parallel()

	repo, db := newTestRepo(t)
	emitter := NewEmitter(repo, nil)
	aggregateID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return emitter.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregateID,
			Version:       1,
			Data:          map[string]any{"daily_number": 7},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "aggregate_id = ?", aggregateID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.EventType != enums.EventOrderCreated || row.PublishedAt != nil {
		t.Fatalf("unexpected row: %+v", row)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" || envelope.OccurredAt.IsZero() {
		t.Fatalf("incomplete envelope: %+v", envelope)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	repo, db := newTestRepo(t)
	emitter := NewEmitter(repo, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := emitter.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Version:       1,
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected rollback")
	}

	var count int64
	if err := db.Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no events after rollback, got %d", count)
	}
}

func TestDrainMarksPublished(t *testing.T) {
	t.Parallel()

	repo, db := newTestRepo(t)
	emitter := NewEmitter(repo, nil)
	sub := &spySubscriber{name: "spy"}
	dispatcher := NewDispatcher(repo, nil, sub)

	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return emitter.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventStockLow,
				AggregateType: enums.AggregateStockItem,
				AggregateID:   uuid.New(),
				Version:       1,
				Data:          map[string]any{"n": i},
			})
		})
		if err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	if err := dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(sub.seen) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(sub.seen))
	}

	var pending int64
	if err := db.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&pending).Error; err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected all published, %d still pending", pending)
	}

	// a second drain has nothing left to deliver
	if err := dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(sub.seen) != 3 {
		t.Fatalf("expected no redelivery, got %d", len(sub.seen))
	}
}

func TestDrainRetriesFailedSubscriber(t *testing.T) {
	t.Parallel()

	repo, db := newTestRepo(t)
	emitter := NewEmitter(repo, nil)
	sub := &spySubscriber{name: "flaky", fail: true}
	dispatcher := NewDispatcher(repo, nil, sub)

	err := db.Transaction(func(tx *gorm.DB) error {
		return emitter.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Version:       1,
			Data:          map[string]any{},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	if err := dispatcher.Drain(context.Background()); err == nil {
		t.Fatal("expected drain error")
	}

	var row models.OutboxEvent
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.PublishedAt != nil {
		t.Fatal("failed event must stay unpublished")
	}
	if row.AttemptCount != 1 || row.LastError == nil {
		t.Fatalf("expected failure bookkeeping, got %+v", row)
	}

	// subscriber recovers; next drain delivers and publishes
	sub.fail = false
	if err := dispatcher.Drain(context.Background()); err != nil {
		t.Fatalf("retry drain: %v", err)
	}
	if len(sub.seen) != 1 {
		t.Fatalf("expected delivery after recovery, got %d", len(sub.seen))
	}
}
