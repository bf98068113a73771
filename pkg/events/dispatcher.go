package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 2 * time.Second
)

// Subscriber receives committed domain events. Subscribers are best-effort
// side effects (ticket printing, notifications); their failures are logged
// and retried on the next drain but never surface into the transactional
// path.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event models.OutboxEvent) error
}

// Dispatcher drains the outbox after commits and fans events out to the
// registered subscribers.
type Dispatcher struct {
	repo        *Repository
	logg        *logger.Logger
	subscribers []Subscriber
	kick        chan struct{}
}

func NewDispatcher(repo *Repository, logg *logger.Logger, subscribers ...Subscriber) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		logg:        logg,
		subscribers: subscribers,
		kick:        make(chan struct{}, 1),
	}
}

// Notify asks the dispatcher to drain soon. Non-blocking; coalesces with an
// already-pending drain.
func (d *Dispatcher) Notify() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run drains on every Notify and on a poll interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.kick:
		case <-ticker.C:
		}
		if err := d.Drain(ctx); err != nil && d.logg != nil {
			d.logg.Error(ctx, "outbox drain failed", err)
		}
	}
}

// Drain delivers every unpublished event once. An event is marked published
// when all subscribers handled it; otherwise its attempt count grows and the
// next drain retries it.
func (d *Dispatcher) Drain(ctx context.Context) error {
	rows, err := d.repo.FetchUnpublished(defaultBatchSize)
	if err != nil {
		return fmt.Errorf("fetch unpublished events: %w", err)
	}

	var errs []error
	for _, row := range rows {
		if err := d.deliver(ctx, row); err != nil {
			errs = append(errs, err)
			if markErr := d.repo.MarkFailed(row.ID, err); markErr != nil {
				errs = append(errs, fmt.Errorf("mark event %s failed: %w", row.ID, markErr))
			}
			continue
		}
		if err := d.repo.MarkPublished(row.ID); err != nil {
			errs = append(errs, fmt.Errorf("mark event %s published: %w", row.ID, err))
		}
	}
	return multierr.Combine(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, event models.OutboxEvent) error {
	var errs []error
	for _, sub := range d.subscribers {
		if err := sub.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %s: %w", sub.Name(), err))
			if d.logg != nil {
				fields := map[string]any{
					"subscriber": sub.Name(),
					"event_type": event.EventType,
					"event_id":   event.ID.String(),
				}
				d.logg.Error(d.logg.WithFields(ctx, fields), "event subscriber failed", err)
			}
		}
	}
	return multierr.Combine(errs...)
}

// LogSubscriber writes every event to the structured log. Wired as the
// default subscriber in installs without a printer spool.
type LogSubscriber struct {
	Logg *logger.Logger
}

func (s LogSubscriber) Name() string { return "log" }

func (s LogSubscriber) Handle(ctx context.Context, event models.OutboxEvent) error {
	if s.Logg == nil {
		return nil
	}
	fields := map[string]any{
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID.String(),
	}
	s.Logg.Info(s.Logg.WithFields(ctx, fields), "domain event")
	return nil
}
