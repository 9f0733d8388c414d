package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"makerspace/internal/events"
	"makerspace/internal/logger"
	"makerspace/internal/metrics"
	"makerspace/internal/user"
)

type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

type Mailer interface {
	SendBookingConfirmation(ctx context.Context, to, name string, e events.Event) error
	SendCancellation(ctx context.Context, to, name string, e events.Event) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Dispatcher delivers committed booking and cancellation events: an email to
// the member and, when a publisher is configured, a broker message. Delivery
// failures are logged and never reach the caller.
type Dispatcher struct {
	users     UserLookup
	mailer    Mailer
	publisher Publisher
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher accepts a nil publisher.
func NewDispatcher(users UserLookup, mailer Mailer, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		users:     users,
		mailer:    mailer,
		publisher: publisher,
		timeout:   time.Minute,
	}
}

// DispatchAsync delivers evts on a background goroutine with its own deadline,
// detached from the request that produced them.
func (d *Dispatcher) DispatchAsync(evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Dispatch(ctx, evts)
	}()
}

func (d *Dispatcher) Dispatch(ctx context.Context, evts []events.Event) {
	for _, e := range evts {
		if err := d.notify(ctx, e); err != nil {
			logger.WithError(err).Errorw("Failed to notify member", "event", e.Type, "event_id", e.ID, "user_id", e.UserID)
		}
		d.publish(ctx, e)
	}
}

// Wait blocks until every DispatchAsync goroutine has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) notify(ctx context.Context, e events.Event) error {
	if d.mailer == nil {
		return nil
	}

	u, err := d.users.FindByID(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", e.UserID, err)
	}
	if u.Email == "" {
		logger.Warn("Member has no email address, skipping notification", "user_id", u.ID)
		return nil
	}

	switch e.Type {
	case events.TypeBookingConfirmed:
		return d.mailer.SendBookingConfirmation(ctx, u.Email, u.Name, e)
	case events.TypeBookingCancelled:
		return d.mailer.SendCancellation(ctx, u.Email, u.Name, e)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

func (d *Dispatcher) publish(ctx context.Context, e events.Event) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishJSON(ctx, e.RoutingKey(), e); err != nil {
		metrics.RecordEventPublished(string(e.Type), "error")
		logger.WithError(err).Errorw("Failed to publish event", "event", e.Type, "event_id", e.ID)
		return
	}
	metrics.RecordEventPublished(string(e.Type), "success")
}
