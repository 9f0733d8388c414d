package cancellation

import "context"

type Repository interface {
	// LockLineage serializes cancellations sharing a payment intent until the
	// surrounding transaction ends.
	LockLineage(ctx context.Context, paymentIntentID string) error
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) ([]Cancellation, error)
	Create(ctx context.Context, c *Cancellation) (*Cancellation, error)
	List(ctx context.Context, f Filter) ([]CancellationWithDetails, error)
	UpdateResolved(ctx context.Context, id int64, resolved bool) (*Cancellation, error)
}
