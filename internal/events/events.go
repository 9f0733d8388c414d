package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeBookingConfirmed Type = "booking.confirmed"
	TypeBookingCancelled Type = "booking.cancelled"
)

type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Event is a side effect produced by a committed booking or cancellation.
// Core operations return events; a dispatcher delivers them afterwards.
type Event struct {
	ID              string    `json:"id"`
	Type            Type      `json:"type"`
	OccurredAt      time.Time `json:"occurred_at"`
	UserID          int64     `json:"user_id"`
	EquipmentID     int64     `json:"equipment_id"`
	EquipmentName   string    `json:"equipment_name"`
	BookingIDs      []int64   `json:"booking_ids"`
	Windows         []Window  `json:"windows"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty"`
	Status          string    `json:"status,omitempty"`
	CancellationID  int64     `json:"cancellation_id,omitempty"`
	RefundCents     int64     `json:"refund_cents,omitempty"`
}

func New(t Type, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: at.UTC(),
	}
}

func (e Event) RoutingKey() string {
	return string(e.Type)
}

// FirstStart returns the earliest window start, or the zero time.
func (e Event) FirstStart() time.Time {
	var first time.Time
	for _, w := range e.Windows {
		if first.IsZero() || w.Start.Before(first) {
			first = w.Start
		}
	}
	return first
}
