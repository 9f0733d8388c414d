package cancellation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"makerspace/internal/equipment"
	"makerspace/internal/events"
)

// SlotTimes is the JSONB list of cancelled windows on a ledger row.
type SlotTimes []equipment.Window

func (s SlotTimes) Value() (driver.Value, error) {
	if s == nil {
		s = SlotTimes{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode slot times: %w", err)
	}
	return string(b), nil
}

func (s *SlotTimes) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = SlotTimes{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("slot times: unsupported column type")
	}
	return json.Unmarshal(data, s)
}

// Cancellation is one refund ledger row. TotalSlotsBooked and
// TotalPricePaidCents are the original purchase totals and are identical on
// every row sharing a payment intent. SlotsRefunded counts this row only.
type Cancellation struct {
	ID                  int64     `db:"id" json:"id"`
	UserID              int64     `db:"user_id" json:"user_id"`
	EquipmentID         int64     `db:"equipment_id" json:"equipment_id"`
	PaymentIntentID     *string   `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	TotalSlotsBooked    int       `db:"total_slots_booked" json:"total_slots_booked"`
	TotalPricePaidCents int64     `db:"total_price_paid_cents" json:"total_price_paid_cents"`
	SlotsRefunded       int       `db:"slots_refunded" json:"slots_refunded"`
	PriceToRefundCents  int64     `db:"price_to_refund_cents" json:"price_to_refund_cents"`
	CancelledSlotTimes  SlotTimes `db:"cancelled_slot_times" json:"cancelled_slot_times"`
	Resolved            bool      `db:"resolved" json:"resolved"`
	CancellationDate    time.Time `db:"cancellation_date" json:"cancellation_date"`
}

type CancellationWithDetails struct {
	Cancellation
	EquipmentName string `db:"equipment_name" json:"equipment_name"`
	UserName      string `db:"user_name" json:"user_name"`
	UserEmail     string `db:"user_email" json:"user_email"`
}

// Totals are the purchase totals a refund is prorated against.
type Totals struct {
	SlotsBooked    int
	PricePaidCents int64
}

type CancelRequest struct {
	EquipmentID         int64   `json:"-"`
	BookingIDs          []int64 `json:"booking_ids" binding:"required,min=1"`
	PaymentIntentID     *string `json:"payment_intent_id" example:"pi_3Nabc"`
	TotalSlotsBooked    int     `json:"total_slots_booked" binding:"required,gt=0" example:"4"`
	SlotsToCancel       int     `json:"slots_to_cancel" binding:"required,gt=0" example:"1"`
	TotalPricePaidCents int64   `json:"total_price_paid_cents" binding:"gte=0" example:"20000"`
}

type UpdateResolvedRequest struct {
	Resolved *bool `json:"resolved" binding:"required"`
}

// Filter narrows List. A nil Resolved lists every row.
type Filter struct {
	Resolved *bool
}

type Result struct {
	Cancellation *Cancellation `json:"cancellation"`
	Events       []events.Event `json:"-"`
}
