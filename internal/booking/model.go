package booking

import (
	"time"

	"makerspace/internal/equipment"
	"makerspace/internal/events"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type BookedFor string

const (
	BookedForSelf  BookedFor = "self"
	BookedForProxy BookedFor = "proxy"
)

// MaxBulkSlots caps one bulk request (a full day of 30 minute slots).
const MaxBulkSlots = 48

type Booking struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	EquipmentID     int64     `db:"equipment_id" json:"equipment_id"`
	SlotID          int64     `db:"slot_id" json:"slot_id"`
	Status          Status    `db:"status" json:"status"`
	BookedFor       BookedFor `db:"booked_for" json:"booked_for"`
	PaymentIntentID *string   `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (b Booking) Active() bool {
	return b.Status != StatusCancelled
}

type BookingWithDetails struct {
	Booking
	EquipmentName string    `db:"equipment_name" json:"equipment_name"`
	UserName      string    `db:"user_name" json:"user_name"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
}

// Requester is the caller of a booking or cancellation.
type Requester struct {
	UserID     int64
	TrustLevel int
	IsAdmin    bool
}

type BookRequest struct {
	EquipmentID     int64     `json:"-"`
	StartTime       time.Time `json:"start_time" binding:"required" example:"2026-10-19T10:00:00-06:00"`
	EndTime         time.Time `json:"end_time" binding:"required" example:"2026-10-19T10:30:00-06:00"`
	PaymentIntentID *string   `json:"payment_intent_id" example:"pi_3Nabc"`
	BookedFor       BookedFor `json:"booked_for" binding:"omitempty,oneof=self proxy" example:"self"`
}

type BulkBookRequest struct {
	EquipmentID     int64              `json:"-"`
	Slots           []equipment.Window `json:"slots" binding:"required,min=1,dive"`
	PaymentIntentID *string            `json:"payment_intent_id" example:"pi_3Nabc"`
	BookedFor       BookedFor          `json:"booked_for" binding:"omitempty,oneof=self proxy" example:"self"`
}

// Result carries the committed bookings and the events to dispatch.
type Result struct {
	Bookings []Booking      `json:"bookings"`
	Events   []events.Event `json:"-"`
}

type StatsGroupBy string

const (
	GroupByDay       StatsGroupBy = "day"
	GroupByEquipment StatsGroupBy = "equipment"
)

type BookingStat struct {
	Bucket    string `db:"bucket" json:"bucket"`
	Confirmed int    `db:"confirmed" json:"confirmed"`
	Pending   int    `db:"pending" json:"pending"`
	Cancelled int    `db:"cancelled" json:"cancelled"`
}
