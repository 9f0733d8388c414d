package equipment

import "time"

type Equipment struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Description  string     `db:"description" json:"description"`
	PriceCents   int64      `db:"price_cents" json:"price_cents"`
	Availability bool       `db:"availability" json:"availability"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Slot is one fixed-length window on a piece of equipment. IsBooked mirrors
// whether an active booking references the slot.
type Slot struct {
	ID                   int64     `db:"id" json:"id"`
	EquipmentID          int64     `db:"equipment_id" json:"equipment_id"`
	StartTime            time.Time `db:"start_time" json:"start_time"`
	EndTime              time.Time `db:"end_time" json:"end_time"`
	IsBooked             bool      `db:"is_booked" json:"is_booked"`
	WorkshopOccurrenceID *int64    `db:"workshop_occurrence_id" json:"workshop_occurrence_id,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

func (s Slot) Window() Window {
	return Window{Start: s.StartTime, End: s.EndTime}
}

type SlotBooking struct {
	BookingID       int64   `json:"booking_id"`
	UserID          int64   `json:"user_id"`
	UserName        string  `json:"user_name"`
	Status          string  `json:"status"`
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`
}

type SlotWithBooking struct {
	Slot
	Booking *SlotBooking `json:"booking,omitempty"`
}

type EquipmentWithSlots struct {
	Equipment
	Slots []SlotWithBooking `json:"slots"`
}

// EquipmentDetail is what a member sees, including their own reservations
// even when the equipment is disabled.
type EquipmentDetail struct {
	Equipment
	MyReservations []SlotWithBooking `json:"my_reservations"`
}

type Window struct {
	Start time.Time `json:"start_time" binding:"required" example:"2026-10-19T10:00:00-06:00"`
	End   time.Time `json:"end_time" binding:"required" example:"2026-10-19T10:30:00-06:00"`
}

// SlotFilter narrows ListSlotsWithBookings. Zero values mean no filter.
type SlotFilter struct {
	EquipmentID int64
	UserID      int64
	From        *time.Time
	OnlyBooked  bool
}

type CreateEquipmentRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price_cents" binding:"min=0"`
	Availability *bool  `json:"availability"`
}

type UpdateEquipmentRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents" binding:"omitempty,min=0"`
}

type ToggleAvailabilityRequest struct {
	Availability *bool `json:"availability" binding:"required"`
}

type ReserveWorkshopSlotsRequest struct {
	OccurrenceID int64    `json:"occurrence_id" binding:"required,min=1"`
	Slots        []Window `json:"slots" binding:"required,min=1,dive"`
}
