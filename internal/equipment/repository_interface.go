package equipment

import (
	"context"
	"time"
)

// Repository methods run inside the transaction carried by ctx, if any.
// The *ForShare / *ForUpdate variants are only meaningful in one.
type Repository interface {
	CreateEquipment(ctx context.Context, e *Equipment) (*Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, req UpdateEquipmentRequest) (*Equipment, error)
	GetEquipmentByID(ctx context.Context, id int64) (*Equipment, error)
	ListEquipment(ctx context.Context, onlyAvailable bool) ([]Equipment, error)
	SetAvailability(ctx context.Context, id int64, available bool) (*Equipment, error)
	SoftDeleteEquipment(ctx context.Context, id int64) error
	HasActiveFutureBookings(ctx context.Context, equipmentID int64, now time.Time) (bool, error)

	GetEquipmentForShare(ctx context.Context, id int64) (*Equipment, error)
	GetEquipmentForUpdate(ctx context.Context, id int64) (*Equipment, error)

	EnsureSlot(ctx context.Context, equipmentID int64, w Window) error
	GetSlotForUpdate(ctx context.Context, equipmentID int64, start time.Time) (*Slot, error)
	GetSlotsByIDs(ctx context.Context, ids []int64) ([]Slot, error)
	MarkSlotBooked(ctx context.Context, slotID int64) error
	MarkSlotsFree(ctx context.Context, slotIDs []int64) error
	LinkSlotToWorkshop(ctx context.Context, slotID, occurrenceID int64) error
	ListSlotsWithBookings(ctx context.Context, f SlotFilter) ([]SlotWithBooking, error)
}
