package equipment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"makerspace/internal/apperr"
	"makerspace/internal/clock"
	"makerspace/internal/logger"
)

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service interface {
	ListEquipment(ctx context.Context) ([]Equipment, error)
	GetAllEquipmentWithBookings(ctx context.Context) ([]EquipmentWithSlots, error)
	GetEquipmentDetail(ctx context.Context, id, userID int64) (*EquipmentDetail, error)
	ToggleEquipmentAvailability(ctx context.Context, id int64, available bool) (*Equipment, error)
	CreateEquipment(ctx context.Context, req CreateEquipmentRequest) (*Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, req UpdateEquipmentRequest) (*Equipment, error)
	DuplicateEquipment(ctx context.Context, id int64) (*Equipment, error)
	DeleteEquipment(ctx context.Context, id int64) error
	ReserveWorkshopSlots(ctx context.Context, equipmentID, occurrenceID int64, windows []Window) ([]Slot, error)
}

type service struct {
	repo  Repository
	tx    TxManager
	grid  Grid
	clock clock.Clock
}

func NewService(repo Repository, tx TxManager, grid Grid, clk clock.Clock) Service {
	return &service{repo: repo, tx: tx, grid: grid, clock: clk}
}

func (s *service) ListEquipment(ctx context.Context) ([]Equipment, error) {
	list, err := s.repo.ListEquipment(ctx, true)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list equipment")
	}
	return list, nil
}

// GetAllEquipmentWithBookings lists slots from the start of the current
// equipment-local day onward.
func (s *service) GetAllEquipmentWithBookings(ctx context.Context) ([]EquipmentWithSlots, error) {
	list, err := s.repo.ListEquipment(ctx, false)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list equipment")
	}

	now := s.clock.Now().In(s.grid.location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	slots, err := s.repo.ListSlotsWithBookings(ctx, SlotFilter{From: &dayStart})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list slots")
	}

	byEquipment := make(map[int64][]SlotWithBooking, len(list))
	for _, sl := range slots {
		byEquipment[sl.EquipmentID] = append(byEquipment[sl.EquipmentID], sl)
	}

	result := make([]EquipmentWithSlots, 0, len(list))
	for _, e := range list {
		withSlots := EquipmentWithSlots{Equipment: e, Slots: byEquipment[e.ID]}
		if withSlots.Slots == nil {
			withSlots.Slots = []SlotWithBooking{}
		}
		result = append(result, withSlots)
	}
	return result, nil
}

func (s *service) GetEquipmentDetail(ctx context.Context, id, userID int64) (*EquipmentDetail, error) {
	e, err := s.getEquipment(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	mine, err := s.repo.ListSlotsWithBookings(ctx, SlotFilter{EquipmentID: id, UserID: userID, From: &now})
	if err != nil {
		return nil, apperr.Internal(err, "failed to load reservations")
	}

	return &EquipmentDetail{Equipment: *e, MyReservations: mine}, nil
}

// ToggleEquipmentAvailability only gates new bookings. Existing slots and
// bookings are left as they are.
func (s *service) ToggleEquipmentAvailability(ctx context.Context, id int64, available bool) (*Equipment, error) {
	e, err := s.repo.SetAvailability(ctx, id, available)
	if errors.Is(err, ErrEquipmentNotFound) {
		return nil, apperr.NotFound("equipment %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to update availability")
	}

	logger.Info("Equipment availability changed", "equipment_id", id, "availability", available)
	return e, nil
}

func (s *service) CreateEquipment(ctx context.Context, req CreateEquipmentRequest) (*Equipment, error) {
	if req.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if req.PriceCents < 0 {
		return nil, apperr.Validation("price_cents must not be negative")
	}

	available := true
	if req.Availability != nil {
		available = *req.Availability
	}

	e, err := s.repo.CreateEquipment(ctx, &Equipment{
		Name:         req.Name,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		Availability: available,
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to create equipment")
	}
	return e, nil
}

func (s *service) UpdateEquipment(ctx context.Context, id int64, req UpdateEquipmentRequest) (*Equipment, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		return nil, apperr.Validation("price_cents must not be negative")
	}

	e, err := s.repo.UpdateEquipment(ctx, id, req)
	if errors.Is(err, ErrEquipmentNotFound) {
		return nil, apperr.NotFound("equipment %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to update equipment")
	}
	return e, nil
}

// DuplicateEquipment copies the equipment record only; slots are not copied.
func (s *service) DuplicateEquipment(ctx context.Context, id int64) (*Equipment, error) {
	src, err := s.getEquipment(ctx, id)
	if err != nil {
		return nil, err
	}

	e, err := s.repo.CreateEquipment(ctx, &Equipment{
		Name:         fmt.Sprintf("%s (Copy)", src.Name),
		Description:  src.Description,
		PriceCents:   src.PriceCents,
		Availability: src.Availability,
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to duplicate equipment")
	}
	return e, nil
}

// DeleteEquipment soft-deletes so historical bookings and cancellations
// keep their reference. The row lock serializes with in-flight bookings.
func (s *service) DeleteEquipment(ctx context.Context, id int64) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetEquipmentForUpdate(ctx, id); err != nil {
			if errors.Is(err, ErrEquipmentNotFound) {
				return apperr.NotFound("equipment %d not found", id)
			}
			return apperr.Internal(err, "failed to load equipment")
		}

		active, err := s.repo.HasActiveFutureBookings(ctx, id, s.clock.Now())
		if err != nil {
			return apperr.Internal(err, "failed to check bookings")
		}
		if active {
			return apperr.Conflict("equipment %d has upcoming bookings; disable it instead or cancel them first", id)
		}

		if err := s.repo.SoftDeleteEquipment(ctx, id); err != nil {
			return apperr.Internal(err, "failed to delete equipment")
		}

		logger.Info("Equipment deleted", "equipment_id", id)
		return nil
	})
}

// ReserveWorkshopSlots pre-assigns slots to a workshop occurrence, which
// takes them out of the general booking flow.
func (s *service) ReserveWorkshopSlots(ctx context.Context, equipmentID, occurrenceID int64, windows []Window) ([]Slot, error) {
	if occurrenceID <= 0 {
		return nil, apperr.Validation("occurrence_id must be positive")
	}
	if len(windows) == 0 {
		return nil, apperr.Validation("at least one slot is required")
	}

	ws := append([]Window(nil), windows...)
	SortWindows(ws)
	for i, w := range ws {
		if err := s.grid.Validate(w); err != nil {
			return nil, err
		}
		if i > 0 && w.Start.Equal(ws[i-1].Start) {
			return nil, apperr.Validation("duplicate slot at %s", s.grid.Label(w.Start))
		}
	}

	var reserved []Slot
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		reserved = reserved[:0]

		if _, err := s.repo.GetEquipmentForShare(ctx, equipmentID); err != nil {
			if errors.Is(err, ErrEquipmentNotFound) {
				return apperr.NotFound("equipment %d not found", equipmentID)
			}
			return apperr.Internal(err, "failed to load equipment")
		}

		for _, w := range ws {
			if err := s.repo.EnsureSlot(ctx, equipmentID, w); err != nil {
				return apperr.Internal(err, "failed to create slot")
			}
			slot, err := s.repo.GetSlotForUpdate(ctx, equipmentID, w.Start)
			if err != nil {
				return apperr.Internal(err, "failed to lock slot")
			}
			if slot.IsBooked {
				return apperr.Conflict("slot at %s is already booked", s.grid.Label(w.Start))
			}
			if slot.WorkshopOccurrenceID != nil && *slot.WorkshopOccurrenceID != occurrenceID {
				return apperr.Conflict("slot at %s is reserved for another workshop", s.grid.Label(w.Start))
			}
			if err := s.repo.LinkSlotToWorkshop(ctx, slot.ID, occurrenceID); err != nil {
				return apperr.Internal(err, "failed to reserve slot")
			}
			slot.WorkshopOccurrenceID = &occurrenceID
			reserved = append(reserved, *slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Workshop slots reserved", "equipment_id", equipmentID, "occurrence_id", occurrenceID, "slots", len(reserved))
	return reserved, nil
}

func (s *service) getEquipment(ctx context.Context, id int64) (*Equipment, error) {
	e, err := s.repo.GetEquipmentByID(ctx, id)
	if errors.Is(err, ErrEquipmentNotFound) {
		return nil, apperr.NotFound("equipment %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load equipment")
	}
	return e, nil
}
