package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"makerspace/internal/apperr"
	"makerspace/internal/clock"
	"makerspace/internal/equipment"
	"makerspace/internal/events"
	"makerspace/internal/logger"
	"makerspace/internal/metrics"
	"makerspace/internal/tracing"
)

// SlotStore is the slot inventory as seen by the booking engine.
type SlotStore interface {
	GetEquipmentForShare(ctx context.Context, id int64) (*equipment.Equipment, error)
	EnsureSlot(ctx context.Context, equipmentID int64, w equipment.Window) error
	GetSlotForUpdate(ctx context.Context, equipmentID int64, start time.Time) (*equipment.Slot, error)
	MarkSlotBooked(ctx context.Context, slotID int64) error
}

type Policy interface {
	CheckWindow(ctx context.Context, trustLevel int, start, end time.Time) error
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service interface {
	BookEquipment(ctx context.Context, req Requester, in BookRequest) (*Result, error)
	BookEquipmentBulkByTimes(ctx context.Context, req Requester, in BulkBookRequest) (*Result, error)
	GetBooking(ctx context.Context, req Requester, id int64) (*Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]BookingWithDetails, error)
	GetBookingsByEquipment(ctx context.Context, equipmentID int64) ([]BookingWithDetails, error)
	GetBookingStats(ctx context.Context, groupBy StatsGroupBy, from, to time.Time) ([]BookingStat, error)
}

type service struct {
	repo   Repository
	slots  SlotStore
	policy Policy
	tx     TxManager
	grid   equipment.Grid
	clock  clock.Clock
}

func NewService(repo Repository, slots SlotStore, policy Policy, tx TxManager, grid equipment.Grid, clk clock.Clock) Service {
	return &service{
		repo:   repo,
		slots:  slots,
		policy: policy,
		tx:     tx,
		grid:   grid,
		clock:  clk,
	}
}

type bookingPlan struct {
	kind            string
	equipmentID     int64
	windows         []equipment.Window
	paymentIntentID *string
	bookedFor       BookedFor
}

func (s *service) BookEquipment(ctx context.Context, req Requester, in BookRequest) (*Result, error) {
	return s.book(ctx, req, bookingPlan{
		kind:            "single",
		equipmentID:     in.EquipmentID,
		windows:         []equipment.Window{{Start: in.StartTime, End: in.EndTime}},
		paymentIntentID: in.PaymentIntentID,
		bookedFor:       in.BookedFor,
	})
}

// BookEquipmentBulkByTimes books every window or none of them.
func (s *service) BookEquipmentBulkByTimes(ctx context.Context, req Requester, in BulkBookRequest) (*Result, error) {
	return s.book(ctx, req, bookingPlan{
		kind:            "bulk",
		equipmentID:     in.EquipmentID,
		windows:         append([]equipment.Window(nil), in.Slots...),
		paymentIntentID: in.PaymentIntentID,
		bookedFor:       in.BookedFor,
	})
}

func (s *service) book(ctx context.Context, req Requester, plan bookingPlan) (res *Result, err error) {
	ctx, span := tracing.Start(ctx, "booking.book")
	span.SetAttributes(
		attribute.Int64("equipment.id", plan.equipmentID),
		attribute.Int64("user.id", req.UserID),
		attribute.Int("booking.slots", len(plan.windows)),
		attribute.String("booking.kind", plan.kind),
	)
	defer func() {
		metrics.RecordBooking(bookingOutcome(res, err), plan.kind, len(plan.windows))
		tracing.End(span, err)
	}()

	if err := s.validate(req, &plan); err != nil {
		return nil, err
	}

	var (
		created []Booking
		eqName  string
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		created = created[:0]

		e, err := s.slots.GetEquipmentForShare(ctx, plan.equipmentID)
		if errors.Is(err, equipment.ErrEquipmentNotFound) {
			return apperr.NotFound("equipment %d not found", plan.equipmentID)
		}
		if err != nil {
			return apperr.Internal(err, "failed to load equipment")
		}
		if !e.Availability {
			return apperr.Forbidden("%s is not available for booking", e.Name)
		}
		eqName = e.Name

		for _, w := range plan.windows {
			if err := s.policy.CheckWindow(ctx, req.TrustLevel, w.Start, w.End); err != nil {
				return err
			}
		}

		status := StatusPending
		if plan.paymentIntentID != nil || e.PriceCents == 0 || req.IsAdmin {
			status = StatusConfirmed
		}

		for _, w := range plan.windows {
			b, err := s.reserve(ctx, req, plan, status, w)
			if err != nil {
				return err
			}
			created = append(created, *b)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			logger.WithError(err).Errorw("Booking failed", "equipment_id", plan.equipmentID, "user_id", req.UserID)
		}
		return nil, err
	}

	logger.Info("Equipment booked",
		"equipment_id", plan.equipmentID,
		"user_id", req.UserID,
		"slots", len(created),
		"status", created[0].Status,
	)

	return &Result{
		Bookings: created,
		Events:   []events.Event{s.confirmedEvent(req, plan, eqName, created)},
	}, nil
}

// reserve moves one slot from free to booked. The slot row lock serializes
// concurrent requests for the same window; the loser sees IsBooked.
func (s *service) reserve(ctx context.Context, req Requester, plan bookingPlan, status Status, w equipment.Window) (*Booking, error) {
	when := s.grid.Label(w.Start)

	if err := s.slots.EnsureSlot(ctx, plan.equipmentID, w); err != nil {
		return nil, apperr.Internal(err, "failed to create slot")
	}

	slot, err := s.slots.GetSlotForUpdate(ctx, plan.equipmentID, w.Start)
	if err != nil {
		return nil, apperr.Internal(err, "failed to lock slot")
	}
	if !slot.EndTime.Equal(w.End) {
		return nil, apperr.Conflict("slot at %s does not match the requested window", when)
	}
	if slot.WorkshopOccurrenceID != nil {
		return nil, apperr.Conflict("slot at %s is reserved for a workshop", when)
	}
	if slot.IsBooked {
		return nil, apperr.Conflict("slot at %s is already booked", when)
	}

	if err := s.slots.MarkSlotBooked(ctx, slot.ID); err != nil {
		if errors.Is(err, equipment.ErrSlotAlreadyBooked) {
			return nil, apperr.Conflict("slot at %s is already booked", when)
		}
		return nil, apperr.Internal(err, "failed to mark slot booked")
	}

	b, err := s.repo.CreateBooking(ctx, &Booking{
		UserID:          req.UserID,
		EquipmentID:     plan.equipmentID,
		SlotID:          slot.ID,
		Status:          status,
		BookedFor:       plan.bookedFor,
		PaymentIntentID: plan.paymentIntentID,
	})
	if errors.Is(err, ErrActiveBookingExists) {
		return nil, apperr.Conflict("slot at %s is already booked", when)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to create booking")
	}
	return b, nil
}

func (s *service) validate(req Requester, plan *bookingPlan) error {
	if req.UserID <= 0 {
		return apperr.Validation("user id is required")
	}
	if plan.equipmentID <= 0 {
		return apperr.Validation("equipment id must be positive")
	}
	if len(plan.windows) == 0 {
		return apperr.Validation("at least one slot is required")
	}
	if len(plan.windows) > MaxBulkSlots {
		return apperr.Validation("at most %d slots can be booked at once", MaxBulkSlots)
	}

	switch plan.bookedFor {
	case "":
		plan.bookedFor = BookedForSelf
	case BookedForSelf, BookedForProxy:
	default:
		return apperr.Validation("booked_for must be self or proxy")
	}

	if plan.paymentIntentID != nil {
		pi := strings.TrimSpace(*plan.paymentIntentID)
		if pi == "" {
			plan.paymentIntentID = nil
		} else {
			plan.paymentIntentID = &pi
		}
	}

	now := s.clock.Now()
	equipment.SortWindows(plan.windows)
	for i, w := range plan.windows {
		if err := s.grid.Validate(w); err != nil {
			return err
		}
		if w.Start.Before(now) {
			return apperr.Validation("cannot book a slot in the past")
		}
		if i > 0 && w.Start.Equal(plan.windows[i-1].Start) {
			return apperr.Validation("slot at %s is requested more than once", s.grid.Label(w.Start))
		}
	}
	return nil
}

func (s *service) confirmedEvent(req Requester, plan bookingPlan, eqName string, created []Booking) events.Event {
	e := events.New(events.TypeBookingConfirmed, s.clock.Now())
	e.UserID = req.UserID
	e.EquipmentID = plan.equipmentID
	e.EquipmentName = eqName
	e.PaymentIntentID = plan.paymentIntentID
	e.Status = string(created[0].Status)
	for i, b := range created {
		e.BookingIDs = append(e.BookingIDs, b.ID)
		e.Windows = append(e.Windows, events.Window{Start: plan.windows[i].Start, End: plan.windows[i].End})
	}
	return e
}

func bookingOutcome(res *Result, err error) string {
	if err == nil {
		if res != nil && len(res.Bookings) > 0 {
			return string(res.Bookings[0].Status)
		}
		return "confirmed"
	}
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindForbidden:
		return "forbidden"
	case apperr.KindValidation, apperr.KindNotFound:
		return "rejected"
	default:
		return "error"
	}
}

// GetBooking returns NotFound for another member's booking unless the
// requester is an admin.
func (s *service) GetBooking(ctx context.Context, req Requester, id int64) (*Booking, error) {
	if id <= 0 {
		return nil, apperr.Validation("booking id must be positive")
	}

	b, err := s.repo.GetBookingByID(ctx, id)
	if errors.Is(err, ErrBookingNotFound) {
		return nil, apperr.NotFound("booking %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load booking")
	}
	if !req.IsAdmin && b.UserID != req.UserID {
		return nil, apperr.NotFound("booking %d not found", id)
	}
	return b, nil
}

func (s *service) GetUserBookings(ctx context.Context, userID int64) ([]BookingWithDetails, error) {
	list, err := s.repo.GetUserBookings(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load bookings")
	}
	return list, nil
}

func (s *service) GetBookingsByEquipment(ctx context.Context, equipmentID int64) ([]BookingWithDetails, error) {
	list, err := s.repo.GetBookingsByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load bookings")
	}
	return list, nil
}

// GetBookingStats defaults to the 30 days ending now.
func (s *service) GetBookingStats(ctx context.Context, groupBy StatsGroupBy, from, to time.Time) ([]BookingStat, error) {
	if to.IsZero() {
		to = s.clock.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, apperr.Validation("from must be before to")
	}

	var (
		stats []BookingStat
		err   error
	)
	switch groupBy {
	case GroupByDay, "":
		stats, err = s.repo.GetBookingStatsByDay(ctx, from, to)
	case GroupByEquipment:
		stats, err = s.repo.GetBookingStatsByEquipment(ctx, from, to)
	default:
		return nil, apperr.Validation("group_by must be day or equipment")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load booking stats")
	}
	return stats, nil
}
