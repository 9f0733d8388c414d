package cancellation

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"makerspace/internal/apperr"
	"makerspace/internal/booking"
	"makerspace/internal/clock"
	"makerspace/internal/equipment"
	"makerspace/internal/events"
	"makerspace/internal/logger"
	"makerspace/internal/metrics"
	"makerspace/internal/tracing"
)

type BookingStore interface {
	GetBookingsForUpdate(ctx context.Context, ids []int64) ([]booking.Booking, error)
	CancelBookings(ctx context.Context, ids []int64) error
}

type SlotStore interface {
	GetEquipmentByID(ctx context.Context, id int64) (*equipment.Equipment, error)
	GetSlotsByIDs(ctx context.Context, ids []int64) ([]equipment.Slot, error)
	MarkSlotsFree(ctx context.Context, slotIDs []int64) error
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service interface {
	CreateEquipmentCancellation(ctx context.Context, req booking.Requester, in CancelRequest) (*Result, error)
	GetAllEquipmentCancellations(ctx context.Context) ([]CancellationWithDetails, error)
	GetEquipmentCancellationsByStatus(ctx context.Context, resolved bool) ([]CancellationWithDetails, error)
	UpdateEquipmentCancellationResolved(ctx context.Context, id int64, resolved bool) (*Cancellation, error)
}

type service struct {
	repo     Repository
	bookings BookingStore
	slots    SlotStore
	tx       TxManager
	clock    clock.Clock
}

func NewService(repo Repository, bookings BookingStore, slots SlotStore, tx TxManager, clk clock.Clock) Service {
	return &service{
		repo:     repo,
		bookings: bookings,
		slots:    slots,
		tx:       tx,
		clock:    clk,
	}
}

func (s *service) CreateEquipmentCancellation(ctx context.Context, req booking.Requester, in CancelRequest) (res *Result, err error) {
	ctx, span := tracing.Start(ctx, "cancellation.create")
	span.SetAttributes(
		attribute.Int64("equipment.id", in.EquipmentID),
		attribute.Int64("user.id", req.UserID),
		attribute.Int("cancellation.slots", in.SlotsToCancel),
	)
	defer func() {
		var refund int64
		if res != nil {
			refund = res.Cancellation.PriceToRefundCents
		}
		metrics.RecordCancellation(cancellationOutcome(err), refund)
		tracing.End(span, err)
	}()

	if err := validate(req, &in); err != nil {
		return nil, err
	}

	var (
		created *Cancellation
		eqName  string
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.slots.GetEquipmentByID(ctx, in.EquipmentID)
		if errors.Is(err, equipment.ErrEquipmentNotFound) {
			return apperr.NotFound("equipment %d not found", in.EquipmentID)
		}
		if err != nil {
			return apperr.Internal(err, "failed to load equipment")
		}
		eqName = e.Name

		bookings, err := s.bookings.GetBookingsForUpdate(ctx, in.BookingIDs)
		if err != nil {
			return apperr.Internal(err, "failed to lock bookings")
		}
		if len(bookings) != len(in.BookingIDs) {
			return apperr.NotFound("one or more bookings were not found")
		}
		owner, err := checkBookings(req, in, bookings)
		if err != nil {
			return err
		}

		supplied := Totals{SlotsBooked: in.TotalSlotsBooked, PricePaidCents: in.TotalPricePaidCents}
		totals, refunded := supplied, 0
		if in.PaymentIntentID != nil {
			if err := s.repo.LockLineage(ctx, *in.PaymentIntentID); err != nil {
				return apperr.Internal(err, "failed to lock payment lineage")
			}
			prior, err := s.repo.GetByPaymentIntent(ctx, *in.PaymentIntentID)
			if err != nil {
				return apperr.Internal(err, "failed to load prior cancellations")
			}
			totals, refunded = ResolveLineage(prior, supplied)
		}
		if refunded+in.SlotsToCancel > totals.SlotsBooked {
			return apperr.Validation("cannot cancel %d slots: %d of %d already refunded",
				in.SlotsToCancel, refunded, totals.SlotsBooked)
		}

		slotIDs := make([]int64, 0, len(bookings))
		for _, b := range bookings {
			slotIDs = append(slotIDs, b.SlotID)
		}
		slots, err := s.slots.GetSlotsByIDs(ctx, slotIDs)
		if err != nil {
			return apperr.Internal(err, "failed to load slots")
		}
		times := make(SlotTimes, 0, len(slots))
		now := s.clock.Now()
		for _, sl := range slots {
			if !req.IsAdmin && !sl.StartTime.After(now) {
				return apperr.Validation("slots that have already started cannot be cancelled")
			}
			times = append(times, sl.Window())
		}
		equipment.SortWindows(times)

		created, err = s.repo.Create(ctx, &Cancellation{
			UserID:              owner,
			EquipmentID:         in.EquipmentID,
			PaymentIntentID:     in.PaymentIntentID,
			TotalSlotsBooked:    totals.SlotsBooked,
			TotalPricePaidCents: totals.PricePaidCents,
			SlotsRefunded:       in.SlotsToCancel,
			PriceToRefundCents:  ProrateRefund(totals, in.SlotsToCancel),
			CancelledSlotTimes:  times,
		})
		if err != nil {
			return apperr.Internal(err, "failed to record cancellation")
		}

		if err := s.bookings.CancelBookings(ctx, in.BookingIDs); err != nil {
			return apperr.Internal(err, "failed to cancel bookings")
		}
		if err := s.slots.MarkSlotsFree(ctx, slotIDs); err != nil {
			return apperr.Internal(err, "failed to release slots")
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			logger.WithError(err).Errorw("Cancellation failed", "equipment_id", in.EquipmentID, "user_id", req.UserID)
		}
		return nil, err
	}

	logger.Info("Equipment booking cancelled",
		"cancellation_id", created.ID,
		"equipment_id", in.EquipmentID,
		"slots", created.SlotsRefunded,
		"refund_cents", created.PriceToRefundCents,
	)

	return &Result{
		Cancellation: created,
		Events:       []events.Event{s.cancelledEvent(in, eqName, created)},
	}, nil
}

func validate(req booking.Requester, in *CancelRequest) error {
	if req.UserID <= 0 {
		return apperr.Validation("user id is required")
	}
	if in.EquipmentID <= 0 {
		return apperr.Validation("equipment id must be positive")
	}
	if in.TotalSlotsBooked <= 0 {
		return apperr.Validation("total_slots_booked must be positive")
	}
	if in.SlotsToCancel <= 0 {
		return apperr.Validation("slots_to_cancel must be positive")
	}
	if in.TotalPricePaidCents < 0 {
		return apperr.Validation("total_price_paid_cents cannot be negative")
	}
	if in.SlotsToCancel != len(in.BookingIDs) {
		return apperr.Validation("slots_to_cancel must match the number of bookings")
	}

	if in.PaymentIntentID != nil {
		pi := strings.TrimSpace(*in.PaymentIntentID)
		if pi == "" {
			in.PaymentIntentID = nil
		} else {
			in.PaymentIntentID = &pi
		}
	}
	// Payment intent lineages are capped against their stored totals inside
	// the transaction.
	if in.PaymentIntentID == nil && in.SlotsToCancel > in.TotalSlotsBooked {
		return apperr.Validation("cannot cancel more slots than were booked")
	}

	seen := make(map[int64]struct{}, len(in.BookingIDs))
	for _, id := range in.BookingIDs {
		if id <= 0 {
			return apperr.Validation("booking ids must be positive")
		}
		if _, dup := seen[id]; dup {
			return apperr.Validation("booking %d is listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// checkBookings returns the owner of the locked bookings.
func checkBookings(req booking.Requester, in CancelRequest, bookings []booking.Booking) (int64, error) {
	owner := bookings[0].UserID
	for _, b := range bookings {
		if b.UserID != owner {
			return 0, apperr.Validation("bookings belong to different members")
		}
		if !req.IsAdmin && b.UserID != req.UserID {
			return 0, apperr.Forbidden("booking %d does not belong to you", b.ID)
		}
		if b.EquipmentID != in.EquipmentID {
			return 0, apperr.Validation("booking %d is not for equipment %d", b.ID, in.EquipmentID)
		}
		if !b.Active() {
			return 0, apperr.Conflict("booking %d is already cancelled", b.ID)
		}
		if !samePaymentIntent(b.PaymentIntentID, in.PaymentIntentID) {
			return 0, apperr.Validation("booking %d was not paid with this payment reference", b.ID)
		}
	}
	return owner, nil
}

func samePaymentIntent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *service) cancelledEvent(in CancelRequest, eqName string, c *Cancellation) events.Event {
	e := events.New(events.TypeBookingCancelled, s.clock.Now())
	e.UserID = c.UserID
	e.EquipmentID = in.EquipmentID
	e.EquipmentName = eqName
	e.BookingIDs = append([]int64(nil), in.BookingIDs...)
	e.PaymentIntentID = c.PaymentIntentID
	e.CancellationID = c.ID
	e.RefundCents = c.PriceToRefundCents
	for _, w := range c.CancelledSlotTimes {
		e.Windows = append(e.Windows, events.Window{Start: w.Start, End: w.End})
	}
	return e
}

func cancellationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperr.KindOf(err) == apperr.KindInternal:
		return "error"
	default:
		return "rejected"
	}
}

func (s *service) GetAllEquipmentCancellations(ctx context.Context) ([]CancellationWithDetails, error) {
	list, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list cancellations")
	}
	return list, nil
}

func (s *service) GetEquipmentCancellationsByStatus(ctx context.Context, resolved bool) ([]CancellationWithDetails, error) {
	list, err := s.repo.List(ctx, Filter{Resolved: &resolved})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list cancellations")
	}
	return list, nil
}

// UpdateEquipmentCancellationResolved flips the flag only; amounts are never
// recomputed.
func (s *service) UpdateEquipmentCancellationResolved(ctx context.Context, id int64, resolved bool) (*Cancellation, error) {
	c, err := s.repo.UpdateResolved(ctx, id, resolved)
	if errors.Is(err, ErrCancellationNotFound) {
		return nil, apperr.NotFound("cancellation %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to update cancellation")
	}

	logger.Info("Cancellation resolution updated", "cancellation_id", id, "resolved", resolved)
	return c, nil
}
