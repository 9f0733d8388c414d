package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"makerspace/internal/apperr"
	"makerspace/internal/clock"
	"makerspace/internal/equipment"
	"makerspace/internal/events"
)

var (
	testNow  = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	testGrid = equipment.Grid{Duration: 30 * time.Minute, Location: time.UTC}

	laser  = &equipment.Equipment{ID: 1, Name: "Laser Cutter", PriceCents: 2000, Availability: true}
	member = Requester{UserID: 42, TrustLevel: 3}
)

type fixture struct {
	repo   *MockRepository
	slots  *MockSlotStore
	policy *MockPolicy
	svc    Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:   new(MockRepository),
		slots:  new(MockSlotStore),
		policy: new(MockPolicy),
	}
	f.svc = NewService(f.repo, f.slots, f.policy, inlineTx{}, testGrid, clock.NewFixed(testNow))
	return f
}

func window(hour, minute int) equipment.Window {
	start := time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)
	return equipment.Window{Start: start, End: start.Add(30 * time.Minute)}
}

func (f *fixture) allowAll() {
	f.policy.On("CheckWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (f *fixture) expectFreeSlot(w equipment.Window, slotID int64) {
	f.slots.On("EnsureSlot", mock.Anything, laser.ID, w).Return(nil).Once()
	f.slots.On("GetSlotForUpdate", mock.Anything, laser.ID, w.Start).
		Return(&equipment.Slot{ID: slotID, EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End}, nil).Once()
	f.slots.On("MarkSlotBooked", mock.Anything, slotID).Return(nil).Once()
}

func (f *fixture) expectCreate(slotID, bookingID int64, status Status) {
	f.repo.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *Booking) bool {
		return b.SlotID == slotID && b.Status == status
	})).Return(&Booking{ID: bookingID, UserID: member.UserID, EquipmentID: laser.ID, SlotID: slotID, Status: status, BookedFor: BookedForSelf}, nil).Once()
}

func TestBookEquipment(t *testing.T) {
	ctx := context.Background()
	w := window(10, 0)

	t.Run("paid booking is confirmed", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.expectFreeSlot(w, 100)
		f.expectCreate(100, 500, StatusConfirmed)

		pi := "  pi_123 "
		res, err := f.svc.BookEquipment(ctx, member, BookRequest{
			EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End, PaymentIntentID: &pi,
		})
		require.NoError(t, err)
		require.Len(t, res.Bookings, 1)
		assert.Equal(t, StatusConfirmed, res.Bookings[0].Status)

		require.Len(t, res.Events, 1)
		e := res.Events[0]
		assert.Equal(t, events.TypeBookingConfirmed, e.Type)
		assert.Equal(t, []int64{500}, e.BookingIDs)
		assert.Equal(t, "Laser Cutter", e.EquipmentName)
		require.NotNil(t, e.PaymentIntentID)
		assert.Equal(t, "pi_123", *e.PaymentIntentID)
		f.slots.AssertExpectations(t)
		f.repo.AssertExpectations(t)
	})

	t.Run("unpaid booking of priced equipment is pending", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.expectFreeSlot(w, 100)
		f.expectCreate(100, 501, StatusPending)

		res, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, res.Bookings[0].Status)
	})

	t.Run("admin booking is confirmed without payment", func(t *testing.T) {
		f := newFixture()
		admin := Requester{UserID: 42, TrustLevel: 5, IsAdmin: true}
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.policy.On("CheckWindow", mock.Anything, 5, w.Start, w.End).Return(nil)
		f.expectFreeSlot(w, 100)
		f.expectCreate(100, 502, StatusConfirmed)

		_, err := f.svc.BookEquipment(ctx, admin, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		require.NoError(t, err)
		f.policy.AssertExpectations(t)
	})

	t.Run("disabled equipment is forbidden", func(t *testing.T) {
		f := newFixture()
		disabled := *laser
		disabled.Availability = false
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(&disabled, nil)

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		f.slots.AssertNotCalled(t, "EnsureSlot", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown equipment", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, int64(9)).Return(nil, equipment.ErrEquipmentNotFound)

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: 9, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("schedule policy rejects", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.policy.On("CheckWindow", mock.Anything, 3, w.Start, w.End).
			Return(apperr.Forbidden("outside allowed hours"))

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		f.repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("slot already booked", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.slots.On("EnsureSlot", mock.Anything, laser.ID, w).Return(nil)
		f.slots.On("GetSlotForUpdate", mock.Anything, laser.ID, w.Start).
			Return(&equipment.Slot{ID: 100, StartTime: w.Start, EndTime: w.End, IsBooked: true}, nil)

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		f.slots.AssertNotCalled(t, "MarkSlotBooked", mock.Anything, mock.Anything)
	})

	t.Run("slot held by a workshop", func(t *testing.T) {
		f := newFixture()
		occurrence := int64(77)
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.slots.On("EnsureSlot", mock.Anything, laser.ID, w).Return(nil)
		f.slots.On("GetSlotForUpdate", mock.Anything, laser.ID, w.Start).
			Return(&equipment.Slot{ID: 100, StartTime: w.Start, EndTime: w.End, WorkshopOccurrenceID: &occurrence}, nil)

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("lost race on the unique index", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.expectFreeSlot(w, 100)
		f.repo.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, ErrActiveBookingExists)

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(nil, errors.New("connection reset"))

		_, err := f.svc.BookEquipment(ctx, member, BookRequest{EquipmentID: laser.ID, StartTime: w.Start, EndTime: w.End})
		assert.ErrorIs(t, err, apperr.ErrInternal)
	})
}

func TestBookEquipmentValidation(t *testing.T) {
	ctx := context.Background()
	w := window(10, 0)

	tests := []struct {
		name string
		req  Requester
		in   BookRequest
	}{
		{"missing user", Requester{}, BookRequest{EquipmentID: 1, StartTime: w.Start, EndTime: w.End}},
		{"bad equipment id", member, BookRequest{EquipmentID: 0, StartTime: w.Start, EndTime: w.End}},
		{"wrong length", member, BookRequest{EquipmentID: 1, StartTime: w.Start, EndTime: w.Start.Add(time.Hour)}},
		{"off grid", member, BookRequest{EquipmentID: 1, StartTime: w.Start.Add(10 * time.Minute), EndTime: w.End.Add(10 * time.Minute)}},
		{"in the past", member, BookRequest{EquipmentID: 1, StartTime: testNow.Add(-time.Hour), EndTime: testNow.Add(-30 * time.Minute)}},
		{"bad booked_for", member, BookRequest{EquipmentID: 1, StartTime: w.Start, EndTime: w.End, BookedFor: "friend"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.BookEquipment(ctx, tt.req, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			f.slots.AssertNotCalled(t, "GetEquipmentForShare", mock.Anything, mock.Anything)
		})
	}
}

func TestBookEquipmentBulkByTimes(t *testing.T) {
	ctx := context.Background()
	first, second, third := window(10, 0), window(10, 30), window(11, 0)

	t.Run("books every slot in start order", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.expectFreeSlot(first, 100)
		f.expectFreeSlot(second, 101)
		f.expectCreate(100, 500, StatusPending)
		f.expectCreate(101, 501, StatusPending)

		res, err := f.svc.BookEquipmentBulkByTimes(ctx, member, BulkBookRequest{
			EquipmentID: laser.ID,
			Slots:       []equipment.Window{second, first},
		})
		require.NoError(t, err)
		require.Len(t, res.Bookings, 2)
		assert.Equal(t, int64(100), res.Bookings[0].SlotID)
		assert.Equal(t, int64(101), res.Bookings[1].SlotID)

		require.Len(t, res.Events, 1)
		assert.Equal(t, []int64{500, 501}, res.Events[0].BookingIDs)
		assert.True(t, res.Events[0].FirstStart().Equal(first.Start))
	})

	t.Run("one taken slot fails the whole request", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.allowAll()
		f.expectFreeSlot(first, 100)
		f.expectCreate(100, 500, StatusPending)
		f.slots.On("EnsureSlot", mock.Anything, laser.ID, second).Return(nil)
		f.slots.On("GetSlotForUpdate", mock.Anything, laser.ID, second.Start).
			Return(&equipment.Slot{ID: 101, StartTime: second.Start, EndTime: second.End, IsBooked: true}, nil)

		res, err := f.svc.BookEquipmentBulkByTimes(ctx, member, BulkBookRequest{
			EquipmentID: laser.ID,
			Slots:       []equipment.Window{first, second, third},
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Nil(t, res)
		f.slots.AssertNotCalled(t, "EnsureSlot", mock.Anything, laser.ID, third)
	})

	t.Run("policy checks every window before reserving", func(t *testing.T) {
		f := newFixture()
		f.slots.On("GetEquipmentForShare", mock.Anything, laser.ID).Return(laser, nil)
		f.policy.On("CheckWindow", mock.Anything, 3, first.Start, first.End).Return(nil)
		f.policy.On("CheckWindow", mock.Anything, 3, second.Start, second.End).Return(apperr.Forbidden("closed"))

		_, err := f.svc.BookEquipmentBulkByTimes(ctx, member, BulkBookRequest{
			EquipmentID: laser.ID,
			Slots:       []equipment.Window{first, second},
		})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		f.slots.AssertNotCalled(t, "EnsureSlot", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate windows rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.BookEquipmentBulkByTimes(ctx, member, BulkBookRequest{
			EquipmentID: laser.ID,
			Slots:       []equipment.Window{first, first},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("empty and oversized requests rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.BookEquipmentBulkByTimes(ctx, member, BulkBookRequest{EquipmentID: laser.ID})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		many := make([]equipment.Window, MaxBulkSlots+1)
		for i := range many {
			start := first.Start.Add(time.Duration(i) * 30 * time.Minute)
			many[i] = equipment.Window{Start: start, End: start.Add(30 * time.Minute)}
		}
		_, err = f.svc.BookEquipmentBulkByTimes(ctx, member, BulkBookRequest{EquipmentID: laser.ID, Slots: many})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestGetBookingStats(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to the last 30 days by day", func(t *testing.T) {
		f := newFixture()
		from := testNow.AddDate(0, 0, -30)
		f.repo.On("GetBookingStatsByDay", ctx, from, testNow).
			Return([]BookingStat{{Bucket: "2026-10-17", Confirmed: 3}}, nil)

		stats, err := f.svc.GetBookingStats(ctx, "", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, stats, 1)
		f.repo.AssertExpectations(t)
	})

	t.Run("by equipment", func(t *testing.T) {
		f := newFixture()
		from, to := testNow.AddDate(0, 0, -7), testNow
		f.repo.On("GetBookingStatsByEquipment", ctx, from, to).
			Return([]BookingStat{{Bucket: "Laser Cutter", Pending: 1}}, nil)

		stats, err := f.svc.GetBookingStats(ctx, GroupByEquipment, from, to)
		require.NoError(t, err)
		assert.Equal(t, "Laser Cutter", stats[0].Bucket)
	})

	t.Run("unknown grouping", func(t *testing.T) {
		_, err := newFixture().svc.GetBookingStats(ctx, "hour", time.Time{}, time.Time{})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := newFixture().svc.GetBookingStats(ctx, GroupByDay, testNow, testNow.Add(-time.Hour))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestServiceGetUserBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("GetUserBookings", ctx, int64(42)).Return([]BookingWithDetails(nil), errors.New("db down"))

	_, err := f.svc.GetUserBookings(ctx, 42)
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestGetBooking(t *testing.T) {
	ctx := context.Background()
	own := &Booking{ID: 7, UserID: 42, EquipmentID: laser.ID, SlotID: 100, Status: StatusConfirmed}
	other := &Booking{ID: 8, UserID: 99, EquipmentID: laser.ID, SlotID: 101, Status: StatusPending}

	tests := []struct {
		name    string
		req     Requester
		id      int64
		stored  *Booking
		repoErr error
		want    *Booking
		wantErr error
	}{
		{"own booking", member, 7, own, nil, own, nil},
		{"another member's booking", member, 8, other, nil, nil, apperr.ErrNotFound},
		{"admin sees any booking", Requester{UserID: 1, TrustLevel: 5, IsAdmin: true}, 8, other, nil, other, nil},
		{"missing", member, 9, nil, ErrBookingNotFound, nil, apperr.ErrNotFound},
		{"store failure", member, 7, nil, errors.New("db down"), nil, apperr.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("GetBookingByID", ctx, tt.id).Return(tt.stored, tt.repoErr)

			got, err := f.svc.GetBooking(ctx, tt.req, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid id", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.GetBooking(ctx, member, 0)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.repo.AssertNotCalled(t, "GetBookingByID", mock.Anything, mock.Anything)
	})
}
