package booking

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"makerspace/internal/equipment"
	"makerspace/internal/events"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateBooking(ctx context.Context, b *Booking) (*Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) GetBookingByID(ctx context.Context, id int64) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) GetBookingsForUpdate(ctx context.Context, ids []int64) ([]Booking, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockRepository) CancelBookings(ctx context.Context, ids []int64) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *MockRepository) GetUserBookings(ctx context.Context, userID int64) ([]BookingWithDetails, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockRepository) GetBookingsByEquipment(ctx context.Context, equipmentID int64) ([]BookingWithDetails, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockRepository) GetBookingStatsByDay(ctx context.Context, from, to time.Time) ([]BookingStat, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]BookingStat), args.Error(1)
}

func (m *MockRepository) GetBookingStatsByEquipment(ctx context.Context, from, to time.Time) ([]BookingStat, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]BookingStat), args.Error(1)
}

type MockSlotStore struct {
	mock.Mock
}

func (m *MockSlotStore) GetEquipmentForShare(ctx context.Context, id int64) (*equipment.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*equipment.Equipment), args.Error(1)
}

func (m *MockSlotStore) EnsureSlot(ctx context.Context, equipmentID int64, w equipment.Window) error {
	return m.Called(ctx, equipmentID, w).Error(0)
}

func (m *MockSlotStore) GetSlotForUpdate(ctx context.Context, equipmentID int64, start time.Time) (*equipment.Slot, error) {
	args := m.Called(ctx, equipmentID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*equipment.Slot), args.Error(1)
}

func (m *MockSlotStore) MarkSlotBooked(ctx context.Context, slotID int64) error {
	return m.Called(ctx, slotID).Error(0)
}

type MockPolicy struct {
	mock.Mock
}

func (m *MockPolicy) CheckWindow(ctx context.Context, trustLevel int, start, end time.Time) error {
	return m.Called(ctx, trustLevel, start, end).Error(0)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) result(args mock.Arguments) (*Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockService) BookEquipment(ctx context.Context, req Requester, in BookRequest) (*Result, error) {
	return m.result(m.Called(ctx, req, in))
}

func (m *MockService) BookEquipmentBulkByTimes(ctx context.Context, req Requester, in BulkBookRequest) (*Result, error) {
	return m.result(m.Called(ctx, req, in))
}

func (m *MockService) GetBooking(ctx context.Context, req Requester, id int64) (*Booking, error) {
	args := m.Called(ctx, req, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) GetUserBookings(ctx context.Context, userID int64) ([]BookingWithDetails, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockService) GetBookingsByEquipment(ctx context.Context, equipmentID int64) ([]BookingWithDetails, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *MockService) GetBookingStats(ctx context.Context, groupBy StatsGroupBy, from, to time.Time) ([]BookingStat, error) {
	args := m.Called(ctx, groupBy, from, to)
	return args.Get(0).([]BookingStat), args.Error(1)
}

// recordingDispatcher keeps dispatched events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) DispatchAsync(evts []events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evts...)
}

func (d *recordingDispatcher) dispatched() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event(nil), d.events...)
}

// inlineTx runs fn without a real transaction.
type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
