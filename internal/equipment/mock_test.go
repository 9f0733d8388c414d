package equipment

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) equipment(args mock.Arguments) (*Equipment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Equipment), args.Error(1)
}

func (m *MockRepository) CreateEquipment(ctx context.Context, e *Equipment) (*Equipment, error) {
	return m.equipment(m.Called(ctx, e))
}

func (m *MockRepository) UpdateEquipment(ctx context.Context, id int64, req UpdateEquipmentRequest) (*Equipment, error) {
	return m.equipment(m.Called(ctx, id, req))
}

func (m *MockRepository) GetEquipmentByID(ctx context.Context, id int64) (*Equipment, error) {
	return m.equipment(m.Called(ctx, id))
}

func (m *MockRepository) ListEquipment(ctx context.Context, onlyAvailable bool) ([]Equipment, error) {
	args := m.Called(ctx, onlyAvailable)
	return args.Get(0).([]Equipment), args.Error(1)
}

func (m *MockRepository) SetAvailability(ctx context.Context, id int64, available bool) (*Equipment, error) {
	return m.equipment(m.Called(ctx, id, available))
}

func (m *MockRepository) SoftDeleteEquipment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) HasActiveFutureBookings(ctx context.Context, equipmentID int64, now time.Time) (bool, error) {
	args := m.Called(ctx, equipmentID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetEquipmentForShare(ctx context.Context, id int64) (*Equipment, error) {
	return m.equipment(m.Called(ctx, id))
}

func (m *MockRepository) GetEquipmentForUpdate(ctx context.Context, id int64) (*Equipment, error) {
	return m.equipment(m.Called(ctx, id))
}

func (m *MockRepository) EnsureSlot(ctx context.Context, equipmentID int64, w Window) error {
	return m.Called(ctx, equipmentID, w).Error(0)
}

func (m *MockRepository) GetSlotForUpdate(ctx context.Context, equipmentID int64, start time.Time) (*Slot, error) {
	args := m.Called(ctx, equipmentID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Slot), args.Error(1)
}

func (m *MockRepository) GetSlotsByIDs(ctx context.Context, ids []int64) ([]Slot, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]Slot), args.Error(1)
}

func (m *MockRepository) MarkSlotBooked(ctx context.Context, slotID int64) error {
	return m.Called(ctx, slotID).Error(0)
}

func (m *MockRepository) MarkSlotsFree(ctx context.Context, slotIDs []int64) error {
	return m.Called(ctx, slotIDs).Error(0)
}

func (m *MockRepository) LinkSlotToWorkshop(ctx context.Context, slotID, occurrenceID int64) error {
	return m.Called(ctx, slotID, occurrenceID).Error(0)
}

func (m *MockRepository) ListSlotsWithBookings(ctx context.Context, f SlotFilter) ([]SlotWithBooking, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]SlotWithBooking), args.Error(1)
}

// inlineTx runs fn without a real transaction.
type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
