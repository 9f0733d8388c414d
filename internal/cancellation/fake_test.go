package cancellation

import (
	"context"
	"sort"

	"makerspace/internal/booking"
	"makerspace/internal/equipment"
)

type memoryLedger struct {
	rows    []Cancellation
	locked  []string
	nextID  int64
	failErr error
}

func (m *memoryLedger) LockLineage(_ context.Context, pi string) error {
	m.locked = append(m.locked, pi)
	return nil
}

func (m *memoryLedger) GetByPaymentIntent(_ context.Context, pi string) ([]Cancellation, error) {
	var out []Cancellation
	for _, r := range m.rows {
		if r.PaymentIntentID != nil && *r.PaymentIntentID == pi {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryLedger) Create(_ context.Context, c *Cancellation) (*Cancellation, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.nextID++
	row := *c
	row.ID = m.nextID
	m.rows = append(m.rows, row)
	return &row, nil
}

func (m *memoryLedger) List(_ context.Context, f Filter) ([]CancellationWithDetails, error) {
	out := []CancellationWithDetails{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if f.Resolved != nil && r.Resolved != *f.Resolved {
			continue
		}
		out = append(out, CancellationWithDetails{Cancellation: r})
	}
	return out, nil
}

func (m *memoryLedger) UpdateResolved(_ context.Context, id int64, resolved bool) (*Cancellation, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Resolved = resolved
			row := m.rows[i]
			return &row, nil
		}
	}
	return nil, ErrCancellationNotFound
}

func (m *memoryLedger) refundedFor(pi string) int {
	total := 0
	for _, r := range m.rows {
		if r.PaymentIntentID != nil && *r.PaymentIntentID == pi {
			total += r.SlotsRefunded
		}
	}
	return total
}

type memoryBookings struct {
	byID map[int64]*booking.Booking
}

func (m *memoryBookings) GetBookingsForUpdate(_ context.Context, ids []int64) ([]booking.Booking, error) {
	out := []booking.Booking{}
	for _, id := range ids {
		if b, ok := m.byID[id]; ok {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryBookings) CancelBookings(_ context.Context, ids []int64) error {
	for _, id := range ids {
		m.byID[id].Status = booking.StatusCancelled
	}
	return nil
}

type memorySlots struct {
	equipment map[int64]*equipment.Equipment
	byID      map[int64]*equipment.Slot
}

func (m *memorySlots) GetEquipmentByID(_ context.Context, id int64) (*equipment.Equipment, error) {
	e, ok := m.equipment[id]
	if !ok {
		return nil, equipment.ErrEquipmentNotFound
	}
	return e, nil
}

func (m *memorySlots) GetSlotsByIDs(_ context.Context, ids []int64) ([]equipment.Slot, error) {
	out := []equipment.Slot{}
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memorySlots) MarkSlotsFree(_ context.Context, ids []int64) error {
	for _, id := range ids {
		m.byID[id].IsBooked = false
	}
	return nil
}

// inlineTx runs fn without a real transaction. Fakes are not rolled back, so
// tests only assert on state after successful calls or before any write.
type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
