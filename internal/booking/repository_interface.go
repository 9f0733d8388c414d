package booking

import (
	"context"
	"time"
)

type Repository interface {
	CreateBooking(ctx context.Context, b *Booking) (*Booking, error)
	GetBookingByID(ctx context.Context, id int64) (*Booking, error)
	GetBookingsForUpdate(ctx context.Context, ids []int64) ([]Booking, error)
	CancelBookings(ctx context.Context, ids []int64) error
	GetUserBookings(ctx context.Context, userID int64) ([]BookingWithDetails, error)
	GetBookingsByEquipment(ctx context.Context, equipmentID int64) ([]BookingWithDetails, error)
	GetBookingStatsByDay(ctx context.Context, from, to time.Time) ([]BookingStat, error)
	GetBookingStatsByEquipment(ctx context.Context, from, to time.Time) ([]BookingStat, error)
}
