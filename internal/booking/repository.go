package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"makerspace/internal/db"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrActiveBookingExists is returned when the slot already has a live
	// booking row (partial unique index on slot_id).
	ErrActiveBookingExists = errors.New("slot already has an active booking")
)

const bookingColumns = `id, user_id, equipment_id, slot_id, status, booked_for, payment_intent_id, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) CreateBooking(ctx context.Context, b *Booking) (*Booking, error) {
	query := `
		INSERT INTO equipment_bookings (user_id, equipment_id, slot_id, status, booked_for, payment_intent_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + bookingColumns

	var created Booking
	err := db.Conn(ctx, r.db).GetContext(ctx, &created, query,
		b.UserID, b.EquipmentID, b.SlotID, b.Status, b.BookedFor, b.PaymentIntentID)
	if db.IsUniqueViolation(err) {
		return nil, ErrActiveBookingExists
	}
	if err != nil {
		return nil, fmt.Errorf("create booking for slot %d: %w", b.SlotID, err)
	}
	return &created, nil
}

func (r *PostgresRepository) GetBookingByID(ctx context.Context, id int64) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM equipment_bookings
		WHERE id = $1
	`

	var b Booking
	err := db.Conn(ctx, r.db).GetContext(ctx, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &b, nil
}

// GetBookingsForUpdate locks the rows in id order. Missing ids are simply
// absent from the result.
func (r *PostgresRepository) GetBookingsForUpdate(ctx context.Context, ids []int64) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM equipment_bookings
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	bookings := []Booking{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &bookings, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lock bookings: %w", err)
	}
	return bookings, nil
}

func (r *PostgresRepository) CancelBookings(ctx context.Context, ids []int64) error {
	query := `
		UPDATE equipment_bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = ANY($1) AND status <> 'cancelled'
	`

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("cancel bookings: %w", err)
	}
	if n, _ := res.RowsAffected(); n != int64(len(ids)) {
		return fmt.Errorf("cancel bookings: expected %d rows, updated %d", len(ids), n)
	}
	return nil
}

const detailsSelect = `
	SELECT b.id, b.user_id, b.equipment_id, b.slot_id, b.status, b.booked_for,
	       b.payment_intent_id, b.created_at, b.updated_at,
	       e.name AS equipment_name, COALESCE(u.name, '') AS user_name,
	       s.start_time, s.end_time
	FROM equipment_bookings b
	JOIN equipment e ON e.id = b.equipment_id
	JOIN equipment_slots s ON s.id = b.slot_id
	LEFT JOIN users u ON u.id = b.user_id
`

func (r *PostgresRepository) GetUserBookings(ctx context.Context, userID int64) ([]BookingWithDetails, error) {
	query := detailsSelect + `
		WHERE b.user_id = $1
		ORDER BY s.start_time DESC
	`

	bookings := []BookingWithDetails{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("get bookings for user %d: %w", userID, err)
	}
	return bookings, nil
}

func (r *PostgresRepository) GetBookingsByEquipment(ctx context.Context, equipmentID int64) ([]BookingWithDetails, error) {
	query := detailsSelect + `
		WHERE b.equipment_id = $1
		ORDER BY s.start_time
	`

	bookings := []BookingWithDetails{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &bookings, query, equipmentID); err != nil {
		return nil, fmt.Errorf("get bookings for equipment %d: %w", equipmentID, err)
	}
	return bookings, nil
}

func (r *PostgresRepository) GetBookingStatsByDay(ctx context.Context, from, to time.Time) ([]BookingStat, error) {
	query := `
		SELECT
			TO_CHAR(DATE(s.start_time), 'YYYY-MM-DD') AS bucket,
			COUNT(*) FILTER (WHERE b.status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE b.status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE b.status = 'cancelled') AS cancelled
		FROM equipment_bookings b
		JOIN equipment_slots s ON s.id = b.slot_id
		WHERE s.start_time >= $1 AND s.start_time < $2
		GROUP BY DATE(s.start_time)
		ORDER BY bucket
	`

	stats := []BookingStat{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, fmt.Errorf("booking stats by day: %w", err)
	}
	return stats, nil
}

func (r *PostgresRepository) GetBookingStatsByEquipment(ctx context.Context, from, to time.Time) ([]BookingStat, error) {
	query := `
		SELECT
			e.name AS bucket,
			COUNT(b.id) FILTER (WHERE b.status = 'confirmed') AS confirmed,
			COUNT(b.id) FILTER (WHERE b.status = 'pending') AS pending,
			COUNT(b.id) FILTER (WHERE b.status = 'cancelled') AS cancelled
		FROM equipment e
		JOIN equipment_bookings b ON b.equipment_id = e.id
		JOIN equipment_slots s ON s.id = b.slot_id
		WHERE s.start_time >= $1 AND s.start_time < $2
		GROUP BY e.id, e.name
		ORDER BY e.name
	`

	stats := []BookingStat{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, fmt.Errorf("booking stats by equipment: %w", err)
	}
	return stats, nil
}
