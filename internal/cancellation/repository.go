package cancellation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"makerspace/internal/db"
)

var ErrCancellationNotFound = errors.New("cancellation not found")

const cancellationColumns = `id, user_id, equipment_id, payment_intent_id, total_slots_booked,
	total_price_paid_cents, slots_refunded, price_to_refund_cents, cancelled_slot_times,
	resolved, cancellation_date`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) LockLineage(ctx context.Context, paymentIntentID string) error {
	if _, err := db.Conn(ctx, r.db).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, paymentIntentID); err != nil {
		return fmt.Errorf("lock payment intent lineage: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) ([]Cancellation, error) {
	query := `
		SELECT ` + cancellationColumns + `
		FROM equipment_cancelled_bookings
		WHERE payment_intent_id = $1
		ORDER BY id
	`

	list := []Cancellation{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &list, query, paymentIntentID); err != nil {
		return nil, fmt.Errorf("get cancellations for payment intent: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *Cancellation) (*Cancellation, error) {
	query := `
		INSERT INTO equipment_cancelled_bookings (
			user_id, equipment_id, payment_intent_id, total_slots_booked, total_price_paid_cents,
			slots_refunded, price_to_refund_cents, cancelled_slot_times
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + cancellationColumns

	var created Cancellation
	err := db.Conn(ctx, r.db).GetContext(ctx, &created, query,
		c.UserID, c.EquipmentID, c.PaymentIntentID, c.TotalSlotsBooked, c.TotalPricePaidCents,
		c.SlotsRefunded, c.PriceToRefundCents, c.CancelledSlotTimes)
	if err != nil {
		return nil, fmt.Errorf("create cancellation: %w", err)
	}
	return &created, nil
}

// List returns ledger rows with equipment and user joined in, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]CancellationWithDetails, error) {
	qb := psql.Select(
		"c.id", "c.user_id", "c.equipment_id", "c.payment_intent_id", "c.total_slots_booked",
		"c.total_price_paid_cents", "c.slots_refunded", "c.price_to_refund_cents",
		"c.cancelled_slot_times", "c.resolved", "c.cancellation_date",
		"COALESCE(e.name, '') AS equipment_name",
		"COALESCE(u.name, '') AS user_name",
		"COALESCE(u.email, '') AS user_email",
	).
		From("equipment_cancelled_bookings c").
		LeftJoin("equipment e ON e.id = c.equipment_id").
		LeftJoin("users u ON u.id = c.user_id").
		OrderBy("c.cancellation_date DESC", "c.id DESC")

	if f.Resolved != nil {
		qb = qb.Where(sq.Eq{"c.resolved": *f.Resolved})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cancellation query: %w", err)
	}

	list := []CancellationWithDetails{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list cancellations: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) UpdateResolved(ctx context.Context, id int64, resolved bool) (*Cancellation, error) {
	query := `
		UPDATE equipment_cancelled_bookings
		SET resolved = $2
		WHERE id = $1
		RETURNING ` + cancellationColumns

	var c Cancellation
	err := db.Conn(ctx, r.db).GetContext(ctx, &c, query, id, resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCancellationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update cancellation %d: %w", id, err)
	}
	return &c, nil
}
