package equipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"makerspace/internal/db"
)

var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotAlreadyBooked = errors.New("slot already booked")
)

const equipmentColumns = `id, name, description, price_cents, availability, deleted_at, created_at, updated_at`

const slotColumns = `id, equipment_id, start_time, end_time, is_booked, workshop_occurrence_id, created_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) CreateEquipment(ctx context.Context, e *Equipment) (*Equipment, error) {
	query := `
		INSERT INTO equipment (name, description, price_cents, availability)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + equipmentColumns

	var created Equipment
	err := db.Conn(ctx, r.db).GetContext(ctx, &created, query, e.Name, e.Description, e.PriceCents, e.Availability)
	if err != nil {
		return nil, fmt.Errorf("create equipment: %w", err)
	}
	return &created, nil
}

func (r *PostgresRepository) UpdateEquipment(ctx context.Context, id int64, req UpdateEquipmentRequest) (*Equipment, error) {
	query := `
		UPDATE equipment
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			price_cents = COALESCE($4, price_cents),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + equipmentColumns

	var e Equipment
	err := db.Conn(ctx, r.db).GetContext(ctx, &e, query, id, req.Name, req.Description, req.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEquipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update equipment %d: %w", id, err)
	}
	return &e, nil
}

func (r *PostgresRepository) GetEquipmentByID(ctx context.Context, id int64) (*Equipment, error) {
	return r.getEquipment(ctx, id, "")
}

func (r *PostgresRepository) GetEquipmentForShare(ctx context.Context, id int64) (*Equipment, error) {
	return r.getEquipment(ctx, id, " FOR SHARE")
}

func (r *PostgresRepository) GetEquipmentForUpdate(ctx context.Context, id int64) (*Equipment, error) {
	return r.getEquipment(ctx, id, " FOR UPDATE")
}

func (r *PostgresRepository) getEquipment(ctx context.Context, id int64, lock string) (*Equipment, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment
		WHERE id = $1 AND deleted_at IS NULL` + lock

	var e Equipment
	err := db.Conn(ctx, r.db).GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEquipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment %d: %w", id, err)
	}
	return &e, nil
}

func (r *PostgresRepository) ListEquipment(ctx context.Context, onlyAvailable bool) ([]Equipment, error) {
	qb := psql.Select(equipmentColumns).
		From("equipment").
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("name", "id")
	if onlyAvailable {
		qb = qb.Where(sq.Eq{"availability": true})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build equipment query: %w", err)
	}

	list := []Equipment{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) SetAvailability(ctx context.Context, id int64, available bool) (*Equipment, error) {
	query := `
		UPDATE equipment
		SET availability = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + equipmentColumns

	var e Equipment
	err := db.Conn(ctx, r.db).GetContext(ctx, &e, query, id, available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEquipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set availability for equipment %d: %w", id, err)
	}
	return &e, nil
}

func (r *PostgresRepository) SoftDeleteEquipment(ctx context.Context, id int64) error {
	query := `
		UPDATE equipment
		SET deleted_at = NOW(), availability = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete equipment %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEquipmentNotFound
	}
	return nil
}

func (r *PostgresRepository) HasActiveFutureBookings(ctx context.Context, equipmentID int64, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM equipment_bookings b
			JOIN equipment_slots s ON s.id = b.slot_id
			WHERE b.equipment_id = $1
			  AND b.status <> 'cancelled'
			  AND s.end_time > $2
		)
	`

	exists, err := db.Exists(ctx, db.Conn(ctx, r.db), query, equipmentID, now)
	if err != nil {
		return false, fmt.Errorf("check future bookings for equipment %d: %w", equipmentID, err)
	}
	return exists, nil
}

// EnsureSlot creates the slot for w if it does not exist yet.
func (r *PostgresRepository) EnsureSlot(ctx context.Context, equipmentID int64, w Window) error {
	query := `
		INSERT INTO equipment_slots (equipment_id, start_time, end_time, is_booked)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (equipment_id, start_time) DO NOTHING
	`

	if _, err := db.Conn(ctx, r.db).ExecContext(ctx, query, equipmentID, w.Start, w.End); err != nil {
		return fmt.Errorf("ensure slot for equipment %d at %s: %w", equipmentID, w.Start, err)
	}
	return nil
}

func (r *PostgresRepository) GetSlotForUpdate(ctx context.Context, equipmentID int64, start time.Time) (*Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM equipment_slots
		WHERE equipment_id = $1 AND start_time = $2
		FOR UPDATE
	`

	var s Slot
	err := db.Conn(ctx, r.db).GetContext(ctx, &s, query, equipmentID, start)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock slot for equipment %d at %s: %w", equipmentID, start, err)
	}
	return &s, nil
}

func (r *PostgresRepository) GetSlotsByIDs(ctx context.Context, ids []int64) ([]Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM equipment_slots
		WHERE id = ANY($1)
		ORDER BY start_time
	`

	slots := []Slot{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &slots, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}
	return slots, nil
}

// MarkSlotBooked flips is_booked only if the slot is still free.
func (r *PostgresRepository) MarkSlotBooked(ctx context.Context, slotID int64) error {
	query := `
		UPDATE equipment_slots
		SET is_booked = TRUE
		WHERE id = $1 AND is_booked = FALSE
	`

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, query, slotID)
	if err != nil {
		return fmt.Errorf("mark slot %d booked: %w", slotID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotAlreadyBooked
	}
	return nil
}

func (r *PostgresRepository) MarkSlotsFree(ctx context.Context, slotIDs []int64) error {
	query := `
		UPDATE equipment_slots
		SET is_booked = FALSE
		WHERE id = ANY($1)
	`

	if _, err := db.Conn(ctx, r.db).ExecContext(ctx, query, pq.Array(slotIDs)); err != nil {
		return fmt.Errorf("free slots: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LinkSlotToWorkshop(ctx context.Context, slotID, occurrenceID int64) error {
	query := `
		UPDATE equipment_slots
		SET workshop_occurrence_id = $2
		WHERE id = $1
	`

	if _, err := db.Conn(ctx, r.db).ExecContext(ctx, query, slotID, occurrenceID); err != nil {
		return fmt.Errorf("link slot %d to workshop occurrence %d: %w", slotID, occurrenceID, err)
	}
	return nil
}

type slotBookingRow struct {
	Slot
	BookingID       sql.NullInt64  `db:"booking_id"`
	BookingUserID   sql.NullInt64  `db:"booking_user_id"`
	BookingUserName sql.NullString `db:"booking_user_name"`
	BookingStatus   sql.NullString `db:"booking_status"`
	PaymentIntentID sql.NullString `db:"payment_intent_id"`
}

func (r *PostgresRepository) ListSlotsWithBookings(ctx context.Context, f SlotFilter) ([]SlotWithBooking, error) {
	qb := psql.Select(
		"s.id", "s.equipment_id", "s.start_time", "s.end_time", "s.is_booked",
		"s.workshop_occurrence_id", "s.created_at",
		"b.id AS booking_id", "b.user_id AS booking_user_id", "u.name AS booking_user_name",
		"b.status AS booking_status", "b.payment_intent_id",
	).
		From("equipment_slots s").
		Join("equipment e ON e.id = s.equipment_id AND e.deleted_at IS NULL").
		LeftJoin("equipment_bookings b ON b.slot_id = s.id AND b.status <> 'cancelled'").
		LeftJoin("users u ON u.id = b.user_id").
		OrderBy("s.equipment_id", "s.start_time")

	if f.EquipmentID > 0 {
		qb = qb.Where(sq.Eq{"s.equipment_id": f.EquipmentID})
	}
	if f.UserID > 0 {
		qb = qb.Where(sq.Eq{"b.user_id": f.UserID})
	}
	if f.From != nil {
		qb = qb.Where(sq.GtOrEq{"s.start_time": *f.From})
	}
	if f.OnlyBooked {
		qb = qb.Where(sq.Or{sq.NotEq{"b.id": nil}, sq.NotEq{"s.workshop_occurrence_id": nil}})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build slot query: %w", err)
	}

	var rows []slotBookingRow
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]SlotWithBooking, 0, len(rows))
	for _, row := range rows {
		sb := SlotWithBooking{Slot: row.Slot}
		if row.BookingID.Valid {
			sb.Booking = &SlotBooking{
				BookingID: row.BookingID.Int64,
				UserID:    row.BookingUserID.Int64,
				UserName:  row.BookingUserName.String,
				Status:    row.BookingStatus.String,
			}
			if row.PaymentIntentID.Valid {
				pi := row.PaymentIntentID.String
				sb.Booking.PaymentIntentID = &pi
			}
		}
		slots = append(slots, sb)
	}
	return slots, nil
}
