package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// ReservationRepository handles seat reservation rows. Reservations are only
// soft-deleted; every active-set query filters deleted_at IS NULL.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, booking_id, flight_id, seats, expires_at, created_at, deleted_at`

// InsertTx inserts a reservation inside a caller-owned transaction. A partial
// unique index on (booking_id, flight_id) WHERE deleted_at IS NULL rejects a
// second active hold for the same pair.
func (r *ReservationRepository) InsertTx(tx *sqlx.Tx, reservation *models.SeatReservation) error {
	if reservation.ID == uuid.Nil {
		reservation.ID = uuid.New()
	}
	reservation.CreatedAt = time.Now()

	query := `
		INSERT INTO seat_reservations (id, booking_id, flight_id, seats, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(query,
		reservation.ID, reservation.BookingID, reservation.FlightID,
		reservation.Seats, reservation.ExpiresAt, reservation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// FindActiveByBooking returns all active reservations for a booking.
func (r *ReservationRepository) FindActiveByBooking(bookingID string) ([]models.SeatReservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM seat_reservations
		WHERE booking_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`, reservationColumns)

	var reservations []models.SeatReservation
	if err := r.db.Select(&reservations, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to find active reservations: %w", err)
	}
	return reservations, nil
}

// ExistsActive reports whether the booking has any active reservation.
func (r *ReservationRepository) ExistsActive(bookingID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM seat_reservations
			WHERE booking_id = $1 AND deleted_at IS NULL
		)`

	if err := r.db.Get(&exists, query, bookingID); err != nil {
		return false, fmt.Errorf("failed to check active reservations: %w", err)
	}
	return exists, nil
}

// SoftDeleteByBooking tombstones all active reservations for a booking in one
// statement. Returns the number of rows affected; zero means another writer
// got there first.
func (r *ReservationRepository) SoftDeleteByBooking(bookingID string, now time.Time) (int, error) {
	return softDeleteByBooking(r.db, bookingID, now)
}

// SoftDeleteByBookingTx is SoftDeleteByBooking inside a caller-owned
// transaction.
func (r *ReservationRepository) SoftDeleteByBookingTx(tx *sqlx.Tx, bookingID string, now time.Time) (int, error) {
	return softDeleteByBooking(tx, bookingID, now)
}

func softDeleteByBooking(e sqlx.Execer, bookingID string, now time.Time) (int, error) {
	query := `
		UPDATE seat_reservations
		SET deleted_at = $2
		WHERE booking_id = $1 AND deleted_at IS NULL`

	result, err := e.Exec(query, bookingID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to soft-delete reservations: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// FindExpired returns active reservations past their TTL, oldest first.
func (r *ReservationRepository) FindExpired(now time.Time, limit int) ([]models.SeatReservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM seat_reservations
		WHERE deleted_at IS NULL AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, reservationColumns)

	var reservations []models.SeatReservation
	if err := r.db.Select(&reservations, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}
	return reservations, nil
}

// BeginTx starts a new transaction
func (r *ReservationRepository) BeginTx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}
