package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// BookingRepository handles booking and booking leg persistence. The
// idempotency_key column carries a unique index so concurrent duplicate
// creates surface as an explicit collision rather than two bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `booking_id, user_id, flight_type, flight_identifier, no_of_seats,
       total_price, status, idempotency_key, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Insert writes a booking and its ordered legs in one transaction. Legs are
// taken from booking.Legs with dense leg_order starting at 0.
func (r *BookingRepository) Insert(booking *models.Booking) error {
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (booking_id, user_id, flight_type, flight_identifier,
		                      no_of_seats, total_price, status, idempotency_key,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(query,
		booking.BookingID, booking.UserID, booking.FlightType, booking.FlightIdentifier,
		booking.NoOfSeats, booking.TotalPrice, booking.Status, booking.IdempotencyKey,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	for i, flightID := range booking.Legs {
		_, err = tx.Exec(`
			INSERT INTO booking_flights (booking_id, flight_id, leg_order)
			VALUES ($1, $2, $3)`,
			booking.BookingID, flightID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking leg %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// FindByID retrieves a booking with its legs. Returns nil when not found.
func (r *BookingRepository) FindByID(bookingID string) (*models.Booking, error) {
	var booking models.Booking
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE booking_id = $1`, bookingColumns)

	err := r.db.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.loadLegs(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIdempotencyKey retrieves the booking created under a client
// idempotency key. Returns nil when no booking carries the key.
func (r *BookingRepository) FindByIdempotencyKey(key string) (*models.Booking, error) {
	var bookingID string
	err := r.db.Get(&bookingID, `SELECT booking_id FROM bookings WHERE idempotency_key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return r.FindByID(bookingID)
}

// FindByUser returns all bookings for a user, newest first.
func (r *BookingRepository) FindByUser(userID string) ([]models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`, bookingColumns)

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings for user: %w", err)
	}

	for i := range bookings {
		if err := r.loadLegs(&bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// FindPendingOlderThan returns PENDING bookings created before the cutoff.
// Used by the reconciler to time out bookings whose payment never resolved.
func (r *BookingRepository) FindPendingOlderThan(cutoff time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at`, bookingColumns)

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list stale pending bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatusFromPending transitions a booking out of PENDING. The status
// predicate makes duplicate concurrent callbacks race safely: the first
// writer wins, later ones see zero rows affected.
func (r *BookingRepository) UpdateStatusFromPending(bookingID string, status models.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE booking_id = $1 AND status = 'PENDING'`

	result, err := r.db.Exec(query, bookingID, status)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// loadLegs fills booking.Legs ordered by leg_order.
func (r *BookingRepository) loadLegs(booking *models.Booking) error {
	var legs pq.StringArray
	query := `
		SELECT COALESCE(ARRAY_AGG(flight_id ORDER BY leg_order), '{}')
		FROM booking_flights
		WHERE booking_id = $1`

	if err := r.db.Get(&legs, query, booking.BookingID); err != nil {
		return fmt.Errorf("failed to load booking legs: %w", err)
	}
	booking.Legs = []string(legs)
	return nil
}
