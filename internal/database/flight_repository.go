package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// FlightRepository handles flight persistence. available_seats is only
// mutated through the conditional decrement / clamped increment below, which
// the inventory engine calls under the per-flight mutex.
type FlightRepository struct {
	db *sqlx.DB
}

// NewFlightRepository creates a new FlightRepository
func NewFlightRepository(db *sqlx.DB) *FlightRepository {
	return &FlightRepository{db: db}
}

const flightColumns = `flight_id, source, destination, departure_time, arrival_time,
       total_seats, available_seats, price, status, created_at, updated_at`

// GetByID retrieves a flight by its id. Returns nil when not found.
func (r *FlightRepository) GetByID(flightID string) (*models.Flight, error) {
	var flight models.Flight
	query := fmt.Sprintf(`SELECT %s FROM flights WHERE flight_id = $1`, flightColumns)

	err := r.db.Get(&flight, query, flightID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}
	return &flight, nil
}

// ListActive returns all flights still open for booking.
func (r *FlightRepository) ListActive() ([]models.Flight, error) {
	query := fmt.Sprintf(`SELECT %s FROM flights WHERE status = 'ACTIVE' ORDER BY departure_time`, flightColumns)

	var flights []models.Flight
	if err := r.db.Select(&flights, query); err != nil {
		return nil, fmt.Errorf("failed to list active flights: %w", err)
	}
	return flights, nil
}

// ConditionalDecrement atomically subtracts seats from available_seats iff
// enough remain. Returns whether a row was updated; false means insufficient
// seats and no change.
func (r *FlightRepository) ConditionalDecrement(flightID string, seats int) (bool, error) {
	return conditionalDecrement(r.db, flightID, seats)
}

// ConditionalDecrementTx is ConditionalDecrement inside a caller-owned
// transaction.
func (r *FlightRepository) ConditionalDecrementTx(tx *sqlx.Tx, flightID string, seats int) (bool, error) {
	return conditionalDecrement(tx, flightID, seats)
}

func conditionalDecrement(e sqlx.Execer, flightID string, seats int) (bool, error) {
	query := `
		UPDATE flights
		SET available_seats = available_seats - $2, updated_at = NOW()
		WHERE flight_id = $1 AND available_seats >= $2`

	result, err := e.Exec(query, flightID, seats)
	if err != nil {
		return false, fmt.Errorf("failed to decrement seats: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Increment returns seats to available_seats, clamped at total_seats.
func (r *FlightRepository) Increment(flightID string, seats int) error {
	return increment(r.db, flightID, seats)
}

// IncrementTx is Increment inside a caller-owned transaction.
func (r *FlightRepository) IncrementTx(tx *sqlx.Tx, flightID string, seats int) error {
	return increment(tx, flightID, seats)
}

func increment(e sqlx.Execer, flightID string, seats int) error {
	query := `
		UPDATE flights
		SET available_seats = LEAST(total_seats, available_seats + $2), updated_at = NOW()
		WHERE flight_id = $1`

	if _, err := e.Exec(query, flightID, seats); err != nil {
		return fmt.Errorf("failed to increment seats: %w", err)
	}
	return nil
}

// BeginTx starts a new transaction
func (r *FlightRepository) BeginTx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}
