package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatReservation is a TTL-bounded hold of seats on one flight for one
// booking. A reservation is active while deleted_at is NULL; confirm and
// release both soft-delete, they differ only in whether seats are returned.
type SeatReservation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	BookingID string     `db:"booking_id" json:"booking_id"`
	FlightID  string     `db:"flight_id" json:"flight_id"`
	Seats     int        `db:"seats" json:"seats"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsExpired reports whether the reservation has passed its TTL at the given
// instant. Only meaningful for active reservations.
func (r *SeatReservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
