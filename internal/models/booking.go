package models

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// BOOKING TYPES & STATUSES (matches DB ENUMs)
// ============================================================================

// BookingStatus represents the status of a booking
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusFailed    BookingStatus = "FAILED"
	BookingStatusTimeout   BookingStatus = "TIMEOUT"
)

// IsTerminal reports whether the status is absorbing. Terminal bookings never
// transition again.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusFailed || s == BookingStatusTimeout
}

// FlightType distinguishes a direct flight from a computed multi-leg route.
type FlightType string

const (
	FlightTypeDirect   FlightType = "DIRECT"
	FlightTypeComputed FlightType = "COMPUTED"
)

// ComputedRoutePrefix marks synthetic identifiers that bundle an ordered
// sequence of direct flights.
const ComputedRoutePrefix = "CF_"

// BookingIDPrefix distinguishes generated booking ids from flight ids.
const BookingIDPrefix = "BK_"

// PaymentStatus values the external payment service reports back.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailure PaymentStatus = "FAILURE"
	PaymentStatusTimeout PaymentStatus = "TIMEOUT"
)

// ============================================================================
// RECORDS
// ============================================================================

// Booking couples a user request to the inventory lifecycle of its legs.
type Booking struct {
	BookingID        string        `db:"booking_id" json:"booking_id"`
	UserID           string        `db:"user_id" json:"user_id"`
	FlightType       FlightType    `db:"flight_type" json:"flight_type"`
	FlightIdentifier string        `db:"flight_identifier" json:"flight_identifier"`
	NoOfSeats        int           `db:"no_of_seats" json:"no_of_seats"`
	TotalPrice       float64       `db:"total_price" json:"total_price"`
	Status           BookingStatus `db:"status" json:"status"`
	IdempotencyKey   *string       `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`

	// Legs is the ordered sequence of concrete flights, dense from leg_order 0.
	Legs []string `json:"legs"`
}

// ============================================================================
// REQUESTS & RESPONSES
// ============================================================================

// CreateBookingRequest is the body of POST /v1/bookings.
type CreateBookingRequest struct {
	UserID           string `json:"user_id"`
	FlightIdentifier string `json:"flight_identifier"`
	Seats            int    `json:"seats"`
}

// Validate checks the request against the configured seat bounds.
func (r *CreateBookingRequest) Validate(minSeats, maxSeats int) error {
	if strings.TrimSpace(r.UserID) == "" {
		return NewValidationError("user_id is required")
	}
	if strings.TrimSpace(r.FlightIdentifier) == "" {
		return NewValidationError("flight_identifier is required")
	}
	if r.Seats < minSeats || r.Seats > maxSeats {
		return NewValidationError(fmt.Sprintf("seats must be between %d and %d", minSeats, maxSeats))
	}
	return nil
}

// BookingEntry is the booking projection returned to clients.
type BookingEntry struct {
	BookingID        string        `json:"booking_id"`
	UserID           string        `json:"user_id"`
	FlightType       FlightType    `json:"flight_type"`
	FlightIdentifier string        `json:"flight_identifier"`
	Legs             []string      `json:"legs"`
	NoOfSeats        int           `json:"no_of_seats"`
	TotalPrice       float64       `json:"total_price"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewBookingEntry builds the client projection from a booking record.
func NewBookingEntry(b *Booking) *BookingEntry {
	return &BookingEntry{
		BookingID:        b.BookingID,
		UserID:           b.UserID,
		FlightType:       b.FlightType,
		FlightIdentifier: b.FlightIdentifier,
		Legs:             b.Legs,
		NoOfSeats:        b.NoOfSeats,
		TotalPrice:       b.TotalPrice,
		Status:           b.Status,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// PaymentCallbackRequest is the body the payment service POSTs back once a
// payment reaches a terminal outcome.
type PaymentCallbackRequest struct {
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Validate checks the callback has the fields the orchestrator needs.
func (r *PaymentCallbackRequest) Validate() error {
	if strings.TrimSpace(r.BookingID) == "" {
		return NewValidationError("booking_id is required")
	}
	if strings.TrimSpace(r.Status) == "" {
		return NewValidationError("status is required")
	}
	return nil
}

// ReserveSeatsRequest is the body of POST /v1/inventory/reserve.
type ReserveSeatsRequest struct {
	BookingID  string   `json:"booking_id"`
	FlightIDs  []string `json:"flight_ids"`
	Seats      int      `json:"seats"`
	TTLMinutes int      `json:"ttl_minutes"`
}

// Validate checks the reserve request fields.
func (r *ReserveSeatsRequest) Validate() error {
	if strings.TrimSpace(r.BookingID) == "" {
		return NewValidationError("booking_id is required")
	}
	if len(r.FlightIDs) == 0 {
		return NewValidationError("flight_ids must not be empty")
	}
	for _, id := range r.FlightIDs {
		if strings.TrimSpace(id) == "" {
			return NewValidationError("flight_ids must not contain empty ids")
		}
	}
	if r.Seats <= 0 {
		return NewValidationError("seats must be positive")
	}
	if r.TTLMinutes < 0 {
		return NewValidationError("ttl_minutes must not be negative")
	}
	return nil
}

// ConfirmSeatsRequest is the body of POST /v1/inventory/confirm. The flight
// and seat fields are accepted for wire compatibility; the authoritative set
// comes from the reservation rows.
type ConfirmSeatsRequest struct {
	BookingID string   `json:"booking_id"`
	FlightIDs []string `json:"flight_ids,omitempty"`
	Seats     int      `json:"seats,omitempty"`
}

// ReserveSeatsResponse is the success body of POST /v1/inventory/reserve.
type ReserveSeatsResponse struct {
	Success       bool      `json:"success"`
	ReservationID string    `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}
