package models

import (
	"time"
)

// FlightStatus represents the lifecycle status of a flight
// Matches PostgreSQL ENUM: flight_status
type FlightStatus string

const (
	FlightStatusActive    FlightStatus = "ACTIVE"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

// Flight is the authoritative inventory record for a single scheduled flight.
// available_seats is mutated only by the inventory engine while holding the
// per-flight mutex.
type Flight struct {
	FlightID       string       `db:"flight_id" json:"flight_id"`
	Source         string       `db:"source" json:"source"`
	Destination    string       `db:"destination" json:"destination"`
	DepartureTime  time.Time    `db:"departure_time" json:"departure_time"`
	ArrivalTime    time.Time    `db:"arrival_time" json:"arrival_time"`
	TotalSeats     int          `db:"total_seats" json:"total_seats"`
	AvailableSeats int          `db:"available_seats" json:"available_seats"`
	Price          float64      `db:"price" json:"price"`
	Status         FlightStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// IsBookable reports whether the flight can accept new reservations.
func (f *Flight) IsBookable() bool {
	return f.Status == FlightStatusActive
}

// FlightAvailability is the cache-backed availability projection returned by
// the availability endpoint. Cached=false means the value was read through
// from the database and the cache has been repaired.
type FlightAvailability struct {
	FlightID       string `json:"flight_id"`
	AvailableSeats int    `json:"available_seats"`
	Cached         bool   `json:"cached"`
}
