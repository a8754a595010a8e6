package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/cache"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/pkg/redislock"
)

// sweepBatchSize bounds how many expired reservations one sweep tick loads.
const sweepBatchSize = 100

// lockKeyPrefix namespaces flight mutex keys in Redis.
const lockKeyPrefix = "lock:flight:"

// ReserveStatus tags the outcome of a reserve call.
type ReserveStatus string

const (
	ReserveSuccess         ReserveStatus = "SUCCESS"
	ReserveAlreadyReserved ReserveStatus = "ALREADY_RESERVED"
	ReserveNoSeats         ReserveStatus = "NO_SEATS"
	ReserveLockFailed      ReserveStatus = "LOCK_FAILED"
	ReserveInternal        ReserveStatus = "INTERNAL"
)

// ReserveOutcome is the tagged result of a reserve call. FlightID names the
// first oversold leg for NO_SEATS; ExpiresAt carries the hold expiry for
// SUCCESS and ALREADY_RESERVED.
type ReserveOutcome struct {
	Status    ReserveStatus
	FlightID  string
	ExpiresAt time.Time
}

// InventoryEngineConfig holds lock tuning for the engine
type InventoryEngineConfig struct {
	LockTTL        time.Duration
	LockWaitBudget time.Duration
}

// InventoryService is the reservation state machine. It is the sole writer
// coordinating the flight store, the reservation store and the seat cache,
// and it owns the no-overbooking invariant: available_seats already reflects
// decrements for both active reservations and confirmed bookings, so confirm
// never touches it.
type InventoryService struct {
	flightRepo      *database.FlightRepository
	reservationRepo *database.ReservationRepository
	seatCache       *cache.SeatCache
	locks           *redislock.Locker
	config          InventoryEngineConfig
	logger          *logrus.Logger

	// now is injected so tests can drive TTLs synthetically.
	now func() time.Time
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	flightRepo *database.FlightRepository,
	reservationRepo *database.ReservationRepository,
	seatCache *cache.SeatCache,
	locks *redislock.Locker,
	config InventoryEngineConfig,
	logger *logrus.Logger,
) *InventoryService {
	return &InventoryService{
		flightRepo:      flightRepo,
		reservationRepo: reservationRepo,
		seatCache:       seatCache,
		locks:           locks,
		config:          config,
		logger:          logger,
		now:             time.Now,
	}
}

// ============================================================================
// RESERVE
// ============================================================================

// Reserve atomically holds seats on every given flight for one booking. The
// hold is all-or-nothing: if any leg is oversold, no flight is changed and
// no reservation row exists. Repeating the call for the same booking id is a
// no-op returning the prior expiry.
func (s *InventoryService) Reserve(ctx context.Context, bookingID string, flightIDs []string, seats int, ttl time.Duration) ReserveOutcome {
	existing, err := s.reservationRepo.FindActiveByBooking(bookingID)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to check existing reservations")
		return ReserveOutcome{Status: ReserveInternal}
	}
	if len(existing) > 0 {
		return ReserveOutcome{Status: ReserveAlreadyReserved, ExpiresAt: existing[0].ExpiresAt}
	}

	handle, err := s.locks.AcquireMany(ctx, flightIDs, s.config.LockTTL, s.config.LockWaitBudget)
	if err != nil {
		if errors.Is(err, redislock.ErrNotAcquired) {
			return ReserveOutcome{Status: ReserveLockFailed}
		}
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Flight lock acquisition failed")
		return ReserveOutcome{Status: ReserveInternal}
	}
	defer s.locks.Release(ctx, handle)

	expiresAt := s.now().Add(ttl)

	tx, err := s.reservationRepo.BeginTx()
	if err != nil {
		s.logger.WithError(err).Error("Failed to begin reserve transaction")
		return ReserveOutcome{Status: ReserveInternal}
	}
	defer tx.Rollback()

	for _, flightID := range flightIDs {
		ok, err := s.flightRepo.ConditionalDecrementTx(tx, flightID, seats)
		if err != nil {
			s.logger.WithError(err).WithField("flight_id", flightID).Error("Seat decrement failed")
			return ReserveOutcome{Status: ReserveInternal}
		}
		if !ok {
			// Rollback undoes every earlier decrement in this call.
			return ReserveOutcome{Status: ReserveNoSeats, FlightID: flightID}
		}
	}

	for _, flightID := range flightIDs {
		reservation := &models.SeatReservation{
			BookingID: bookingID,
			FlightID:  flightID,
			Seats:     seats,
			ExpiresAt: expiresAt,
		}
		if err := s.reservationRepo.InsertTx(tx, reservation); err != nil {
			if database.IsUniqueViolation(err) {
				// Another reserve for this booking committed between the
				// pre-lock check and this insert. The hold is already in
				// place, so report it like any other repeated reserve.
				if existing, lookupErr := s.reservationRepo.FindActiveByBooking(bookingID); lookupErr == nil && len(existing) > 0 {
					return ReserveOutcome{Status: ReserveAlreadyReserved, ExpiresAt: existing[0].ExpiresAt}
				}
				return ReserveOutcome{Status: ReserveAlreadyReserved, ExpiresAt: expiresAt}
			}
			s.logger.WithError(err).WithField("flight_id", flightID).Error("Reservation insert failed")
			return ReserveOutcome{Status: ReserveInternal}
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.WithError(err).Error("Failed to commit reserve transaction")
		return ReserveOutcome{Status: ReserveInternal}
	}

	// Outside the transaction but still under the flight locks.
	s.refreshCache(ctx, flightIDs)

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"flights":    flightIDs,
		"seats":      seats,
		"expires_at": expiresAt,
	}).Info("Seats reserved")

	return ReserveOutcome{Status: ReserveSuccess, ExpiresAt: expiresAt}
}

// ============================================================================
// CONFIRM
// ============================================================================

// Confirm commits the booking's hold after successful payment: the
// reservation rows are soft-deleted and the seats stay decremented. Returns
// false when the hold has expired, was already resolved, or the flight locks
// could not be taken.
func (s *InventoryService) Confirm(ctx context.Context, bookingID string) (bool, error) {
	reservations, err := s.reservationRepo.FindActiveByBooking(bookingID)
	if err != nil {
		return false, err
	}
	if len(reservations) == 0 {
		return false, nil
	}

	now := s.now()
	for _, r := range reservations {
		if r.IsExpired(now) {
			return false, nil
		}
	}

	handle, err := s.locks.AcquireMany(ctx, flightIDsOf(reservations), s.config.LockTTL, s.config.LockWaitBudget)
	if err != nil {
		if errors.Is(err, redislock.ErrNotAcquired) {
			return false, nil
		}
		return false, err
	}
	defer s.locks.Release(ctx, handle)

	// Zero rows means the sweeper resolved the hold between our read and the
	// lock; the seats were returned, so the confirm must not stand.
	deleted, err := s.reservationRepo.SoftDeleteByBooking(bookingID, s.now())
	if err != nil {
		return false, err
	}
	if deleted == 0 {
		return false, nil
	}

	s.logger.WithField("booking_id", bookingID).Info("Reservation confirmed")
	return true, nil
}

// ============================================================================
// RELEASE
// ============================================================================

// Release returns a booking's held seats to availability and soft-deletes
// its reservations. Returns false when there is nothing to release.
func (s *InventoryService) Release(ctx context.Context, bookingID string) (bool, error) {
	reservations, err := s.reservationRepo.FindActiveByBooking(bookingID)
	if err != nil {
		return false, err
	}
	if len(reservations) == 0 {
		return false, nil
	}

	flightIDs := flightIDsOf(reservations)

	handle, err := s.locks.AcquireMany(ctx, flightIDs, s.config.LockTTL, s.config.LockWaitBudget)
	if err != nil {
		if errors.Is(err, redislock.ErrNotAcquired) {
			return false, nil
		}
		return false, err
	}
	defer s.locks.Release(ctx, handle)

	tx, err := s.reservationRepo.BeginTx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Soft-delete first: zero rows means another writer resolved the booking
	// after our read, and the increments must not happen.
	deleted, err := s.reservationRepo.SoftDeleteByBookingTx(tx, bookingID, s.now())
	if err != nil {
		return false, err
	}
	if deleted == 0 {
		return false, nil
	}

	for _, r := range reservations {
		if err := s.flightRepo.IncrementTx(tx, r.FlightID, r.Seats); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	s.refreshCache(ctx, flightIDs)

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"flights":    flightIDs,
	}).Info("Reservation released, seats returned")

	return true, nil
}

// ============================================================================
// EXPIRY SWEEP
// ============================================================================

// SweepExpired releases every reservation past its TTL, grouped by booking
// to keep lock acquisitions minimal. Each booking is processed independently
// so one failure does not block the rest. Returns how many bookings were
// released.
func (s *InventoryService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.reservationRepo.FindExpired(s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	seen := make(map[string]bool)
	released := 0
	for _, r := range expired {
		if seen[r.BookingID] {
			continue
		}
		seen[r.BookingID] = true

		ok, err := s.Release(ctx, r.BookingID)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", r.BookingID).Error("Failed to release expired reservation")
			continue
		}
		if ok {
			released++
		}
	}

	if released > 0 {
		s.logger.WithField("count", released).Info("Expired reservations swept")
	}
	return released, nil
}

// ============================================================================
// READS
// ============================================================================

// HasActiveReservation reports whether the booking still holds seats.
func (s *InventoryService) HasActiveReservation(ctx context.Context, bookingID string) (bool, error) {
	return s.reservationRepo.ExistsActive(bookingID)
}

// Availability returns the cached seat count for a flight, reading through
// from the flight store and repairing the cache on a miss.
func (s *InventoryService) Availability(ctx context.Context, flightID string) (*models.FlightAvailability, error) {
	seats, ok, err := s.seatCache.Get(ctx, flightID)
	if err != nil {
		s.logger.WithError(err).WithField("flight_id", flightID).Warn("Seat cache read failed, falling back to store")
	}
	if ok && err == nil {
		return &models.FlightAvailability{FlightID: flightID, AvailableSeats: seats, Cached: true}, nil
	}

	flight, err := s.flightRepo.GetByID(flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, models.NewInvalidFlightError(flightID)
	}

	if err := s.seatCache.Set(ctx, flightID, flight.AvailableSeats); err != nil {
		s.logger.WithError(err).WithField("flight_id", flightID).Warn("Seat cache repair failed")
	}
	return &models.FlightAvailability{FlightID: flightID, AvailableSeats: flight.AvailableSeats, Cached: false}, nil
}

// ============================================================================
// HELPERS
// ============================================================================

// refreshCache rewrites the cached seat count for each flight from the
// database of record. Failures are logged only: the cache repairs itself on
// the next operation or on a read-through miss.
func (s *InventoryService) refreshCache(ctx context.Context, flightIDs []string) {
	for _, flightID := range flightIDs {
		flight, err := s.flightRepo.GetByID(flightID)
		if err != nil || flight == nil {
			s.logger.WithError(err).WithField("flight_id", flightID).Warn("Cache refresh read failed")
			continue
		}
		if err := s.seatCache.Set(ctx, flightID, flight.AvailableSeats); err != nil {
			s.logger.WithError(err).WithField("flight_id", flightID).Warn("Cache refresh write failed")
		}
	}
}

func flightIDsOf(reservations []models.SeatReservation) []string {
	ids := make([]string, len(reservations))
	for i, r := range reservations {
		ids[i] = r.FlightID
	}
	return ids
}

// LockKeyPrefix returns the Redis key prefix used for flight mutexes.
func LockKeyPrefix() string {
	return lockKeyPrefix
}
