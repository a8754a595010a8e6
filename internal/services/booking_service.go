package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/pkg/payments"
)

// BookingServiceConfig holds orchestrator tuning
type BookingServiceConfig struct {
	ReserveTTL  time.Duration
	MinSeats    int
	MaxSeats    int
	CallbackURL string
}

// InventoryEngine defines the inventory operations the orchestrator drives.
type InventoryEngine interface {
	Reserve(ctx context.Context, bookingID string, flightIDs []string, seats int, ttl time.Duration) ReserveOutcome
	Confirm(ctx context.Context, bookingID string) (bool, error)
	Release(ctx context.Context, bookingID string) (bool, error)
	HasActiveReservation(ctx context.Context, bookingID string) (bool, error)
}

// BookingStore defines the booking persistence used by the orchestrator.
type BookingStore interface {
	Insert(booking *models.Booking) error
	FindByID(bookingID string) (*models.Booking, error)
	FindByIdempotencyKey(key string) (*models.Booking, error)
	FindByUser(userID string) ([]models.Booking, error)
	FindPendingOlderThan(cutoff time.Time) ([]models.Booking, error)
	UpdateStatusFromPending(bookingID string, status models.BookingStatus) (bool, error)
}

// BookingService drives the CLAIM → PAY → CONFIRM booking lifecycle: it
// resolves flight identifiers, couples a booking record to the inventory
// lifecycle and reconciles with asynchronous payment outcomes.
type BookingService struct {
	bookingRepo BookingStore
	inventory   InventoryEngine
	searchFac   SearchFacade
	payments    payments.Gateway
	config      BookingServiceConfig
	logger      *logrus.Logger

	now func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo BookingStore,
	inventory InventoryEngine,
	searchFac SearchFacade,
	gateway payments.Gateway,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		inventory:   inventory,
		searchFac:   searchFac,
		payments:    gateway,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// ============================================================================
// CREATE BOOKING (Phase 1: claim)
// ============================================================================

// CreateBooking validates the request, reserves inventory on every leg and
// records a PENDING booking, then fires the asynchronous payment request.
// replayed is true when a non-empty idempotency key matched an existing
// booking, in which case that booking is returned unchanged.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest, idempotencyKey string) (entry *models.BookingEntry, replayed bool, err error) {
	if err := req.Validate(s.config.MinSeats, s.config.MaxSeats); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		existing, err := s.bookingRepo.FindByIdempotencyKey(idempotencyKey)
		if err != nil {
			return nil, false, models.NewInternalError(err.Error())
		}
		if existing != nil {
			return models.NewBookingEntry(existing), true, nil
		}
	}

	route, err := s.searchFac.Resolve(ctx, req.FlightIdentifier)
	if err != nil {
		if _, ok := models.AsServiceError(err); ok {
			return nil, false, err
		}
		return nil, false, models.NewInternalError(err.Error())
	}

	totalPrice := route.UnitPrice * float64(req.Seats)
	bookingID := models.BookingIDPrefix + uuid.NewString()

	outcome := s.inventory.Reserve(ctx, bookingID, route.Legs, req.Seats, s.config.ReserveTTL)
	switch outcome.Status {
	case ReserveSuccess:
		// continue
	case ReserveNoSeats:
		return nil, false, models.NewNoSeatsError(outcome.FlightID)
	case ReserveLockFailed:
		return nil, false, models.NewLockFailedError()
	default:
		// ALREADY_RESERVED cannot happen for a fresh booking id.
		return nil, false, models.NewInternalError(fmt.Sprintf("unexpected reserve outcome %s", outcome.Status))
	}

	booking := &models.Booking{
		BookingID:        bookingID,
		UserID:           req.UserID,
		FlightType:       route.FlightType,
		FlightIdentifier: req.FlightIdentifier,
		NoOfSeats:        req.Seats,
		TotalPrice:       totalPrice,
		Status:           models.BookingStatusPending,
		Legs:             route.Legs,
	}
	if idempotencyKey != "" {
		booking.IdempotencyKey = &idempotencyKey
	}

	if err := s.bookingRepo.Insert(booking); err != nil {
		// Losing a concurrent race on the idempotency key: give the seats
		// back and hand the caller the winner's booking.
		if database.IsUniqueViolation(err) && idempotencyKey != "" {
			s.releaseQuietly(ctx, bookingID)
			winner, ferr := s.bookingRepo.FindByIdempotencyKey(idempotencyKey)
			if ferr == nil && winner != nil {
				return models.NewBookingEntry(winner), true, nil
			}
		}
		s.releaseQuietly(ctx, bookingID)
		return nil, false, models.NewInternalError(err.Error())
	}

	// Fire-and-forget: a failed payment request is not fatal, the
	// reservation TTL guarantees eventual cleanup.
	payReq := &payments.PaymentRequest{
		BookingID:   bookingID,
		UserID:      req.UserID,
		Amount:      totalPrice,
		CallbackURL: s.config.CallbackURL,
	}
	if err := s.payments.RequestPayment(ctx, payReq); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Payment request failed, booking will time out unless retried")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"user_id":     req.UserID,
		"legs":        route.Legs,
		"seats":       req.Seats,
		"total_price": totalPrice,
	}).Info("Booking created")

	return models.NewBookingEntry(booking), false, nil
}

// ============================================================================
// PAYMENT CALLBACK (Phase 2 → 3)
// ============================================================================

// HandlePaymentCallback applies an asynchronous payment outcome to its
// booking. Duplicate callbacks are no-ops: only the first writer moves the
// booking out of PENDING.
func (s *BookingService) HandlePaymentCallback(ctx context.Context, cb *models.PaymentCallbackRequest) error {
	if err := cb.Validate(); err != nil {
		return err
	}

	booking, err := s.bookingRepo.FindByID(cb.BookingID)
	if err != nil {
		return models.NewInternalError(err.Error())
	}
	if booking == nil {
		return models.NewBookingNotFoundError(cb.BookingID)
	}
	if booking.Status != models.BookingStatusPending {
		s.logger.WithFields(logrus.Fields{
			"booking_id": cb.BookingID,
			"status":     booking.Status,
		}).Info("Ignoring payment callback for non-pending booking")
		return nil
	}

	switch models.PaymentStatus(cb.Status) {
	case models.PaymentStatusSuccess:
		return s.confirmBooking(ctx, booking)
	case models.PaymentStatusFailure, models.PaymentStatusTimeout:
		return s.failBooking(ctx, booking)
	default:
		s.logger.WithFields(logrus.Fields{
			"booking_id": cb.BookingID,
			"status":     cb.Status,
		}).Warn("Ignoring payment callback with unknown status")
		return nil
	}
}

func (s *BookingService) confirmBooking(ctx context.Context, booking *models.Booking) error {
	confirmed, err := s.inventory.Confirm(ctx, booking.BookingID)
	if err != nil {
		return models.NewInternalError(err.Error())
	}

	status := models.BookingStatusConfirmed
	if !confirmed {
		// The hold expired before payment resolved; the user has to retry.
		status = models.BookingStatusFailed
	}

	if _, err := s.bookingRepo.UpdateStatusFromPending(booking.BookingID, status); err != nil {
		return models.NewInternalError(err.Error())
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.BookingID,
		"status":     status,
	}).Info("Payment success callback processed")
	return nil
}

func (s *BookingService) failBooking(ctx context.Context, booking *models.Booking) error {
	if _, err := s.bookingRepo.UpdateStatusFromPending(booking.BookingID, models.BookingStatusFailed); err != nil {
		return models.NewInternalError(err.Error())
	}

	// Best-effort: the sweeper releases the hold anyway once it expires.
	s.releaseQuietly(ctx, booking.BookingID)

	s.logger.WithField("booking_id", booking.BookingID).Info("Payment failure callback processed, booking failed")
	return nil
}

// ============================================================================
// RECONCILIATION
// ============================================================================

// ReconcilePendingBookings times out PENDING bookings whose reservation is
// gone and whose payment outcome never arrived. Driven by the scheduler.
// Returns how many bookings were moved to TIMEOUT.
func (s *BookingService) ReconcilePendingBookings(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.ReserveTTL)
	stale, err := s.bookingRepo.FindPendingOlderThan(cutoff)
	if err != nil {
		return 0, err
	}

	timedOut := 0
	for _, booking := range stale {
		active, err := s.inventory.HasActiveReservation(ctx, booking.BookingID)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.BookingID).Error("Failed to check reservation during reconcile")
			continue
		}
		if active {
			// Sweeper has not released it yet; next tick will catch it.
			continue
		}

		updated, err := s.bookingRepo.UpdateStatusFromPending(booking.BookingID, models.BookingStatusTimeout)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.BookingID).Error("Failed to time out booking")
			continue
		}
		if updated {
			timedOut++
		}
	}

	if timedOut > 0 {
		s.logger.WithField("count", timedOut).Info("Stale pending bookings timed out")
	}
	return timedOut, nil
}

// ============================================================================
// READS
// ============================================================================

// GetBooking returns the projection for one booking.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.BookingEntry, error) {
	booking, err := s.bookingRepo.FindByID(bookingID)
	if err != nil {
		return nil, models.NewInternalError(err.Error())
	}
	if booking == nil {
		return nil, models.NewBookingNotFoundError(bookingID)
	}
	return models.NewBookingEntry(booking), nil
}

// GetBookingsByUser returns all bookings of a user, newest first.
func (s *BookingService) GetBookingsByUser(ctx context.Context, userID string) ([]*models.BookingEntry, error) {
	bookings, err := s.bookingRepo.FindByUser(userID)
	if err != nil {
		return nil, models.NewInternalError(err.Error())
	}

	entries := make([]*models.BookingEntry, 0, len(bookings))
	for i := range bookings {
		entries = append(entries, models.NewBookingEntry(&bookings[i]))
	}
	return entries, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *BookingService) releaseQuietly(ctx context.Context, bookingID string) {
	if _, err := s.inventory.Release(ctx, bookingID); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to release inventory")
	}
}
