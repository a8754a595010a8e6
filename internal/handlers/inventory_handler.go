package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
)

// InventoryHandler exposes the reservation engine directly, for internal
// callers that manage their own booking records
type InventoryHandler struct {
	inventory  *services.InventoryService
	reserveTTL time.Duration
	logger     *logrus.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory *services.InventoryService, reserveTTL time.Duration, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory:  inventory,
		reserveTTL: reserveTTL,
		logger:     logger,
	}
}

// ============================================================================
// RESERVE - POST /v1/inventory/reserve
// ============================================================================

// ReserveSeats places a TTL-bounded hold on every listed flight for one
// booking id. The hold is all-or-nothing across the flights.
func (h *InventoryHandler) ReserveSeats(c *gin.Context) {
	var req models.ReserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, models.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ttl := h.reserveTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	outcome := h.inventory.Reserve(c.Request.Context(), req.BookingID, req.FlightIDs, req.Seats, ttl)
	switch outcome.Status {
	case services.ReserveSuccess, services.ReserveAlreadyReserved:
		c.JSON(http.StatusOK, models.ReserveSeatsResponse{
			Success:       true,
			ReservationID: req.BookingID,
			ExpiresAt:     outcome.ExpiresAt,
		})
	case services.ReserveNoSeats:
		respondError(c, h.logger, models.NewNoSeatsError(outcome.FlightID))
	case services.ReserveLockFailed:
		respondError(c, h.logger, models.NewLockFailedError())
	default:
		respondError(c, h.logger, models.NewInternalError("reserve failed"))
	}
}

// ============================================================================
// CONFIRM - POST /v1/inventory/confirm
// ============================================================================

// ConfirmSeats finalizes a hold after payment. The flights come from the
// reservation rows, not from the request body.
func (h *InventoryHandler) ConfirmSeats(c *gin.Context) {
	var req models.ConfirmSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, models.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if req.BookingID == "" {
		respondError(c, h.logger, models.NewValidationError("booking_id is required"))
		return
	}

	confirmed, err := h.inventory.Confirm(c.Request.Context(), req.BookingID)
	if err != nil {
		respondError(c, h.logger, models.NewInternalError(err.Error()))
		return
	}
	if !confirmed {
		c.JSON(http.StatusGone, gin.H{
			"status":     "expired",
			"booking_id": req.BookingID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "confirmed",
		"booking_id": req.BookingID,
	})
}

// ============================================================================
// RELEASE - DELETE /v1/inventory/release/:booking_id
// ============================================================================

// ReleaseSeats gives a booking's held seats back to inventory. Releasing a
// booking with no active hold is a no-op returning 204.
func (h *InventoryHandler) ReleaseSeats(c *gin.Context) {
	bookingID := c.Param("booking_id")

	released, err := h.inventory.Release(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, models.NewInternalError(err.Error()))
		return
	}
	if !released {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "released",
		"booking_id": bookingID,
	})
}

// ============================================================================
// AVAILABILITY - GET /v1/flights/:flight_id/availability
// ============================================================================

// GetAvailability returns the live seat count for one flight, read through
// the cache
func (h *InventoryHandler) GetAvailability(c *gin.Context) {
	flightID := c.Param("flight_id")

	availability, err := h.inventory.Availability(c.Request.Context(), flightID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}
