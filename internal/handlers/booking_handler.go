package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
)

// BookingHandler handles booking creation, lookup and payment callbacks
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// ============================================================================
// CREATE BOOKING - POST /v1/bookings
// ============================================================================

// CreateBooking runs the full claim-pay flow: resolve the identifier, reserve
// seats on every leg, persist the PENDING booking and kick off payment.
// Replays of the same Idempotency-Key return the original booking with 200.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, models.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	idempotencyKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

	entry, replayed, err := h.bookingService.CreateBooking(c.Request.Context(), &req, idempotencyKey)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if replayed {
		c.JSON(http.StatusOK, entry)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ============================================================================
// GET BOOKING - GET /v1/bookings/:booking_id
// ============================================================================

// GetBooking returns one booking with its legs
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID := c.Param("booking_id")

	entry, err := h.bookingService.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ============================================================================
// LIST USER BOOKINGS - GET /v1/bookings/user/:user_id
// ============================================================================

// GetUserBookings returns all bookings for a user as a JSON array, newest
// first. A user with no bookings gets an empty array, not null.
func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	userID := c.Param("user_id")

	entries, err := h.bookingService.GetBookingsByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ============================================================================
// PAYMENT CALLBACK - POST /v1/bookings/payment-callback
// ============================================================================

// PaymentCallback receives the terminal payment outcome from the payment
// service and settles the booking. Retried callbacks are safe: a booking
// already in a terminal state is left untouched.
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	var cb models.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&cb); err != nil {
		respondError(c, h.logger, models.NewValidationError("invalid callback body: "+err.Error()))
		return
	}

	if err := h.bookingService.HandlePaymentCallback(c.Request.Context(), &cb); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "PROCESSED",
		"booking_id": cb.BookingID,
	})
}
