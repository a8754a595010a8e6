package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// respondError writes the shared error envelope. Typed service errors keep
// their code and status; anything else becomes an opaque 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	if se, ok := models.AsServiceError(err); ok {
		if se.HTTPStatus >= http.StatusInternalServerError {
			logger.WithError(err).Error("Request failed")
		}
		c.JSON(se.HTTPStatus, models.NewErrorResponse(se))
		return
	}

	logger.WithError(err).Error("Unhandled error in request")
	c.JSON(http.StatusInternalServerError, models.NewErrorResponse(models.NewInternalError("unexpected error")))
}
