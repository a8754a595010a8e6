package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/pkg/search"
)

func setupResolver(t *testing.T, searchClient *search.Client) (*RouteResolver, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	return NewRouteResolver(database.NewFlightRepository(db), searchClient), mock
}

func TestResolveDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("Bookable Flight", func(t *testing.T) {
		resolver, mock := setupResolver(t, nil)

		mock.ExpectQuery(`FROM flights WHERE flight_id`).
			WithArgs("UL-300").
			WillReturnRows(serviceFlightRows("UL-300", 42))

		route, err := resolver.Resolve(ctx, "UL-300")
		require.NoError(t, err)
		assert.Equal(t, models.FlightTypeDirect, route.FlightType)
		assert.Equal(t, []string{"UL-300"}, route.Legs)
		assert.Equal(t, 420.50, route.UnitPrice)
	})

	t.Run("Unknown Flight", func(t *testing.T) {
		resolver, mock := setupResolver(t, nil)

		mock.ExpectQuery(`FROM flights WHERE flight_id`).
			WithArgs("UL-999").
			WillReturnRows(sqlmock.NewRows([]string{"flight_id"}))

		_, err := resolver.Resolve(ctx, "UL-999")
		require.Error(t, err)

		se, ok := models.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrCodeInvalidFlight, se.Code)
	})

	t.Run("Cancelled Flight", func(t *testing.T) {
		resolver, mock := setupResolver(t, nil)

		now := time.Now()
		mock.ExpectQuery(`FROM flights WHERE flight_id`).
			WithArgs("UL-310").
			WillReturnRows(sqlmock.NewRows([]string{
				"flight_id", "source", "destination", "departure_time", "arrival_time",
				"total_seats", "available_seats", "price", "status", "created_at", "updated_at",
			}).AddRow(
				"UL-310", "CMB", "BKK", now, now.Add(3*time.Hour),
				180, 50, 300.00, "CANCELLED", now, now,
			))

		_, err := resolver.Resolve(ctx, "UL-310")
		require.Error(t, err)

		se, ok := models.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrCodeInvalidFlight, se.Code)
	})
}

func TestResolveComputed(t *testing.T) {
	ctx := context.Background()

	t.Run("Known Route", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/routes/CF_204", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"route_id":"CF_204","legs":["UL-300","UL-301"],"unit_price":610.00}`))
		}))
		defer srv.Close()

		resolver, _ := setupResolver(t, search.NewClient(search.Config{BaseURL: srv.URL}))

		route, err := resolver.Resolve(ctx, "CF_204")
		require.NoError(t, err)
		assert.Equal(t, models.FlightTypeComputed, route.FlightType)
		assert.Equal(t, []string{"UL-300", "UL-301"}, route.Legs)
		assert.Equal(t, 610.00, route.UnitPrice)
	})

	t.Run("Unknown Route", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		resolver, _ := setupResolver(t, search.NewClient(search.Config{BaseURL: srv.URL}))

		_, err := resolver.Resolve(ctx, "CF_999")
		require.Error(t, err)

		se, ok := models.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrCodeInvalidFlight, se.Code)
	})

	t.Run("Search Service Down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		resolver, _ := setupResolver(t, search.NewClient(search.Config{BaseURL: srv.URL}))

		_, err := resolver.Resolve(ctx, "CF_204")
		require.Error(t, err)

		se, ok := models.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrCodeUnavailable, se.Code)
		assert.True(t, se.Retryable)
	})

	t.Run("No Search Client Configured", func(t *testing.T) {
		resolver, _ := setupResolver(t, nil)

		_, err := resolver.Resolve(ctx, "CF_204")
		require.Error(t, err)

		se, ok := models.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrCodeInvalidFlight, se.Code)
	})
}
