package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/models"
)

func bookingRows(bookingID, userID string, status models.BookingStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"booking_id", "user_id", "flight_type", "flight_identifier", "no_of_seats",
		"total_price", "status", "idempotency_key", "created_at", "updated_at",
	}).AddRow(
		bookingID, userID, models.FlightTypeDirect, "UL-300", 2,
		841.00, status, nil, now, now,
	)
}

func legRows(legs ...string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"coalesce"}).AddRow(pq.StringArray(legs))
}

func TestBookingInsert(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)

	t.Run("With Legs", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO bookings`).
			WithArgs("BK_abc", "user-1", models.FlightTypeComputed, "CF_204", 2,
				841.00, models.BookingStatusPending, nil,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO booking_flights`).
			WithArgs("BK_abc", "UL-300", 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO booking_flights`).
			WithArgs("BK_abc", "UL-301", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking := &models.Booking{
			BookingID:        "BK_abc",
			UserID:           "user-1",
			FlightType:       models.FlightTypeComputed,
			FlightIdentifier: "CF_204",
			NoOfSeats:        2,
			TotalPrice:       841.00,
			Status:           models.BookingStatusPending,
			Legs:             []string{"UL-300", "UL-301"},
		}
		require.NoError(t, repo.Insert(booking))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Idempotency Key Collision", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_idempotency_key_key"})
		mock.ExpectRollback()

		err := repo.Insert(&models.Booking{
			BookingID:        "BK_dup",
			UserID:           "user-1",
			FlightType:       models.FlightTypeDirect,
			FlightIdentifier: "UL-300",
			NoOfSeats:        1,
			Status:           models.BookingStatusPending,
		})
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingFindByID(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`FROM bookings WHERE booking_id`).
			WithArgs("BK_abc").
			WillReturnRows(bookingRows("BK_abc", "user-1", models.BookingStatusConfirmed))
		mock.ExpectQuery(`SELECT COALESCE\(ARRAY_AGG`).
			WithArgs("BK_abc").
			WillReturnRows(legRows("UL-300"))

		booking, err := repo.FindByID("BK_abc")
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
		assert.Equal(t, []string{"UL-300"}, booking.Legs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`FROM bookings WHERE booking_id`).
			WithArgs("BK_missing").
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}))

		booking, err := repo.FindByID("BK_missing")
		require.NoError(t, err)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingFindByIdempotencyKey(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)

	t.Run("Hit", func(t *testing.T) {
		mock.ExpectQuery(`SELECT booking_id FROM bookings WHERE idempotency_key`).
			WithArgs("idem-1").
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}).AddRow("BK_abc"))
		mock.ExpectQuery(`FROM bookings WHERE booking_id`).
			WithArgs("BK_abc").
			WillReturnRows(bookingRows("BK_abc", "user-1", models.BookingStatusPending))
		mock.ExpectQuery(`SELECT COALESCE\(ARRAY_AGG`).
			WithArgs("BK_abc").
			WillReturnRows(legRows("UL-300"))

		booking, err := repo.FindByIdempotencyKey("idem-1")
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, "BK_abc", booking.BookingID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Miss", func(t *testing.T) {
		mock.ExpectQuery(`SELECT booking_id FROM bookings WHERE idempotency_key`).
			WithArgs("idem-unknown").
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}))

		booking, err := repo.FindByIdempotencyKey("idem-unknown")
		require.NoError(t, err)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingUpdateStatusFromPending(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)

	t.Run("First Writer Wins", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs("BK_abc", models.BookingStatusConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatusFromPending("BK_abc", models.BookingStatusConfirmed)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Terminal", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs("BK_abc", models.BookingStatusFailed).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateStatusFromPending("BK_abc", models.BookingStatusFailed)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingFindPendingOlderThan(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)

	cutoff := time.Now().Add(-5 * time.Minute)
	mock.ExpectQuery(`FROM bookings`).
		WithArgs(cutoff).
		WillReturnRows(bookingRows("BK_stale", "user-1", models.BookingStatusPending))

	bookings, err := repo.FindPendingOlderThan(cutoff)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "BK_stale", bookings[0].BookingID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}
