package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock, zap.NewNop()), mock
}

func strPtr(s string) *string        { return &s }
func f64Ptr(f float64) *float64      { return &f }
func timePtr(t time.Time) *time.Time { return &t }

func TestGetSale(t *testing.T) {
	ctx := context.Background()

	t.Run("loads sale with client and trip", func(t *testing.T) {
		s, mock := newMockStore(t)
		booking := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

		rows := pgxmock.NewRows([]string{
			"id", "status", "provider",
			"booking_date", "travel_start_date", "travel_end_date",
			"confirmation_number", "destination", "hotel", "total_amount",
			"first_name", "last_name", "email", "phone",
			"trip_name", "trip_status",
		}).AddRow(
			int64(42), "Reservada", "Disney",
			timePtr(booking), (*time.Time)(nil), (*time.Time)(nil),
			strPtr("CONF-1"), strPtr("Orlando"), strPtr("Grand Floridian"), f64Ptr(1205.0),
			"Ana", "Lopez", strPtr("ana@example.com"), strPtr("+1 555 0100"),
			"Spring Break", "Proximo",
		)
		mock.ExpectQuery(regexp.QuoteMeta(getSaleSQL)).WithArgs(int64(42)).WillReturnRows(rows)

		sale, err := s.GetSale(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), sale.ID)
		assert.Equal(t, "Ana", sale.Client.FirstName)
		assert.Equal(t, "Spring Break", sale.Trip.Name)
		require.NotNil(t, sale.Hotel)
		assert.Equal(t, "Grand Floridian", *sale.Hotel)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing sale maps to ErrNotFound", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(getSaleSQL)).WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "status", "provider",
				"booking_date", "travel_start_date", "travel_end_date",
				"confirmation_number", "destination", "hotel", "total_amount",
				"first_name", "last_name", "email", "phone",
				"trip_name", "trip_status",
			}))

		_, err := s.GetSale(ctx, 7)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestCommissionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("get by sale id", func(t *testing.T) {
		s, mock := newMockStore(t)
		rows := pgxmock.NewRows([]string{"id", "sale_id", "commission_form_ref", "estimated_commission"}).
			AddRow(int64(3), int64(42), (*string)(nil), f64Ptr(120.5))
		mock.ExpectQuery(regexp.QuoteMeta(getCommissionBySaleSQL)).WithArgs(int64(42)).WillReturnRows(rows)

		c, err := s.GetCommissionBySale(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(3), c.ID)
		assert.Nil(t, c.FormRef)
	})

	t.Run("create returns new id", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(createCommissionSQL)).WithArgs(int64(42)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

		c, err := s.CreateCommission(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(9), c.ID)
		assert.Equal(t, int64(42), c.SaleID)
	})

	t.Run("set form ref updates exactly one row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(setFormRefSQL)).
			WithArgs(int64(42), "EVO2026153349-NO-SUBMIT").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.SetCommissionFormRef(ctx, 42, "EVO2026153349-NO-SUBMIT"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set form ref on missing commission maps to ErrNotFound", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(setFormRefSQL)).
			WithArgs(int64(42), "X").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.SetCommissionFormRef(ctx, 42, "X")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestListCommissionsMissingFormRef(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"id", "sale_id", "commission_form_ref", "estimated_commission"}).
		AddRow(int64(5), int64(50), (*string)(nil), (*float64)(nil)).
		AddRow(int64(4), int64(41), strPtr(""), f64Ptr(75.0))
	mock.ExpectQuery(regexp.QuoteMeta(listMissingFormRefSQL)).WithArgs(int32(10)).WillReturnRows(rows)

	queue, err := s.ListCommissionsMissingFormRef(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, int64(50), queue[0].SaleID)
	require.NoError(t, mock.ExpectationsWereMet())
}
