// internal/store/store.go

// Package store is the pgx-backed data access layer for the CRM database.
// The schema already exists in Postgres (schema epic_trips_crm); this layer
// only reads sales and maintains commission rows, which is all the portal
// submission workflow needs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound marks a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// Querier is the subset of pgxpool.Pool the store uses. Tests satisfy it
// with a pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client is the CRM client attached to a sale.
type Client struct {
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
}

// Trip is the CRM trip a sale belongs to.
type Trip struct {
	Name   string
	Status string
}

// Sale is a CRM sale row joined with its client and trip, loaded with
// everything the portal payload mapping can use.
type Sale struct {
	ID                 int64
	Status             string
	Provider           string
	BookingDate        *time.Time
	TravelStartDate    *time.Time
	TravelEndDate      *time.Time
	ConfirmationNumber *string
	Destination        *string
	Hotel              *string
	TotalAmount        *float64

	Client Client
	Trip   Trip
}

// Commission is the one-to-one payout record for a sale. FormRef holds the
// portal confirmation id once the sale has been pushed through.
type Commission struct {
	ID                  int64
	SaleID              int64
	FormRef             *string
	EstimatedCommission *float64
}

// Store provides sale and commission access over a pgx connection pool.
type Store struct {
	db     Querier
	logger *zap.Logger
}

// New wraps an existing pool. Use Connect for the production path.
func New(db Querier, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// Connect opens a pgx pool against the CRM database and verifies it with a
// ping, so a bad URL fails at startup rather than mid-workflow.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	logger.Info("database pool ready")
	return pool, nil
}

const getSaleSQL = `
SELECT s.id, s.status, s.provider,
       s.booking_date, s.travel_start_date, s.travel_end_date,
       s.confirmation_number, s.destination, s.hotel, s.total_amount,
       c.first_name, c.last_name, c.email, c.phone,
       t.trip_name, t.status
FROM epic_trips_crm.sales s
JOIN epic_trips_crm.clients c ON c.id = s.client_id
JOIN epic_trips_crm.trips t ON t.id = s.trip_id
WHERE s.id = $1`

// GetSale loads a sale with its client and trip.
func (s *Store) GetSale(ctx context.Context, saleID int64) (*Sale, error) {
	var sale Sale
	err := s.db.QueryRow(ctx, getSaleSQL, saleID).Scan(
		&sale.ID, &sale.Status, &sale.Provider,
		&sale.BookingDate, &sale.TravelStartDate, &sale.TravelEndDate,
		&sale.ConfirmationNumber, &sale.Destination, &sale.Hotel, &sale.TotalAmount,
		&sale.Client.FirstName, &sale.Client.LastName, &sale.Client.Email, &sale.Client.Phone,
		&sale.Trip.Name, &sale.Trip.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", saleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading sale %d: %w", saleID, err)
	}
	return &sale, nil
}

const getCommissionBySaleSQL = `
SELECT id, sale_id, commission_form_ref, estimated_commission
FROM epic_trips_crm.commissions
WHERE sale_id = $1`

// GetCommissionBySale fetches the commission row for a sale.
func (s *Store) GetCommissionBySale(ctx context.Context, saleID int64) (*Commission, error) {
	var c Commission
	err := s.db.QueryRow(ctx, getCommissionBySaleSQL, saleID).Scan(
		&c.ID, &c.SaleID, &c.FormRef, &c.EstimatedCommission,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commission for sale %d: %w", saleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading commission for sale %d: %w", saleID, err)
	}
	return &c, nil
}

const createCommissionSQL = `
INSERT INTO epic_trips_crm.commissions (sale_id)
VALUES ($1)
RETURNING id`

// CreateCommission inserts an empty commission row for a sale, so there is
// always somewhere to store the portal confirmation id. The sale_id unique
// constraint keeps the relationship one-to-one.
func (s *Store) CreateCommission(ctx context.Context, saleID int64) (*Commission, error) {
	var id int64
	if err := s.db.QueryRow(ctx, createCommissionSQL, saleID).Scan(&id); err != nil {
		return nil, fmt.Errorf("creating commission for sale %d: %w", saleID, err)
	}
	s.logger.Debug("commission created", zap.Int64("sale_id", saleID), zap.Int64("commission_id", id))
	return &Commission{ID: id, SaleID: saleID}, nil
}

const setFormRefSQL = `
UPDATE epic_trips_crm.commissions
SET commission_form_ref = $2, updated_at = now()
WHERE sale_id = $1`

// SetCommissionFormRef stores the portal confirmation id on a sale's
// commission row. This is the write the whole submission workflow exists
// to make.
func (s *Store) SetCommissionFormRef(ctx context.Context, saleID int64, formRef string) error {
	tag, err := s.db.Exec(ctx, setFormRefSQL, saleID, formRef)
	if err != nil {
		return fmt.Errorf("setting form ref for sale %d: %w", saleID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commission for sale %d: %w", saleID, ErrNotFound)
	}
	s.logger.Info("commission form ref stored",
		zap.Int64("sale_id", saleID), zap.String("form_ref", formRef))
	return nil
}

const listMissingFormRefSQL = `
SELECT id, sale_id, commission_form_ref, estimated_commission
FROM epic_trips_crm.commissions
WHERE commission_form_ref IS NULL OR commission_form_ref = ''
ORDER BY id DESC
LIMIT $1`

// ListCommissionsMissingFormRef returns the submission queue: commissions
// whose sale has not yet been pushed to the portal.
func (s *Store) ListCommissionsMissingFormRef(ctx context.Context, limit int32) ([]Commission, error) {
	rows, err := s.db.Query(ctx, listMissingFormRefSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unsubmitted commissions: %w", err)
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		var c Commission
		if err := rows.Scan(&c.ID, &c.SaleID, &c.FormRef, &c.EstimatedCommission); err != nil {
			return nil, fmt.Errorf("scanning commission: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing unsubmitted commissions: %w", err)
	}
	return out, nil
}
