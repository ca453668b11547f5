// internal/service/submission.go

// Package service orchestrates cross-cutting workflows: loading a sale from
// the CRM database, pushing it through the portal client, and persisting
// the resulting confirmation id. Repositories and the portal client stay
// single-purpose; the glue lives here.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
	"github.com/epictrips/backoffice/internal/store"
)

// SalesStore is the persistence surface the submission workflow needs.
// *store.Store satisfies it; tests use a fake.
type SalesStore interface {
	GetSale(ctx context.Context, saleID int64) (*store.Sale, error)
	GetCommissionBySale(ctx context.Context, saleID int64) (*store.Commission, error)
	CreateCommission(ctx context.Context, saleID int64) (*store.Commission, error)
	SetCommissionFormRef(ctx context.Context, saleID int64, formRef string) error
}

// SubmissionOutcome reports a completed submission workflow.
type SubmissionOutcome struct {
	SaleID         int64  `json:"sale_id"`
	ConfirmationID string `json:"confirmation_id"`
}

// SalesSubmissionService pushes CRM sales through the portal. It only ever
// uses the portal's safe path; final submission is a separate, operator
// gated CLI action that never goes through this service.
type SalesSubmissionService struct {
	store  SalesStore
	portal schemas.PortalClient
	logger *zap.Logger
}

func NewSalesSubmissionService(st SalesStore, portal schemas.PortalClient, logger *zap.Logger) *SalesSubmissionService {
	return &SalesSubmissionService{
		store:  st,
		portal: portal,
		logger: logger.Named("submission"),
	}
}

// SubmitSale loads the sale, ensures a commission row exists to receive the
// confirmation id, runs the portal's safe submission, and stores the
// returned id on the commission.
func (s *SalesSubmissionService) SubmitSale(ctx context.Context, saleID int64, creds schemas.Credentials) (SubmissionOutcome, error) {
	log := s.logger.With(zap.Int64("sale_id", saleID))

	sale, err := s.store.GetSale(ctx, saleID)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	commission, err := s.store.GetCommissionBySale(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("no commission row yet, creating one")
		commission, err = s.store.CreateCommission(ctx, saleID)
	}
	if err != nil {
		return SubmissionOutcome{}, err
	}

	payload := buildPayload(sale, commission)
	log.Info("submitting sale to portal",
		zap.String("provider", sale.Provider),
		zap.Bool("has_traveler", payload.Traveler != nil),
		zap.Int("components", len(payload.Components)))

	if err := s.portal.Login(ctx, creds); err != nil {
		return SubmissionOutcome{}, err
	}
	result, err := s.portal.SubmitSale(ctx, payload)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	if err := s.store.SetCommissionFormRef(ctx, saleID, result.ConfirmationID); err != nil {
		// The portal work succeeded but the id was not persisted; the
		// operator needs the id to recover by hand.
		return SubmissionOutcome{}, fmt.Errorf(
			"portal returned %s but storing it failed: %w", result.ConfirmationID, err)
	}

	log.Info("sale submitted", zap.String("confirmation_id", result.ConfirmationID))
	return SubmissionOutcome{SaleID: saleID, ConfirmationID: result.ConfirmationID}, nil
}

// buildPayload maps CRM rows onto the portal form. The mapping is
// deliberately conservative: a traveler is attached only when the client
// record is complete enough to pass the portal's own validation, and a
// hotel component only when the sale carries every field the component
// form requires. Partial data gets skipped, not guessed.
func buildPayload(sale *store.Sale, commission *store.Commission) schemas.SubmitPayload {
	payload := schemas.SubmitPayload{}

	if sale.Client.Email != nil && sale.Client.Phone != nil {
		payload.Traveler = &schemas.Traveler{
			FirstName: sale.Client.FirstName,
			LastName:  sale.Client.LastName,
			Email:     *sale.Client.Email,
			Phone:     *sale.Client.Phone,
		}
	}

	if sale.Hotel != nil && sale.BookingDate != nil &&
		sale.TravelStartDate != nil && sale.TravelEndDate != nil &&
		sale.ConfirmationNumber != nil && sale.TotalAmount != nil {
		comp := schemas.Component{
			Type:             schemas.ComponentHotel,
			BookingDate:      sale.BookingDate.Format("2006-01-02"),
			Supplier:         sale.Provider,
			StartDate:        sale.TravelStartDate.Format("2006-01-02"),
			EndDate:          sale.TravelEndDate.Format("2006-01-02"),
			TotalSalesAmount: *sale.TotalAmount,
			BookingReference: *sale.ConfirmationNumber,
			HotelName:        *sale.Hotel,
		}
		if commission.EstimatedCommission != nil {
			comp.CommissionAmount = *commission.EstimatedCommission
		}
		payload.Components = append(payload.Components, comp)
	}

	return payload
}
