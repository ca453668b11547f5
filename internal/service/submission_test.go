package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
	"github.com/epictrips/backoffice/internal/store"
)

// fakeStore serves canned rows and records writes.
type fakeStore struct {
	sale       *store.Sale
	commission *store.Commission
	setRefErr  error
	created    []int64
	formRefs   map[int64]string
}

func (f *fakeStore) GetSale(_ context.Context, saleID int64) (*store.Sale, error) {
	if f.sale == nil || f.sale.ID != saleID {
		return nil, fmt.Errorf("sale %d: %w", saleID, store.ErrNotFound)
	}
	return f.sale, nil
}

func (f *fakeStore) GetCommissionBySale(_ context.Context, saleID int64) (*store.Commission, error) {
	if f.commission == nil {
		return nil, fmt.Errorf("commission for sale %d: %w", saleID, store.ErrNotFound)
	}
	return f.commission, nil
}

func (f *fakeStore) CreateCommission(_ context.Context, saleID int64) (*store.Commission, error) {
	f.created = append(f.created, saleID)
	f.commission = &store.Commission{ID: 99, SaleID: saleID}
	return f.commission, nil
}

func (f *fakeStore) SetCommissionFormRef(_ context.Context, saleID int64, formRef string) error {
	if f.setRefErr != nil {
		return f.setRefErr
	}
	if f.formRefs == nil {
		f.formRefs = map[int64]string{}
	}
	f.formRefs[saleID] = formRef
	return nil
}

// fakePortal records calls in order and never launches anything.
type fakePortal struct {
	calls          []string
	submitErr      error
	confirmationID string
}

func (f *fakePortal) Login(context.Context, schemas.Credentials) error {
	f.calls = append(f.calls, "login")
	return nil
}

func (f *fakePortal) SubmitSale(_ context.Context, _ schemas.SubmitPayload) (schemas.SubmissionResult, error) {
	f.calls = append(f.calls, "submit_sale")
	if f.submitErr != nil {
		return schemas.SubmissionResult{}, f.submitErr
	}
	return schemas.SubmissionResult{ConfirmationID: f.confirmationID}, nil
}

func (f *fakePortal) FinalSubmitExistingForm(_ context.Context, formID string) (schemas.SubmissionResult, error) {
	f.calls = append(f.calls, "final_submit")
	return schemas.SubmissionResult{ConfirmationID: formID}, nil
}

func (f *fakePortal) Close(context.Context) error {
	f.calls = append(f.calls, "close")
	return nil
}

func fullSale() *store.Sale {
	booking := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	email := "ana@example.com"
	phone := "+1 555 0100"
	conf := "CONF-1"
	hotel := "Grand Floridian"
	total := 1205.0
	return &store.Sale{
		ID: 42, Status: "Reservada", Provider: "Disney",
		BookingDate: &booking, TravelStartDate: &start, TravelEndDate: &end,
		ConfirmationNumber: &conf, Hotel: &hotel, TotalAmount: &total,
		Client: store.Client{FirstName: "Ana", LastName: "Lopez", Email: &email, Phone: &phone},
		Trip:   store.Trip{Name: "Spring Break", Status: "Proximo"},
	}
}

func TestSubmitSale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	creds := schemas.Credentials{Username: "agent", Password: "secret"}

	t.Run("stores the confirmation id on the commission", func(t *testing.T) {
		t.Parallel()
		est := 120.5
		st := &fakeStore{sale: fullSale(), commission: &store.Commission{ID: 3, SaleID: 42, EstimatedCommission: &est}}
		portal := &fakePortal{confirmationID: "EVO2026153349-NO-SUBMIT"}

		outcome, err := NewSalesSubmissionService(st, portal, zap.NewNop()).SubmitSale(ctx, 42, creds)
		require.NoError(t, err)
		assert.Equal(t, int64(42), outcome.SaleID)
		assert.Equal(t, "EVO2026153349-NO-SUBMIT", outcome.ConfirmationID)
		assert.Equal(t, "EVO2026153349-NO-SUBMIT", st.formRefs[42])
		assert.Equal(t, []string{"login", "submit_sale"}, portal.calls)
		assert.Empty(t, st.created)
	})

	t.Run("creates the commission row when missing", func(t *testing.T) {
		t.Parallel()
		st := &fakeStore{sale: fullSale()}
		portal := &fakePortal{confirmationID: "X-NO-SUBMIT"}

		_, err := NewSalesSubmissionService(st, portal, zap.NewNop()).SubmitSale(ctx, 42, creds)
		require.NoError(t, err)
		assert.Equal(t, []int64{42}, st.created)
		assert.Equal(t, "X-NO-SUBMIT", st.formRefs[42])
	})

	t.Run("never touches the portal for an unknown sale", func(t *testing.T) {
		t.Parallel()
		st := &fakeStore{}
		portal := &fakePortal{}

		_, err := NewSalesSubmissionService(st, portal, zap.NewNop()).SubmitSale(ctx, 7, creds)
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrNotFound))
		assert.Empty(t, portal.calls)
	})

	t.Run("does not store anything when the portal fails", func(t *testing.T) {
		t.Parallel()
		st := &fakeStore{sale: fullSale(), commission: &store.Commission{ID: 3, SaleID: 42}}
		portal := &fakePortal{submitErr: errors.New("portal down")}

		_, err := NewSalesSubmissionService(st, portal, zap.NewNop()).SubmitSale(ctx, 42, creds)
		require.Error(t, err)
		assert.Empty(t, st.formRefs)
	})

	t.Run("never calls the irreversible final submit", func(t *testing.T) {
		t.Parallel()
		st := &fakeStore{sale: fullSale(), commission: &store.Commission{ID: 3, SaleID: 42}}
		portal := &fakePortal{confirmationID: "Y-NO-SUBMIT"}

		_, err := NewSalesSubmissionService(st, portal, zap.NewNop()).SubmitSale(ctx, 42, creds)
		require.NoError(t, err)
		assert.NotContains(t, portal.calls, "final_submit")
	})
}

func TestBuildPayload(t *testing.T) {
	t.Parallel()

	t.Run("complete sale maps to traveler and hotel component", func(t *testing.T) {
		t.Parallel()
		est := 120.5
		payload := buildPayload(fullSale(), &store.Commission{EstimatedCommission: &est})

		require.NotNil(t, payload.Traveler)
		assert.Equal(t, "Ana", payload.Traveler.FirstName)
		require.Len(t, payload.Components, 1)

		comp := payload.Components[0]
		assert.Equal(t, schemas.ComponentHotel, comp.Type)
		assert.Equal(t, "2026-01-15", comp.BookingDate)
		assert.Equal(t, "2026-03-01", comp.StartDate)
		assert.Equal(t, "2026-03-08", comp.EndDate)
		assert.Equal(t, "Disney", comp.Supplier)
		assert.Equal(t, "CONF-1", comp.BookingReference)
		assert.Equal(t, 120.5, comp.CommissionAmount)
		assert.Equal(t, 1205.0, comp.TotalSalesAmount)
		require.NoError(t, payload.Validate())
	})

	t.Run("sparse sale maps to an empty payload rather than guesses", func(t *testing.T) {
		t.Parallel()
		sale := fullSale()
		sale.Client.Email = nil
		sale.Hotel = nil

		payload := buildPayload(sale, &store.Commission{})
		assert.Nil(t, payload.Traveler)
		assert.Empty(t, payload.Components)
	})
}
