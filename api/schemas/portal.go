// api/schemas/portal.go
package schemas

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Credentials holds the portal login pair. Never persisted; held only for
// the duration of a Login call.
type Credentials struct {
	Username string
	Password string
}

// Traveler is the person attached to a commission record.
type Traveler struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
}

// ComponentType identifies one of the bookable line-item kinds the portal
// understands.
type ComponentType string

const (
	ComponentActivity  ComponentType = "activity"
	ComponentCar       ComponentType = "car"
	ComponentCruise    ComponentType = "cruise"
	ComponentHotel     ComponentType = "hotel"
	ComponentPackage   ComponentType = "package"
	ComponentInsurance ComponentType = "insurance"
)

// Component is one line item to attach to a record. The common field set is
// required for every type; the remaining fields apply per Type.
// Dates are ISO (YYYY-MM-DD); the client renders them into whatever format
// the target control expects.
type Component struct {
	Type ComponentType `json:"type" validate:"required,oneof=activity car cruise hotel package insurance"`

	BookingDate      string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	Supplier         string  `json:"supplier" validate:"required"`
	StartDate        string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	CommissionAmount float64 `json:"commission_amount" validate:"gte=0"`
	TotalSalesAmount float64 `json:"total_sales_amount" validate:"gte=0"`
	BookingReference string  `json:"booking_reference" validate:"required"`

	// activity and package
	ItineraryDetails string `json:"itinerary_details,omitempty"`
	// car
	RentalCompany string `json:"rental_company,omitempty"`
	// cruise
	CruiseCompany string `json:"cruise_company,omitempty"`
	VesselName    string `json:"vessel_name,omitempty"`
	// hotel
	HotelName string `json:"hotel_name,omitempty"`
}

// SubmitPayload is the input to the safe submission path. ExistingFormID
// names a record that already exists in the portal; the client never
// allocates new record identities.
type SubmitPayload struct {
	ExistingFormID string      `json:"existing_form_id,omitempty"`
	Traveler       *Traveler   `json:"traveler,omitempty"`
	Components     []Component `json:"components,omitempty"`
}

// SubmissionResult carries the confirmation identifier returned by a portal
// operation. In safe mode the id is the record id suffixed with a
// no-submit marker; after a verified final submission it is the record id
// unchanged.
type SubmissionResult struct {
	ConfirmationID string `json:"confirmation_id"`
}

// PortalClient is the capability contract the orchestration service and the
// CLI depend on. Implementations own exactly one browser session; calls are
// strictly sequential.
type PortalClient interface {
	// Login establishes an authenticated session. Idempotent.
	Login(ctx context.Context, creds Credentials) error
	// SubmitSale opens an existing record and attaches traveler/components.
	// It must never trigger the irreversible final submission.
	SubmitSale(ctx context.Context, payload SubmitPayload) (SubmissionResult, error)
	// FinalSubmitExistingForm performs the irreversible submission of an
	// existing record. Callers gate this behind explicit acknowledgment.
	FinalSubmitExistingForm(ctx context.Context, formID string) (SubmissionResult, error)
	// Close releases the browser session. Safe to call at any point,
	// multiple times, including after partial initialization.
	Close(ctx context.Context) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the payload before any browser interaction happens, so
// malformed input fails as a precondition error rather than a mid-workflow
// portal timeout.
func (p SubmitPayload) Validate() error {
	if p.Traveler != nil {
		if err := validate.Struct(p.Traveler); err != nil {
			return fmt.Errorf("invalid traveler: %w", err)
		}
	}
	for i, c := range p.Components {
		if err := validate.Struct(c); err != nil {
			return fmt.Errorf("invalid component %d (%s): %w", i, c.Type, err)
		}
	}
	return nil
}
