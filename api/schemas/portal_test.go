package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validComponent() Component {
	return Component{
		Type:             ComponentHotel,
		BookingDate:      "2026-01-15",
		Supplier:         "Delta Vacations",
		StartDate:        "2026-03-01",
		EndDate:          "2026-03-08",
		CommissionAmount: 120.50,
		TotalSalesAmount: 1205.00,
		BookingReference: "REF-12345",
		HotelName:        "Grand Floridian",
	}
}

func TestSubmitPayloadValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts empty payload", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, SubmitPayload{ExistingFormID: "EVO2026153349"}.Validate())
	})

	t.Run("accepts well formed traveler and components", func(t *testing.T) {
		t.Parallel()
		p := SubmitPayload{
			Traveler: &Traveler{
				FirstName: "Ana", LastName: "Lopez",
				Email: "ana@example.com", Phone: "+1 555 0100",
			},
			Components: []Component{validComponent()},
		}
		require.NoError(t, p.Validate())
	})

	t.Run("rejects traveler with bad email", func(t *testing.T) {
		t.Parallel()
		p := SubmitPayload{
			Traveler: &Traveler{FirstName: "Ana", LastName: "Lopez", Email: "nope", Phone: "x"},
		}
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid traveler")
	})

	t.Run("rejects unknown component type", func(t *testing.T) {
		t.Parallel()
		c := validComponent()
		c.Type = "flight"
		err := SubmitPayload{Components: []Component{c}}.Validate()
		require.Error(t, err)
	})

	t.Run("rejects non ISO dates", func(t *testing.T) {
		t.Parallel()
		c := validComponent()
		c.StartDate = "03/01/2026"
		err := SubmitPayload{Components: []Component{c}}.Validate()
		require.Error(t, err)
	})

	t.Run("rejects missing booking reference", func(t *testing.T) {
		t.Parallel()
		c := validComponent()
		c.BookingReference = ""
		err := SubmitPayload{Components: []Component{c}}.Validate()
		require.Error(t, err)
	})
}
