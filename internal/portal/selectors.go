// internal/portal/selectors.go
package portal

import "github.com/epictrips/backoffice/api/schemas"

// selectorSet centralizes every locator the client touches. The portal UI
// drifts over time; keeping the locators in one place keeps the blast radius
// of a UI change small.
//
// Selectors prefixed with "//" are XPath and must be queried with
// chromedp.BySearch; everything else is CSS.
//
// The final-submit button is deliberately absent from this set. It lives as
// a private constant next to the only code path allowed to press it.
type selectorSet struct {
	// Auth flow. The login inputs start readonly and become editable on
	// focus, so they go through fillReadonlyInput.
	LoginOpen   string
	LoginModal  string
	Username    string
	Password    string
	LoginSubmit string

	// Navigation. CommissionsDropdown doubles as the logged-in landmark.
	CommissionsDropdown string
	HubLink             string
	NewCommission       string
	HubRowByID          string // format arg: record id

	// Traveler form.
	NewTravelerButton string
	TravelerFirst     string
	TravelerLast      string
	TravelerEmail     string
	TravelerPhone     string
	TravelerSave      string

	// Component menu.
	ComponentDropdown string
	ComponentMenuItem map[schemas.ComponentType]string

	// Supplier autocomplete (jQuery UI).
	SupplierName      string
	SupplierID        string
	SupplierMenu      string
	SupplierMenuItem  string
	SupplierExactItem string // format arg: suggestion text

	// Common component fields.
	BookingDate         string
	StartDate           string
	EndDate             string
	CurrencyID          string
	EstimatedCommission string
	TotalSalesAmount    string
	SupplierReference   string

	// Type-specific component fields.
	ActivityName     string
	CarRentalCompany string
	CruiseCompany    string
	VesselName       string
	HotelName        string

	// Package sub-choice toggles. Clicking these rerenders the form and can
	// clear the currency control.
	PackageActivityChoice string
	PackageHotelChoice    string

	// Component save button and the validation markers that appear when the
	// portal rejects a save.
	ComponentSave   string
	ValidationError string
}

func defaultSelectors() selectorSet {
	return selectorSet{
		LoginOpen:   "button[aria-label='Login to your travel site']",
		LoginModal:  "#loginModal.show",
		Username:    "#email-login-modal",
		Password:    "#password-login-modal",
		LoginSubmit: "#login-submit-modal",

		CommissionsDropdown: "button[aria-label='Commissions Dropdown']",
		HubLink:             `//a[normalize-space(.)='Commissions Hub']`,
		NewCommission:       "div.dt-buttons > button.btn.btn-primary",
		HubRowByID:          `//table[@id='agentInvoiceTable']//tr[td[normalize-space()='%s']]`,

		NewTravelerButton: "button[title='Create a new traveler (Shortcut: n)']",
		TravelerFirst:     "#firstNameInput",
		TravelerLast:      "#TravelerForm_LastName",
		TravelerEmail:     "#travelerEmailInput",
		TravelerPhone:     "#travelerPhoneInput",
		TravelerSave:      "#saveButton",

		ComponentDropdown: "button#dropdownMenuButton",
		ComponentMenuItem: map[schemas.ComponentType]string{
			schemas.ComponentActivity:  "a.dropdown-item[href*='/components/activity']",
			schemas.ComponentCar:       "a.dropdown-item[href*='/components/car']",
			schemas.ComponentCruise:    "a.dropdown-item[href*='/components/cruise']",
			schemas.ComponentHotel:     "a.dropdown-item[href*='/components/hotel']",
			schemas.ComponentPackage:   "a.dropdown-item[href*='/components/package']",
			schemas.ComponentInsurance: "a.dropdown-item[href*='/components/insurance']",
		},

		SupplierName:      "#SupplierName",
		SupplierID:        "#SupplierId",
		SupplierMenu:      "ul.ui-autocomplete",
		SupplierMenuItem:  "ul.ui-autocomplete li.ui-menu-item div.ui-menu-item-wrapper",
		SupplierExactItem: `//ul[contains(@class,'ui-autocomplete')]//div[contains(@class,'ui-menu-item-wrapper')][normalize-space()="%s"]`,

		BookingDate:         "#BookingDate",
		StartDate:           "#StartDate",
		EndDate:             "#EndDate",
		CurrencyID:          "#CurrencyId",
		EstimatedCommission: "#TravelComponentInput_EstimatedCommission",
		TotalSalesAmount:    "#TotalSalesAmount",
		SupplierReference:   "#SupplierReferenceId",

		ActivityName:     "#ActivityName",
		CarRentalCompany: "#CarRentalCompany",
		CruiseCompany:    "#CruiseCompany",
		VesselName:       "#VesselName",
		HotelName:        "#HotelName",

		PackageActivityChoice: "#choice_790540000",
		PackageHotelChoice:    "#choice_790540005",

		ComponentSave:   "form#mainForm button.btn.btn-primary[type='submit']",
		ValidationError: ".validation-summary-errors, .field-validation-error",
	}
}
