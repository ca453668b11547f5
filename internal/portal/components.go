// internal/portal/components.go
package portal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
)

// addComponent opens the component menu on the current record, fills the
// form for the component's type, saves, and verifies the save took.
func (c *Client) addComponent(ctx context.Context, comp schemas.Component) error {
	log := c.logger.With(
		zap.String("component_type", string(comp.Type)),
		zap.String("booking_reference", comp.BookingReference))
	log.Info("adding component")

	item, ok := c.sel.ComponentMenuItem[comp.Type]
	if !ok {
		return fmt.Errorf("%w: no menu entry for component type %q", ErrFieldResolution, comp.Type)
	}

	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Click(c.sel.ComponentDropdown, chromedp.ByQuery),
		chromedp.WaitVisible(item, chromedp.ByQuery),
		chromedp.Click(item, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, tagWithRef("component_menu_timeout", comp.BookingReference))
		return fmt.Errorf("%w: opening %s form: %v", ErrNavigation, comp.Type, err)
	}

	if err := c.fillCommonComponentFields(ctx, comp); err != nil {
		return err
	}
	if err := c.fillTypeSpecificFields(ctx, comp); err != nil {
		return err
	}

	if err := c.saveComponentAndVerify(ctx, comp.BookingReference); err != nil {
		return err
	}
	log.Info("component saved")
	return nil
}

// fillCommonComponentFields fills the field set shared by every component
// type: dates, supplier, currency, amounts, and the booking reference.
func (c *Client) fillCommonComponentFields(ctx context.Context, comp schemas.Component) error {
	if err := c.fillDate(ctx, c.sel.BookingDate, comp.BookingDate, "booking_date"); err != nil {
		return err
	}
	if err := c.resolveSupplier(ctx, comp.Supplier, comp.BookingReference); err != nil {
		return err
	}
	if err := c.fillDate(ctx, c.sel.StartDate, comp.StartDate, "start_date"); err != nil {
		return err
	}
	if err := c.fillDate(ctx, c.sel.EndDate, comp.EndDate, "end_date"); err != nil {
		return err
	}

	if err := c.setCurrencyUSD(ctx, comp.BookingReference); err != nil {
		return err
	}

	if err := c.run(ctx, c.cfg.ElementTimeout,
		c.fill(c.sel.EstimatedCommission, formatAmount(comp.CommissionAmount)),
		c.fill(c.sel.TotalSalesAmount, formatAmount(comp.TotalSalesAmount)),
		c.fill(c.sel.SupplierReference, comp.BookingReference),
	); err != nil {
		return fmt.Errorf("%w: common component fields: %v", ErrFieldResolution, err)
	}
	return nil
}

// fillTypeSpecificFields fills the fields only one component type carries.
// The package form additionally toggles its sub-choices, which rerenders
// the form and can clear currency, so currency gets asserted again after.
func (c *Client) fillTypeSpecificFields(ctx context.Context, comp schemas.Component) error {
	var actions []chromedp.Action

	switch comp.Type {
	case schemas.ComponentActivity:
		actions = append(actions, c.fill(c.sel.ActivityName, comp.ItineraryDetails))
	case schemas.ComponentCar:
		actions = append(actions, c.fill(c.sel.CarRentalCompany, comp.RentalCompany))
	case schemas.ComponentCruise:
		actions = append(actions,
			c.fill(c.sel.CruiseCompany, comp.CruiseCompany),
			c.fill(c.sel.VesselName, comp.VesselName))
	case schemas.ComponentHotel:
		actions = append(actions, c.fill(c.sel.HotelName, comp.HotelName))
	case schemas.ComponentPackage:
		if err := c.run(ctx, c.cfg.ElementTimeout,
			chromedp.Click(c.sel.PackageActivityChoice, chromedp.ByQuery),
			chromedp.Click(c.sel.PackageHotelChoice, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("%w: package sub-choices: %v", ErrFieldResolution, err)
		}
		// The toggles rerender the form and can wipe currency.
		if err := c.setCurrencyUSD(ctx, comp.BookingReference); err != nil {
			return err
		}
		actions = append(actions, c.fill(c.sel.ActivityName, comp.ItineraryDetails))
	case schemas.ComponentInsurance:
		// No extra fields.
	}

	if len(actions) == 0 {
		return nil
	}
	if err := c.run(ctx, c.cfg.ElementTimeout, actions...); err != nil {
		return fmt.Errorf("%w: %s fields: %v", ErrFieldResolution, comp.Type, err)
	}
	return nil
}

// setCurrencyUSD forces the currency control to US Dollar and verifies the
// value stuck. A missing currency fails the save much later with a vague
// validation message, so it gets pinned down here instead.
func (c *Client) setCurrencyUSD(ctx context.Context, bookingRef string) error {
	sel := c.sel.CurrencyID
	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		c.captureArtifact(ctx, tagWithRef("currency_not_set", bookingRef))
		return fmt.Errorf("%w: currency control never appeared: %v", ErrFieldResolution, err)
	}

	tag := c.evalString(ctx, fmt.Sprintf(
		`(document.querySelector(%q)?.tagName || '').toLowerCase()`, sel))

	var err error
	if tag == "select" {
		// Prefer the exact label; fall back to the first option mentioning
		// US or Dollar.
		err = c.run(ctx, c.cfg.ElementTimeout, chromedp.Evaluate(fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el) return;
			const opts = Array.from(el.options || []);
			const pick = opts.find(o => (o.textContent || '').trim() === 'US Dollar')
				|| opts.find(o => /us|dollar/i.test(o.textContent || ''));
			if (pick) el.value = pick.value;
			el.dispatchEvent(new Event('change', { bubbles: true }));
		})()`, sel), nil))
	} else {
		// Some forms render currency as an autocomplete input instead.
		err = c.run(ctx, c.cfg.ElementTimeout,
			chromedp.Click(sel, chromedp.ByQuery),
			c.fill(sel, "US Dollar"),
			chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery),
		)
	}
	if err != nil {
		c.captureArtifact(ctx, tagWithRef("currency_set_exception", bookingRef))
		return fmt.Errorf("%w: setting currency: %v", ErrFieldResolution, err)
	}

	// Let change handlers settle, then verify the value actually stuck.
	_ = c.run(ctx, 0, chromedp.Sleep(250*time.Millisecond))
	value := c.evalString(ctx, fmt.Sprintf(
		`(document.querySelector(%q)?.value || '').trim()`, sel))
	if value == "" {
		c.captureArtifact(ctx, tagWithRef("currency_not_set", bookingRef))
		return fmt.Errorf("%w: currency still empty after set", ErrFieldResolution)
	}
	return nil
}

// saveComponentAndVerify clicks save and confirms the save took through the
// ordered signal checks in saveVerifier. Autocomplete overlays frequently
// intercept the click, so Escape goes first and a JS click backstops the
// real one.
func (c *Client) saveComponentAndVerify(ctx context.Context, bookingRef string) error {
	signals := &pageSaveSignals{c: c, locationBefore: c.location(ctx)}

	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.KeyEvent(kb.Escape),
		chromedp.WaitVisible(c.sel.ComponentSave, chromedp.ByQuery),
		chromedp.ScrollIntoView(c.sel.ComponentSave, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, tagWithRef("save_button_timeout", bookingRef))
		return fmt.Errorf("%w: save control not reachable: %v", ErrVerification, err)
	}

	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Click(c.sel.ComponentSave, chromedp.ByQuery)); err != nil {
		if err := c.run(ctx, c.cfg.ElementTimeout, chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q)?.click()`, c.sel.ComponentSave), nil)); err != nil {
			c.captureArtifact(ctx, tagWithRef("save_click_failed", bookingRef))
			return fmt.Errorf("%w: clicking save: %v", ErrVerification, err)
		}
	}

	// Quick settle before reading validation state.
	_ = c.run(ctx, 0, chromedp.Sleep(500*time.Millisecond))

	verifier := newSaveVerifier(signals, c.logger, c.cfg.SettleTimeout)
	if err := verifier.Confirm(ctx, bookingRef); err != nil {
		c.captureArtifact(ctx, tagWithRef("save_unverified", bookingRef))
		return err
	}
	return nil
}

// formatAmount renders a monetary amount the way an agent would type it:
// no exponent, no trailing zeros beyond what the value carries.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
