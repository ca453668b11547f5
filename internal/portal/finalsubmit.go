// internal/portal/finalsubmit.go

// This file is the only place allowed to press the portal's final submit
// button. Nothing on the safe path references the selector or any helper
// defined here.
package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
)

// finalSubmitButton finalizes a commission record. Pressing it is
// irreversible on the live portal.
const finalSubmitButton = "#btnSubmit"

// FinalSubmitExistingForm performs the irreversible final submission of an
// existing record and verifies it through the portal's success banner or
// the hub redirect. The CLI gates this behind an explicit acknowledgment
// flag before any browser interaction; by the time this method runs, the
// operator has already said yes.
func (c *Client) FinalSubmitExistingForm(ctx context.Context, formID string) (schemas.SubmissionResult, error) {
	if formID == "" {
		formID = c.cfg.DefaultFormID
	}
	log := c.logger.With(zap.String("form_id", formID))
	log.Warn("final submit requested; this cannot be undone")

	if err := c.start(ctx); err != nil {
		return schemas.SubmissionResult{}, err
	}
	if err := c.goToCommissionsHub(ctx); err != nil {
		return schemas.SubmissionResult{}, err
	}
	if err := c.openExistingForm(ctx, formID); err != nil {
		return schemas.SubmissionResult{}, err
	}

	// The portal throws a confirm() dialog at the click; arm the session
	// listener to accept it, and only for the duration of this click.
	c.dialogAccept.Store(true)
	defer c.dialogAccept.Store(false)

	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.WaitVisible(finalSubmitButton, chromedp.ByQuery),
		chromedp.ScrollIntoView(finalSubmitButton, chromedp.ByQuery),
		chromedp.Click(finalSubmitButton, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, tagWithRef("final_submit_timeout", formID))
		return schemas.SubmissionResult{}, fmt.Errorf(
			"%w: final submit control not reachable for %s: %v", ErrNavigation, formID, err)
	}

	c.settle(ctx, 500*time.Millisecond)

	if err := c.verifyFinalSubmit(ctx, formID); err != nil {
		c.captureArtifact(ctx, tagWithRef("final_submit_unverified", formID))
		return schemas.SubmissionResult{}, err
	}

	c.captureArtifact(ctx, tagWithRef("final_submit_ok", formID))
	log.Info("final submission verified")

	// The portal keeps the record id as the confirmation; no suffix here.
	return schemas.SubmissionResult{ConfirmationID: formID}, nil
}

// verifyFinalSubmit confirms the submission through either of two signals:
// a success banner on the record page, or a redirect back to the hub with
// the record's row still listed. Silence fails hard; a final submit must
// never be reported done on guesswork.
func (c *Client) verifyFinalSubmit(ctx context.Context, formID string) error {
	banner := c.run(ctx, 0, chromedp.Poll(
		`document.querySelector('.alert-success') !== null`, nil,
		chromedp.WithPollingTimeout(c.cfg.SettleTimeout)))
	if banner == nil {
		c.logger.Debug("final submit confirmed",
			zap.String("signal", "success_banner"), zap.String("form_id", formID))
		return nil
	}

	hubVisible := c.run(ctx, 0, chromedp.Poll(
		`document.querySelector('#agentInvoiceTable') !== null`, nil,
		chromedp.WithPollingTimeout(c.cfg.SettleTimeout)))
	if hubVisible == nil {
		row := fmt.Sprintf(c.sel.HubRowByID, formID)
		if err := c.run(ctx, c.cfg.ElementTimeout,
			chromedp.WaitVisible(row, chromedp.BySearch)); err == nil {
			c.logger.Debug("final submit confirmed",
				zap.String("signal", "hub_row"), zap.String("form_id", formID))
			return nil
		}
	}

	return fmt.Errorf("%w: could not verify final submission of %s", ErrVerification, formID)
}

// settle is the short pause between the final-submit click and reading the
// first verification signal; banners render a beat after navigation.
func (c *Client) settle(ctx context.Context, d time.Duration) {
	_ = c.run(ctx, 0, chromedp.Sleep(d))
}
