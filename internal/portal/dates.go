// internal/portal/dates.go
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// isoDateLayout is the only date layout accepted from callers. The portal's
// own controls want either ISO (native date inputs) or a slash-separated
// locale format (text inputs); rendering happens at fill time.
const isoDateLayout = "2006-01-02"

// dateOrder is the field order a slash-separated date control expects.
type dateOrder int

const (
	orderMonthFirst dateOrder = iota // MM/DD/YYYY
	orderDayFirst                    // DD/MM/YYYY
)

// detectDateOrder reads a control's locale hint (placeholder plus aria
// label) and reports the expected order. The second return is false when the
// hint carries no recognizable pattern; callers fall back to month-first,
// which matches the portal's en-US default.
func detectDateOrder(hint string) (dateOrder, bool) {
	h := strings.ToUpper(hint)
	if strings.Contains(h, "DD/MM") {
		return orderDayFirst, true
	}
	if strings.Contains(h, "MM/DD") {
		return orderMonthFirst, true
	}
	return orderMonthFirst, false
}

// formatPortalDate renders a date for a slash-separated text control.
func formatPortalDate(d time.Time, order dateOrder) string {
	if order == orderDayFirst {
		return d.Format("02/01/2006")
	}
	return d.Format("01/02/2006")
}

// fillDate fills a date control, adapting to what the control actually is:
// a native date input gets ISO, anything else gets the localized rendering
// chosen by the control's own hints.
func (c *Client) fillDate(ctx context.Context, sel, iso, field string) error {
	d, err := time.Parse(isoDateLayout, iso)
	if err != nil {
		return fmt.Errorf("%w: %s is not an ISO date: %v", ErrFieldResolution, field, err)
	}

	inputType := c.evalString(ctx, fmt.Sprintf(
		`(document.querySelector(%q)?.getAttribute('type') || '').toLowerCase()`, sel))
	if inputType == "date" {
		if err := c.run(ctx, c.cfg.ElementTimeout, c.fill(sel, iso)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFieldResolution, field, err)
		}
		return nil
	}

	hint := c.evalString(ctx, fmt.Sprintf(
		`((document.querySelector(%q)?.getAttribute('placeholder') || '') + ' ' +
		  (document.querySelector(%q)?.getAttribute('aria-label') || ''))`, sel, sel))
	order, found := detectDateOrder(hint)
	if !found {
		c.logger.Warn("date control carries no locale hint, assuming month-first",
			zap.String("field", field))
	}

	if err := c.run(ctx, c.cfg.ElementTimeout, c.fill(sel, formatPortalDate(d, order))); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFieldResolution, field, err)
	}
	return nil
}
