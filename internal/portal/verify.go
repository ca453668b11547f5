// internal/portal/verify.go
package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// saveSignals is the observable page state the save verifier reads. The
// portal gives no direct acknowledgment when a component saves, so success
// has to be inferred from side effects. The live implementation reads the
// browser; tests script the signals.
type saveSignals interface {
	// ValidationErrorVisible reports whether the portal is showing field or
	// summary validation errors right now.
	ValidationErrorVisible(ctx context.Context) bool
	// WaitLocationChange reports whether the page URL moved away from where
	// it was when the save was clicked, within timeout.
	WaitLocationChange(ctx context.Context, timeout time.Duration) bool
	// WaitSaveControlGone reports whether the save control disappeared,
	// became disabled, or collapsed to zero size, within timeout.
	WaitSaveControlGone(ctx context.Context, timeout time.Duration) bool
	// WaitBodyContains reports whether text became visible in the page body
	// within timeout. Implementations may settle briefly first, since
	// post-save content can render asynchronously.
	WaitBodyContains(ctx context.Context, text string, timeout time.Duration) bool
}

// saveVerifier decides whether a save took. The checks run in a fixed
// order: validation errors fail the save immediately, then each positive
// signal is given a bounded window and the first hit confirms. Only when
// every signal stays silent is the save declared unverified; a silent
// portal must never count as success.
type saveVerifier struct {
	signals       saveSignals
	logger        *zap.Logger
	signalTimeout time.Duration
}

func newSaveVerifier(signals saveSignals, logger *zap.Logger, signalTimeout time.Duration) *saveVerifier {
	return &saveVerifier{
		signals:       signals,
		logger:        logger.Named("verify"),
		signalTimeout: signalTimeout,
	}
}

// Confirm returns nil when any positive signal fires, and ErrVerification
// when validation rejected the save or no signal fired at all.
func (v *saveVerifier) Confirm(ctx context.Context, bookingRef string) error {
	log := v.logger.With(zap.String("booking_reference", bookingRef))

	if v.signals.ValidationErrorVisible(ctx) {
		return fmt.Errorf("%w: portal validation rejected the save for %s", ErrVerification, bookingRef)
	}

	if v.signals.WaitLocationChange(ctx, v.signalTimeout) {
		log.Debug("save confirmed", zap.String("signal", "navigation"))
		return nil
	}
	if v.signals.WaitSaveControlGone(ctx, v.signalTimeout) {
		log.Debug("save confirmed", zap.String("signal", "save_control_gone"))
		return nil
	}
	if v.signals.WaitBodyContains(ctx, bookingRef, v.signalTimeout) {
		log.Debug("save confirmed", zap.String("signal", "booking_reference_visible"))
		return nil
	}

	return fmt.Errorf("%w: no save signal observed for %s", ErrVerification, bookingRef)
}

// pageSaveSignals reads the live page. locationBefore is captured by the
// caller immediately before clicking save.
type pageSaveSignals struct {
	c              *Client
	locationBefore string
}

func (s *pageSaveSignals) ValidationErrorVisible(ctx context.Context) bool {
	return s.c.evalBool(ctx, fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	})()`, s.c.sel.ValidationError))
}

func (s *pageSaveSignals) WaitLocationChange(ctx context.Context, timeout time.Duration) bool {
	expr := fmt.Sprintf(`window.location.href !== %q`, s.locationBefore)
	return s.c.run(ctx, 0, chromedp.Poll(expr, nil,
		chromedp.WithPollingTimeout(timeout))) == nil
}

func (s *pageSaveSignals) WaitSaveControlGone(ctx context.Context, timeout time.Duration) bool {
	expr := fmt.Sprintf(`(() => {
		const b = document.querySelector(%q);
		if (!b) return true;
		if (b.disabled) return true;
		const r = b.getBoundingClientRect();
		return r.width === 0 || r.height === 0;
	})()`, s.c.sel.ComponentSave)
	return s.c.run(ctx, 0, chromedp.Poll(expr, nil,
		chromedp.WithPollingTimeout(timeout))) == nil
}

func (s *pageSaveSignals) WaitBodyContains(ctx context.Context, text string, timeout time.Duration) bool {
	// Post-save content often renders asynchronously; give it a moment
	// before the bounded wait starts.
	if err := s.c.run(ctx, 0, chromedp.Sleep(1200*time.Millisecond)); err != nil {
		return false
	}
	expr := fmt.Sprintf(`(document.body?.innerText || '').includes(%q)`, text)
	return s.c.run(ctx, 0, chromedp.Poll(expr, nil,
		chromedp.WithPollingTimeout(timeout))) == nil
}
