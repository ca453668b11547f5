// internal/portal/supplier.go
package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// suggestionWidget is the surface the supplier resolver drives. The live
// implementation wraps the portal's jQuery UI autocomplete; tests substitute
// a scripted fake.
type suggestionWidget interface {
	// ClearAndType empties the input and types text one keystroke at a
	// time, pacing each key by delay so the widget's debounce fires.
	ClearAndType(ctx context.Context, text string, delay time.Duration) error
	// WaitMenu blocks until the suggestion list renders, or fails.
	WaitMenu(ctx context.Context, timeout time.Duration) error
	// ClickSuggestion picks the suggestion exactly matching text, falling
	// back to the first suggestion when no exact match renders.
	ClickSuggestion(ctx context.Context, text string) error
	// SelectWithKeyboard picks the highlighted suggestion via arrow+enter,
	// for widgets that react to keys but never paint a list.
	SelectWithKeyboard(ctx context.Context) error
	// Blur defocuses the input so pending change handlers run.
	Blur(ctx context.Context) error
	// WaitHiddenID blocks until the widget's hidden id field holds a valid
	// value and returns it, or reports false at timeout.
	WaitHiddenID(ctx context.Context, timeout time.Duration) (string, bool)
}

// validSupplierID reports whether the hidden supplier field holds a value
// the portal will accept. The widget writes the all-zero GUID while it has
// matched nothing yet, which is just as unusable as empty.
func validSupplierID(v string) bool {
	return v != "" && v != uuid.Nil.String()
}

// supplierAttempt describes one resolution pass. The retry types slower and
// waits longer; the widget drops keystrokes under fast synthetic input.
type supplierAttempt struct {
	keyDelay time.Duration
	idWait   time.Duration
}

// supplierResolver selects a supplier through the portal's autocomplete and
// confirms the selection stuck by reading the hidden id field. Typing into
// the visible input is not enough; only a real selection populates the id.
type supplierResolver struct {
	widget      suggestionWidget
	logger      *zap.Logger
	menuTimeout time.Duration
	attempts    []supplierAttempt
}

func newSupplierResolver(widget suggestionWidget, logger *zap.Logger, menuTimeout time.Duration) *supplierResolver {
	return &supplierResolver{
		widget:      widget,
		logger:      logger.Named("supplier"),
		menuTimeout: menuTimeout,
		attempts: []supplierAttempt{
			{keyDelay: 15 * time.Millisecond, idWait: 12 * time.Second},
			{keyDelay: 40 * time.Millisecond, idWait: 15 * time.Second},
		},
	}
}

// Resolve types name, picks a suggestion, and verifies the hidden id. One
// slower retry covers the widget's flaky first render; past that the field
// is declared unresolvable.
func (r *supplierResolver) Resolve(ctx context.Context, name string) error {
	log := r.logger.With(zap.String("supplier", name))

	for i, attempt := range r.attempts {
		if i > 0 {
			log.Warn("supplier id still unset, retrying with slower typing")
		}

		if err := r.widget.ClearAndType(ctx, name, attempt.keyDelay); err != nil {
			return fmt.Errorf("%w: typing supplier name: %v", ErrFieldResolution, err)
		}

		if err := r.widget.WaitMenu(ctx, r.menuTimeout); err == nil {
			if err := r.widget.ClickSuggestion(ctx, name); err != nil {
				log.Debug("suggestion click failed, selecting via keyboard", zap.Error(err))
				if err := r.widget.SelectWithKeyboard(ctx); err != nil {
					return fmt.Errorf("%w: selecting supplier suggestion: %v", ErrFieldResolution, err)
				}
			}
		} else {
			// List never rendered; the widget may still accept arrow+enter.
			log.Debug("suggestion list never appeared, selecting via keyboard")
			if err := r.widget.SelectWithKeyboard(ctx); err != nil {
				return fmt.Errorf("%w: selecting supplier suggestion: %v", ErrFieldResolution, err)
			}
		}

		if err := r.widget.Blur(ctx); err != nil {
			log.Debug("blurring supplier input failed", zap.Error(err))
		}

		if id, ok := r.widget.WaitHiddenID(ctx, attempt.idWait); ok {
			log.Debug("supplier resolved", zap.String("supplier_id", id))
			return nil
		}
	}

	return fmt.Errorf("%w: supplier %q never produced a usable hidden id", ErrFieldResolution, name)
}

// pageSuggestionWidget drives the live autocomplete through chromedp.
type pageSuggestionWidget struct {
	c *Client
}

func (w *pageSuggestionWidget) ClearAndType(ctx context.Context, text string, delay time.Duration) error {
	sel := w.c.sel.SupplierName
	if err := w.c.run(ctx, w.c.cfg.ElementTimeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, "", chromedp.ByQuery),
	); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(delay), 1)
	for _, r := range text {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := w.c.run(ctx, w.c.cfg.ElementTimeout,
			chromedp.SendKeys(sel, string(r), chromedp.ByQuery)); err != nil {
			return err
		}
	}
	return nil
}

func (w *pageSuggestionWidget) WaitMenu(ctx context.Context, timeout time.Duration) error {
	return w.c.run(ctx, timeout,
		chromedp.WaitVisible(w.c.sel.SupplierMenu, chromedp.ByQuery))
}

func (w *pageSuggestionWidget) ClickSuggestion(ctx context.Context, text string) error {
	exact := fmt.Sprintf(w.c.sel.SupplierExactItem, text)
	err := w.c.run(ctx, 2*time.Second,
		chromedp.ScrollIntoView(exact, chromedp.BySearch),
		chromedp.Click(exact, chromedp.BySearch),
	)
	if err == nil {
		return nil
	}

	// No exact match rendered; take the top suggestion.
	return w.c.run(ctx, w.c.cfg.ElementTimeout,
		chromedp.WaitVisible(w.c.sel.SupplierMenuItem, chromedp.ByQuery),
		chromedp.ScrollIntoView(w.c.sel.SupplierMenuItem, chromedp.ByQuery),
		chromedp.Click(w.c.sel.SupplierMenuItem, chromedp.ByQuery),
	)
}

func (w *pageSuggestionWidget) SelectWithKeyboard(ctx context.Context) error {
	sel := w.c.sel.SupplierName
	return w.c.run(ctx, w.c.cfg.ElementTimeout,
		chromedp.SendKeys(sel, kb.ArrowDown, chromedp.ByQuery),
		chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery),
	)
}

func (w *pageSuggestionWidget) Blur(ctx context.Context) error {
	return w.c.run(ctx, w.c.cfg.ElementTimeout, chromedp.Evaluate(fmt.Sprintf(
		`document.querySelector(%q)?.blur()`, w.c.sel.SupplierName), nil))
}

func (w *pageSuggestionWidget) WaitHiddenID(ctx context.Context, timeout time.Duration) (string, bool) {
	valid := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const v = (el.value || '').trim();
		return v !== '' && v !== %q;
	})()`, w.c.sel.SupplierID, uuid.Nil.String())

	if err := w.c.run(ctx, 0, chromedp.Poll(valid, nil,
		chromedp.WithPollingTimeout(timeout))); err != nil {
		return "", false
	}

	id := w.c.evalString(ctx, fmt.Sprintf(
		`(document.querySelector(%q)?.value || '').trim()`, w.c.sel.SupplierID))
	return id, validSupplierID(id)
}

// resolveSupplier wires the live widget into a resolver. bookingRef
// correlates any failure artifact with the component being filled.
func (c *Client) resolveSupplier(ctx context.Context, name, bookingRef string) error {
	resolver := newSupplierResolver(&pageSuggestionWidget{c: c}, c.logger, 10*time.Second)
	if err := resolver.Resolve(ctx, name); err != nil {
		c.captureArtifact(ctx, tagWithRef("supplier_unresolved", bookingRef))
		return err
	}
	return nil
}
