// internal/portal/client.go

// Package portal drives the third-party commission portal through a real
// browser. The portal exposes no API, so every operation here works the way
// an agent at a keyboard would: navigate, click, type, and read indirect
// signals off the page to decide whether an action took.
//
// The client is strictly sequential and owns exactly one browser session.
// The safe path (Login, SubmitSale) modifies existing records only and can
// never trigger the portal's irreversible final submission; that action is
// confined to finalsubmit.go.
package portal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
	"github.com/epictrips/backoffice/internal/config"
)

// noSubmitSuffix marks a confirmation id produced by the safe path, so a
// downstream reader can never mistake it for a finalized submission.
const noSubmitSuffix = "-NO-SUBMIT"

// Client is the chromedp-backed implementation of schemas.PortalClient.
type Client struct {
	cfg    config.PortalConfig
	logger *zap.Logger
	sel    selectorSet

	// dialogAccept arms the session-wide dialog listener. Only the final
	// submit path sets it; everywhere else a surprise confirm() dialog is
	// left alone and the pending action times out instead.
	dialogAccept atomic.Bool

	mu            sync.Mutex
	session       context.Context
	sessionCancel context.CancelFunc
	allocCancel   context.CancelFunc
	started       bool
	closed        bool
	authenticated bool
}

var _ schemas.PortalClient = (*Client)(nil)

// New builds an unstarted client. The browser launches lazily on the first
// operation, so constructing a Client is cheap and never fails.
func New(cfg config.PortalConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.Named("portal"),
		sel:    defaultSelectors(),
	}
}

// start launches the browser and navigates to the portal landing page.
// Idempotent; concurrent-safe; fails permanently once Close has run.
func (c *Client) start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: client is closed", ErrLifecycle)
	}
	if c.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "en-US"),
	)

	// The session hangs off Background, not the caller's context: the
	// browser must outlive the operation that happened to launch it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	session, sessionCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(c.logger.Sugar().Debugf),
	)

	chromedp.ListenTarget(session, func(ev interface{}) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); !ok {
			return
		}
		if !c.dialogAccept.Load() {
			c.logger.Warn("unexpected portal dialog; leaving it unanswered")
			return
		}
		go func() {
			if err := chromedp.Run(session, page.HandleJavaScriptDialog(true)); err != nil {
				c.logger.Debug("accepting portal dialog failed", zap.Error(err))
			}
		}()
	})

	navCtx, cancel := combineContext(session, ctx)
	defer cancel()
	navCtx, navCancel := context.WithTimeout(navCtx, c.cfg.NavigationTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(c.cfg.BaseURL)); err != nil {
		sessionCancel()
		allocCancel()
		return fmt.Errorf("%w: opening %s: %v", ErrNavigation, c.cfg.BaseURL, err)
	}

	c.session = session
	c.sessionCancel = sessionCancel
	c.allocCancel = allocCancel
	c.started = true

	c.logger.Info("browser session started",
		zap.String("base_url", c.cfg.BaseURL),
		zap.Bool("headless", c.cfg.Headless))
	return nil
}

// run executes chromedp actions against the live session, bounded by the
// caller's context and, when timeout is positive, a per-operation deadline.
func (c *Client) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	c.mu.Lock()
	session := c.session
	live := c.started && !c.closed
	c.mu.Unlock()
	if !live {
		return ErrLifecycle
	}

	opCtx, cancel := combineContext(session, ctx)
	defer cancel()
	if timeout > 0 {
		var tcancel context.CancelFunc
		opCtx, tcancel = context.WithTimeout(opCtx, timeout)
		defer tcancel()
	}
	return chromedp.Run(opCtx, actions...)
}

// evalString evaluates a JS expression and returns its string result. Errors
// collapse to "" because callers treat unreadable state as absent state.
func (c *Client) evalString(ctx context.Context, expr string) string {
	var out string
	if err := c.run(ctx, c.cfg.ElementTimeout, chromedp.Evaluate(expr, &out)); err != nil {
		return ""
	}
	return out
}

// evalBool evaluates a JS predicate, treating any error as false.
func (c *Client) evalBool(ctx context.Context, expr string) bool {
	var out bool
	if err := c.run(ctx, c.cfg.ElementTimeout, chromedp.Evaluate(expr, &out)); err != nil {
		return false
	}
	return out
}

// location returns the current page URL.
func (c *Client) location(ctx context.Context) string {
	return c.evalString(ctx, "window.location.href")
}

// fill sets an input's value and fires the input/change events the portal's
// own handlers listen for. chromedp.SetValue alone would not trigger them.
func (c *Client) fill(sel, value string) chromedp.Action {
	return chromedp.Tasks{
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, value, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (el) {
				el.dispatchEvent(new Event('input', { bubbles: true }));
				el.dispatchEvent(new Event('change', { bubbles: true }));
			}
		})()`, sel), nil),
	}
}

// fillReadonlyInput handles inputs that start readonly and become editable
// on focus. The portal removes the attribute from an onfocus handler; if
// that never fires, strip it directly rather than stall the whole login.
func (c *Client) fillReadonlyInput(ctx context.Context, sel, value string) error {
	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("focusing %s: %w", sel, err)
	}

	editable := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el !== null && !el.hasAttribute('readonly');
	})()`, sel)
	if err := c.run(ctx, 0, chromedp.Poll(editable, nil,
		chromedp.WithPollingTimeout(10*time.Second))); err != nil {
		c.logger.Debug("input stayed readonly after focus, removing attribute",
			zap.String("selector", sel))
		if err := c.run(ctx, c.cfg.ElementTimeout, chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q).removeAttribute('readonly')`, sel), nil)); err != nil {
			return fmt.Errorf("unlocking %s: %w", sel, err)
		}
	}

	return c.run(ctx, c.cfg.ElementTimeout, c.fill(sel, value))
}

// Login establishes an authenticated portal session. Idempotent: a second
// call, or a call against a page that already shows the logged-in landmark,
// is a no-op.
func (c *Client) Login(ctx context.Context, creds schemas.Credentials) error {
	if err := c.start(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	already := c.authenticated
	c.mu.Unlock()
	if already {
		c.logger.Debug("session already authenticated, skipping login")
		return nil
	}

	// The commissions dropdown only renders for a logged-in agent, which
	// makes it both the login landmark and the pre-check.
	if c.evalBool(ctx, fmt.Sprintf(`document.querySelector(%q) !== null`, c.sel.CommissionsDropdown)) {
		c.setAuthenticated()
		c.logger.Debug("portal already shows an authenticated session")
		return nil
	}

	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Click(c.sel.LoginOpen, chromedp.ByQuery),
		chromedp.WaitVisible(c.sel.LoginModal, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, "login_timeout")
		return fmt.Errorf("%w: login modal never opened: %v", ErrAuthentication, err)
	}

	if err := c.fillReadonlyInput(ctx, c.sel.Username, creds.Username); err != nil {
		c.captureArtifact(ctx, "login_timeout")
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if err := c.fillReadonlyInput(ctx, c.sel.Password, creds.Password); err != nil {
		c.captureArtifact(ctx, "login_timeout")
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Click(c.sel.LoginSubmit, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, "login_timeout")
		return fmt.Errorf("%w: submitting credentials: %v", ErrAuthentication, err)
	}

	if err := c.run(ctx, c.cfg.NavigationTimeout,
		chromedp.WaitVisible(c.sel.CommissionsDropdown, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, "login_timeout")
		return fmt.Errorf("%w: logged-in landmark never appeared: %v", ErrAuthentication, err)
	}

	c.setAuthenticated()
	c.logger.Info("portal login confirmed", zap.String("username", creds.Username))
	return nil
}

func (c *Client) setAuthenticated() {
	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()
}

// goToCommissionsHub navigates to the hub that lists commission records.
// No-op when the hub's own landmark is already on screen.
func (c *Client) goToCommissionsHub(ctx context.Context) error {
	if c.evalBool(ctx, fmt.Sprintf(`document.querySelector(%q) !== null`, c.sel.NewCommission)) {
		return nil
	}

	// The nav link text appears more than once (a V2 beta entry shadows
	// it), so the XPath pins the exact label and the click takes the first.
	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Click(c.sel.CommissionsDropdown, chromedp.ByQuery),
		chromedp.WaitVisible(c.sel.HubLink, chromedp.BySearch),
		chromedp.Click(c.sel.HubLink, chromedp.BySearch),
	); err != nil {
		c.captureArtifact(ctx, "hub_navigation_timeout")
		return fmt.Errorf("%w: commissions hub link: %v", ErrNavigation, err)
	}

	if err := c.run(ctx, c.cfg.NavigationTimeout,
		chromedp.WaitVisible(c.sel.NewCommission, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, "hub_navigation_timeout")
		return fmt.Errorf("%w: commissions hub never rendered: %v", ErrNavigation, err)
	}
	return nil
}

// openExistingForm opens a commission record from the hub table by exact id.
// The client only ever opens records that already exist; it never creates.
func (c *Client) openExistingForm(ctx context.Context, formID string) error {
	row := fmt.Sprintf(c.sel.HubRowByID, formID)
	if err := c.run(ctx, c.cfg.NavigationTimeout,
		chromedp.WaitVisible(row, chromedp.BySearch),
		chromedp.ScrollIntoView(row, chromedp.BySearch),
		chromedp.Click(row, chromedp.BySearch),
	); err != nil {
		c.captureArtifact(ctx, tagWithRef("open_form_timeout", formID))
		return fmt.Errorf("%w: record %s not found in hub table: %v", ErrNavigation, formID, err)
	}
	c.logger.Debug("opened existing record", zap.String("form_id", formID))
	return nil
}

// addTraveler attaches a traveler to the open record.
func (c *Client) addTraveler(ctx context.Context, t *schemas.Traveler) error {
	if err := c.run(ctx, c.cfg.ElementTimeout,
		chromedp.Click(c.sel.NewTravelerButton, chromedp.ByQuery),
		c.fill(c.sel.TravelerFirst, t.FirstName),
		c.fill(c.sel.TravelerLast, t.LastName),
		c.fill(c.sel.TravelerEmail, t.Email),
		c.fill(c.sel.TravelerPhone, t.Phone),
		chromedp.Click(c.sel.TravelerSave, chromedp.ByQuery),
	); err != nil {
		c.captureArtifact(ctx, "traveler_timeout")
		return fmt.Errorf("%w: traveler form: %v", ErrFieldResolution, err)
	}
	c.logger.Info("traveler added",
		zap.String("first_name", t.FirstName),
		zap.String("last_name", t.LastName))
	return nil
}

// SubmitSale opens an existing record and attaches the payload's traveler
// and components, verifying each save through the portal's indirect UI
// signals. It never presses the portal's final submit; the returned
// confirmation id carries the no-submit suffix to make that unmistakable.
func (c *Client) SubmitSale(ctx context.Context, payload schemas.SubmitPayload) (schemas.SubmissionResult, error) {
	if err := payload.Validate(); err != nil {
		return schemas.SubmissionResult{}, err
	}
	if err := c.start(ctx); err != nil {
		return schemas.SubmissionResult{}, err
	}

	formID := payload.ExistingFormID
	if formID == "" {
		formID = c.cfg.DefaultFormID
	}

	log := c.logger.With(zap.String("form_id", formID))
	log.Info("submitting sale to portal",
		zap.Bool("has_traveler", payload.Traveler != nil),
		zap.Int("components", len(payload.Components)))

	if err := c.goToCommissionsHub(ctx); err != nil {
		return schemas.SubmissionResult{}, err
	}
	if err := c.openExistingForm(ctx, formID); err != nil {
		return schemas.SubmissionResult{}, err
	}

	if payload.Traveler != nil {
		if err := c.addTraveler(ctx, payload.Traveler); err != nil {
			return schemas.SubmissionResult{}, err
		}
	}
	for i := range payload.Components {
		if err := c.addComponent(ctx, payload.Components[i]); err != nil {
			return schemas.SubmissionResult{}, err
		}
	}

	c.captureArtifact(ctx, "safe_mode_done_no_submit")
	result := schemas.SubmissionResult{ConfirmationID: formID + noSubmitSuffix}
	log.Info("sale recorded without final submission",
		zap.String("confirmation_id", result.ConfirmationID))
	return result, nil
}

// Close tears down the browser session. Safe to call at any point, multiple
// times, including on a client that never started.
func (c *Client) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.session = nil

	if c.started {
		c.logger.Info("browser session closed")
	}
	return nil
}
