// internal/portal/errors.go
package portal

import "errors"

// Error taxonomy for portal automation. Every failure surfaced to a caller
// wraps exactly one of these sentinels so callers can branch with errors.Is
// without parsing messages.
var (
	// ErrLifecycle marks an operation invoked before the browser session was
	// initialized or after Close.
	ErrLifecycle = errors.New("portal session not available")

	// ErrAuthentication marks a login that could not be confirmed within its
	// bound.
	ErrAuthentication = errors.New("portal login could not be confirmed")

	// ErrNavigation marks a hub or record navigation that could not be
	// confirmed.
	ErrNavigation = errors.New("portal navigation could not be confirmed")

	// ErrFieldResolution marks a required control that never reached a valid
	// state after the documented retry.
	ErrFieldResolution = errors.New("portal field never reached a valid state")

	// ErrVerification marks a save or final-submit whose outcome could not
	// be confirmed as success, or was rejected by the portal's validation.
	ErrVerification = errors.New("portal outcome could not be verified")

	// ErrSafetyGateRefused marks an irreversible action requested without the
	// explicit acknowledgment flag. Raised before any browser interaction.
	ErrSafetyGateRefused = errors.New("refusing to final-submit without explicit acknowledgment")
)
