// internal/portal/context.go
package portal

import "context"

// combineContext derives a context from the browser session context that is
// also canceled when the caller's context is done. Every page interaction
// runs under such a combined context so that both a dying browser and a
// caller timeout abort the operation.
func combineContext(session, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(session)
	go func() {
		select {
		case <-caller.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
