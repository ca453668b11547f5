package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
	"github.com/epictrips/backoffice/internal/config"
)

func newTestClient() *Client {
	return New(config.PortalConfig{
		BaseURL:       "https://portal.example.invalid",
		DefaultFormID: "EVO2026153349",
	}, zap.NewNop())
}

func TestClientLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("close is idempotent and safe before start", func(t *testing.T) {
		t.Parallel()
		c := newTestClient()
		require.NoError(t, c.Close(ctx))
		require.NoError(t, c.Close(ctx))
	})

	t.Run("operations after close report a lifecycle error", func(t *testing.T) {
		t.Parallel()
		c := newTestClient()
		require.NoError(t, c.Close(ctx))

		err := c.Login(ctx, schemas.Credentials{Username: "a", Password: "b"})
		assert.True(t, errors.Is(err, ErrLifecycle))

		_, err = c.SubmitSale(ctx, schemas.SubmitPayload{})
		assert.True(t, errors.Is(err, ErrLifecycle))

		_, err = c.FinalSubmitExistingForm(ctx, "EVO2026153349")
		assert.True(t, errors.Is(err, ErrLifecycle))
	})

	t.Run("login is a no-op on an authenticated session", func(t *testing.T) {
		t.Parallel()
		c := newTestClient()
		c.started = true
		c.authenticated = true

		// No session context exists, so any page interaction would fail;
		// a clean return proves the authenticated short-circuit.
		require.NoError(t, c.Login(ctx, schemas.Credentials{Username: "a", Password: "b"}))
	})

	t.Run("payload validation runs before any browser work", func(t *testing.T) {
		t.Parallel()
		c := newTestClient()
		require.NoError(t, c.Close(ctx))

		// A closed client fails lifecycle first for valid payloads, so a
		// validation error here proves validation happened earlier.
		bad := schemas.SubmitPayload{
			Components: []schemas.Component{{Type: "flight"}},
		}
		_, err := c.SubmitSale(ctx, bad)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrLifecycle))
		assert.Contains(t, err.Error(), "invalid component")
	})
}

func TestSanitizeTag(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "save_unverified_REF-12_34", sanitizeTag("save_unverified_REF-12/34"))
	assert.Equal(t, "final_submit_ok_EVO2026153349", sanitizeTag("final_submit_ok_EVO2026153349"))
}

func TestTagWithRef(t *testing.T) {
	t.Parallel()

	// Component-path failures carry their booking reference so two failing
	// components in one run do not overwrite each other's screenshots.
	assert.Equal(t, "supplier_unresolved_REF-1", tagWithRef("supplier_unresolved", "REF-1"))
	assert.Equal(t, "currency_not_set_REF-2", tagWithRef("currency_not_set", "REF-2"))
	assert.Equal(t, "login_timeout", tagWithRef("login_timeout", ""))
}
