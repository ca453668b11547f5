// -- cmd/portal.go --
package cmd

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
	"github.com/epictrips/backoffice/internal/config"
	"github.com/epictrips/backoffice/internal/observability"
	"github.com/epictrips/backoffice/internal/portal"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// newPortalClient is swapped for a recording fake in tests so CLI wiring
// can be exercised without launching a browser.
var newPortalClient = func(cfg config.PortalConfig, logger *zap.Logger) schemas.PortalClient {
	return portal.New(cfg, logger)
}

var (
	existingFormID         string
	existingTravelerJSON   string
	existingComponentsJSON string
	existingHeadful        bool

	finalFormID  string
	finalHeadful bool
	finalAck     bool
)

var portalExistingFormCmd = &cobra.Command{
	Use:   "portal-existing-form",
	Short: "Open an existing commission record and add a traveler and components (no database, no final submit).",
	RunE: func(cmd *cobra.Command, args []string) error {
		traveler, err := loadTravelerFile(existingTravelerJSON)
		if err != nil {
			return err
		}
		components, err := loadComponentsFile(existingComponentsJSON)
		if err != nil {
			return err
		}

		payload := schemas.SubmitPayload{
			ExistingFormID: existingFormID,
			Traveler:       traveler,
			Components:     components,
		}
		// Malformed input fails here, before a browser ever launches.
		if err := payload.Validate(); err != nil {
			return err
		}

		return withPortalClient(cmd.Context(), existingHeadful, func(ctx context.Context, client schemas.PortalClient) error {
			if err := client.Login(ctx, portalCredentials()); err != nil {
				return err
			}
			result, err := client.SubmitSale(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"OK: existing form updated, confirmation_id=%s\n", result.ConfirmationID)
			return nil
		})
	},
}

var portalFinalSubmitCmd = &cobra.Command{
	Use:   "portal-final-submit",
	Short: "DANGEROUS: final-submit an existing commission record (irreversible).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPortalClient(cmd.Context(), finalHeadful, func(ctx context.Context, client schemas.PortalClient) error {
			// The gate comes before any browser interaction. The client
			// starts lazily and has launched nothing yet, so refusing here
			// means no login and no traffic, while the deferred Close still
			// releases the session exactly once.
			if !finalAck {
				return fmt.Errorf(
					"%w: pass --i-understand-this-will-submit to final-submit %s",
					portal.ErrSafetyGateRefused, finalFormID)
			}

			if err := client.Login(ctx, portalCredentials()); err != nil {
				return err
			}
			result, err := client.FinalSubmitExistingForm(ctx, finalFormID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"OK: final-submitted form_id=%s confirmation_id=%s\n",
				finalFormID, result.ConfirmationID)
			return nil
		})
	},
}

func init() {
	portalExistingFormCmd.Flags().StringVar(&existingFormID, "form-id", "", "existing record id (defaults to portal.default_form_id)")
	portalExistingFormCmd.Flags().StringVar(&existingTravelerJSON, "traveler-json", "", "path to a traveler JSON object")
	portalExistingFormCmd.Flags().StringVar(&existingComponentsJSON, "components-json", "", "path to a JSON list of components")
	portalExistingFormCmd.Flags().BoolVar(&existingHeadful, "headful", false, "show the browser window for debugging")

	portalFinalSubmitCmd.Flags().StringVar(&finalFormID, "form-id", "", "existing record id to final-submit")
	portalFinalSubmitCmd.Flags().BoolVar(&finalHeadful, "headful", false, "show the browser window for debugging")
	portalFinalSubmitCmd.Flags().BoolVar(&finalAck, "i-understand-this-will-submit", false,
		"required safety flag; without it the command refuses to run")
	portalFinalSubmitCmd.MarkFlagRequired("form-id")

	rootCmd.AddCommand(portalExistingFormCmd)
	rootCmd.AddCommand(portalFinalSubmitCmd)
}

// withPortalClient verifies portal settings, builds a client, runs fn, and
// closes the client exactly once no matter how fn exits.
func withPortalClient(ctx context.Context, headful bool, fn func(context.Context, schemas.PortalClient) error) error {
	if err := appCfg.RequirePortal(); err != nil {
		return err
	}

	pcfg := appCfg.Portal
	if headful {
		pcfg.Headless = false
	}

	logger := observability.GetLogger()
	client := newPortalClient(pcfg, logger)
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("closing portal client failed", zap.Error(err))
		}
	}()

	return fn(ctx, client)
}

func portalCredentials() schemas.Credentials {
	return schemas.Credentials{
		Username: appCfg.Portal.Username,
		Password: appCfg.Portal.Password,
	}
}

func loadTravelerFile(path string) (*schemas.Traveler, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading traveler file: %w", err)
	}
	var t schemas.Traveler
	if err := jsonAPI.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parsing traveler file %s: %w", path, err)
	}
	return &t, nil
}

func loadComponentsFile(path string) ([]schemas.Component, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading components file: %w", err)
	}
	var comps []schemas.Component
	if err := jsonAPI.Unmarshal(raw, &comps); err != nil {
		return nil, fmt.Errorf("parsing components file %s (must be a JSON list): %w", path, err)
	}
	return comps, nil
}
