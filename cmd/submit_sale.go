// -- cmd/submit_sale.go --
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epictrips/backoffice/api/schemas"
	"github.com/epictrips/backoffice/internal/observability"
	"github.com/epictrips/backoffice/internal/service"
	"github.com/epictrips/backoffice/internal/store"
)

// salesStore is the persistence surface the database-backed commands need:
// the submission service's store plus the pending-queue listing.
type salesStore interface {
	service.SalesStore
	ListCommissionsMissingFormRef(ctx context.Context, limit int32) ([]store.Commission, error)
}

// openStore is swapped for a fake in tests. The returned func releases the
// underlying pool.
var openStore = func(ctx context.Context, url string, logger *zap.Logger) (salesStore, func(), error) {
	pool, err := store.Connect(ctx, url, logger)
	if err != nil {
		return nil, nil, err
	}
	return store.New(pool, logger), pool.Close, nil
}

var (
	submitSaleID      int64
	submitSaleHeadful bool
	pendingLimit      int32
)

var submitSaleCmd = &cobra.Command{
	Use:   "submit-sale",
	Short: "Load a sale from the CRM database and push it through the portal (no final submit).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appCfg.RequireDatabase(); err != nil {
			return err
		}

		logger := observability.GetLogger()
		st, release, err := openStore(cmd.Context(), appCfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer release()

		return withPortalClient(cmd.Context(), submitSaleHeadful, func(ctx context.Context, client schemas.PortalClient) error {
			svc := service.NewSalesSubmissionService(st, client, logger)
			outcome, err := svc.SubmitSale(ctx, submitSaleID, portalCredentials())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"OK: sale_id=%d confirmation_id=%s\n", outcome.SaleID, outcome.ConfirmationID)
			return nil
		})
	},
}

var pendingCommissionsCmd = &cobra.Command{
	Use:   "pending-commissions",
	Short: "List commissions whose sale has not been pushed to the portal yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appCfg.RequireDatabase(); err != nil {
			return err
		}

		st, release, err := openStore(cmd.Context(), appCfg.Database.URL, observability.GetLogger())
		if err != nil {
			return err
		}
		defer release()

		queue, err := st.ListCommissionsMissingFormRef(cmd.Context(), pendingLimit)
		if err != nil {
			return err
		}
		if len(queue) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no pending commissions")
			return nil
		}
		for _, c := range queue {
			fmt.Fprintf(cmd.OutOrStdout(), "commission_id=%d sale_id=%d\n", c.ID, c.SaleID)
		}
		return nil
	},
}

func init() {
	submitSaleCmd.Flags().Int64Var(&submitSaleID, "sale-id", 0, "CRM sale id to submit")
	submitSaleCmd.Flags().BoolVar(&submitSaleHeadful, "headful", false, "show the browser window for debugging")
	submitSaleCmd.MarkFlagRequired("sale-id")

	pendingCommissionsCmd.Flags().Int32Var(&pendingLimit, "limit", 50, "maximum number of commissions to list")

	rootCmd.AddCommand(submitSaleCmd)
	rootCmd.AddCommand(pendingCommissionsCmd)
}
