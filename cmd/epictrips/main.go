// -- cmd/epictrips/main.go --
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/epictrips/backoffice/cmd"
	"github.com/epictrips/backoffice/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	cmd.Execute(ctx)
}
