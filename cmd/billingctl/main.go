// Command billingctl runs ledger maintenance against the configured database
// without starting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/fatflowers/pointsledger/internal/app"
	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/rollover"
	"github.com/fatflowers/pointsledger/pkg/config"
)

// deps is the part of the service graph the commands drive.
type deps struct {
	Scheduler *rollover.Scheduler
	Points    *points.Manager
}

// withDeps builds the services, runs fn and stops them again. The in-process
// rollover ticker is disabled so a command never races a server-style loop.
var withDeps = func(ctx context.Context, fn func(context.Context, *deps) error) error {
	var d deps
	a := fx.New(
		app.Infra,
		app.Services,
		fx.Decorate(func(cfg *config.Config) *config.Config {
			c := *cfg
			c.Rollover.Interval = 0
			return &c
		}),
		fx.Populate(&d.Scheduler, &d.Points),
		fx.NopLogger,
	)
	startCtx, cancel := context.WithTimeout(ctx, app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	runErr := fn(ctx, &d)

	stopCtx, cancel2 := context.WithTimeout(context.WithoutCancel(ctx), app.DefaultStopTimeout)
	defer cancel2()
	if err := a.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAt reads the --at flag; empty means now.
func parseAt(at string) (time.Time, error) {
	if at == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q, want RFC3339: %w", at, err)
	}
	return t.UTC(), nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Points ledger maintenance",
		Long:          `Run rollover sweeps, expire rollover records, adjust and reconcile balances.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRolloverCmd(), newPointsCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
