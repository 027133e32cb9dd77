package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"salvadanaio/internal/cli"
	"salvadanaio/internal/config"
	"salvadanaio/internal/core"
	"salvadanaio/internal/log"
	"salvadanaio/internal/services"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "salvadanaio-cli",
		Short: "Manage the salvadanaio budget from the terminal",
		Long: `salvadanaio-cli works on the same budget as the salvadanaio server.
It reads the environment (and .env) for the storage backend and seed file.

Only one writer may hold a budget at a time. While the server runs, commands
that open the same SQLite database fail; use the server's HTTP API instead.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(showCmd())
	cmd.AddCommand(summaryCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(incomeCmd())
	cmd.AddCommand(withdrawCmd())
	cmd.AddCommand(payCmd())
	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(scheduledCmd())
	cmd.AddCommand(tickCmd())
	cmd.AddCommand(seedCmd())
	cmd.AddCommand(ledgerCmd())

	return cmd
}

func main() {
	cli.LoadEnvFile()

	logger := newLogger("warn")
	ctx, cancel := cli.GracefulShutdown(logger)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes to stderr so command output stays clean.
func newLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Handler = nil
	cfg.Output = os.Stderr
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	return log.New(cfg)
}

func commandLogger(cmd *cobra.Command) *log.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return newLogger(level)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp starts the budget service for the duration of run.
func withApp(cmd *cobra.Command, run func(ctx context.Context, app *cli.App) error) error {
	ctx := commandContext(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := cli.NewApp(ctx, cfg, commandLogger(cmd))
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Service.Start(ctx); err != nil {
		if errors.Is(err, core.ErrLeaseHeld) {
			return fmt.Errorf("%w\nstop the salvadanaio server or use its HTTP API", err)
		}
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Service.Stop(stopCtx)
	}()

	return run(ctx, app)
}

// outcomeError reports a rejected operation the way the server does.
type outcomeError struct {
	outcome core.Outcome
	err     error
}

func (e *outcomeError) Error() string {
	return e.outcome.Title + ": " + e.outcome.Message
}

func (e *outcomeError) Unwrap() error { return e.err }

func rejected(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrNotRunning) || errors.Is(err, context.Canceled) {
		return err
	}
	return &outcomeError{outcome: core.OutcomeFromError(err), err: err}
}

func printOutcome(cmd *cobra.Command, o core.Outcome) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", o.Title, o.Message)
}

func parseAmountArg(s string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, rejected(fmt.Errorf("amount %q: %w", s, err))
	}
	return d, nil
}
