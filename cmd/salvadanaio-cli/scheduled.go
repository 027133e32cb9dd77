package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"salvadanaio/internal/cli"
	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/services"
)

var dateLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func parseDateArg(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, rejected(fmt.Errorf("date %q: %w", s, core.ErrInvalidDate))
}

func scheduledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "Manage scheduled payments",
		Long:  `Add, list, pause, resume and cancel one-off and recurring payments.`,
	}

	cmd.AddCommand(addScheduledCmd())
	cmd.AddCommand(listScheduledCmd())
	cmd.AddCommand(toggleScheduledCmd("pause", "Pause a scheduled payment", false))
	cmd.AddCommand(toggleScheduledCmd("resume", "Resume a paused scheduled payment", true))
	cmd.AddCommand(cancelScheduledCmd())

	return cmd
}

func addScheduledCmd() *cobra.Command {
	var (
		description string
		date        string
		frequency   string
		preferred   string
		fallbacks   []string
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Schedule a payment",
		Long: `Schedule a payment due at --date (YYYY-MM-DD or YYYY-MM-DD HH:MM, local time).
With --frequency the payment repeats daily, weekly or monthly after each run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0])
			if err != nil {
				return err
			}
			due, err := parseDateArg(date)
			if err != nil {
				return err
			}
			req := engine.ScheduleRequest{
				Amount:      amount,
				Description: description,
				Date:        due,
				PreferredID: preferred,
				FallbackIDs: fallbacks,
			}
			if frequency != "" {
				req.Recurring = true
				req.Frequency = core.Frequency(frequency)
			}

			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.SchedulePayment(ctx, req)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the payment")
	cmd.Flags().StringVar(&date, "date", "", "due date")
	cmd.Flags().StringVar(&frequency, "frequency", "", "repeat daily, weekly or monthly")
	cmd.Flags().StringVar(&preferred, "from", "", "category id drained first")
	cmd.Flags().StringSliceVar(&fallbacks, "fallback", nil, "category ids drained in order when --from is short")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func listScheduledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				if len(b.ScheduledPayments) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scheduled payments.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "ID\tNEXT\tAMOUNT\tREPEATS\tSTATUS\tDESCRIPTION")
				for _, p := range b.ScheduledPayments {
					repeats := "once"
					if p.Recurring {
						repeats = string(p.Frequency)
					}
					status := "active"
					switch {
					case p.Ended != "":
						status = string(p.Ended)
					case !p.Active:
						status = "inactive"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						p.ID,
						p.NextDate.Format("2006-01-02 15:04"),
						core.FormatAmount(p.Amount),
						repeats,
						status,
						p.Description)
				}
				return nil
			})
		},
	}
}

func toggleScheduledCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.ToggleScheduled(ctx, args[0], active)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}
}

func cancelScheduledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Remove a scheduled payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.CancelScheduled(ctx, args[0])
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}
}

func tickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run due scheduled payments and report low funds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				report, err := app.Service.Tick(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, w := range report.Warnings {
					o := services.WarningOutcome(w)
					fmt.Fprintf(out, "warning  %s: %s\n", o.Title, o.Message)
				}
				for _, f := range report.Fired {
					o := services.FiredOutcome(f)
					fmt.Fprintf(out, "%-8s %s: %s\n", o.Severity, o.Title, o.Message)
				}
				fmt.Fprintf(out, "%d payments processed, %d warnings\n", len(report.Fired), len(report.Warnings))
				return nil
			})
		},
	}
}
