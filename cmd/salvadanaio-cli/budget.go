package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"salvadanaio/internal/cli"
	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/services"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the total balance and every category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), services.Describe(b))
				return nil
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the dashboard summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				s, err := app.Service.Summary(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total balance:     %s\n", core.FormatAmount(s.TotalBalance))
				fmt.Fprintf(out, "Daily use:         %s\n", core.FormatAmount(s.DailyBalance))
				fmt.Fprintf(out, "Unallocated:       %s\n", core.FormatAmount(s.UnallocatedFunds))
				fmt.Fprintf(out, "Active scheduled:  %d\n", s.ActiveScheduled)
				if s.NextScheduled != nil {
					fmt.Fprintf(out, "Next payment:      %s on %s\n",
						core.FormatAmount(s.NextScheduled.Amount),
						s.NextScheduled.NextDate.Format("Jan 2, 2006 15:04"))
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "\nCATEGORY\tAMOUNT\tSHARE\tLIMIT")
				for _, c := range s.Categories {
					limit := "-"
					switch {
					case c.AtLimit:
						limit = "full"
					case c.Capped:
						limit = "capped"
					}
					fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\n", c.Name, core.FormatAmount(c.Amount), c.Share, limit)
				}
				return nil
			})
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		txType string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := engine.TransactionFilter{Limit: limit}
			switch t := core.TransactionType(txType); t {
			case "":
			case core.Income, core.Withdrawal, core.Payment:
				filter.Type = t
			default:
				return fmt.Errorf("invalid transaction type %q: must be income, withdrawal or payment", txType)
			}
			if limit < 0 {
				return fmt.Errorf("invalid limit %d: must not be negative", limit)
			}

			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				txs := engine.History(b, filter)
				if len(txs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No transactions found.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORIES\tDESCRIPTION")
				for _, tx := range txs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
						tx.ID,
						tx.Date.Format("2006-01-02 15:04"),
						tx.Type,
						core.FormatAmount(tx.Amount),
						b.CategoryNames(tx),
						tx.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&txType, "type", "", "only show income, withdrawal or payment")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of transactions (0 = all)")
	return cmd
}

func incomeCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "income <amount>",
		Short: "Add income and distribute it across categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.AddIncome(ctx, amount, description)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the income")
	return cmd
}

func withdrawCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "withdraw <category-id> <amount>",
		Short: "Withdraw money from a single category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.Withdraw(ctx, args[0], amount, description)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the withdrawal")
	return cmd
}

func payCmd() *cobra.Command {
	var (
		description string
		preferred   string
		fallbacks   []string
	)

	cmd := &cobra.Command{
		Use:   "pay <amount>",
		Short: "Make a payment drawn from one or more categories",
		Long: `Make a payment. Funds come from the --from category (Daily Use, then
Savings, when omitted) and then from each --fallback category in order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.MakePayment(ctx, engine.PaymentRequest{
					Amount:      amount,
					Description: description,
					PreferredID: preferred,
					FallbackIDs: fallbacks,
				})
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the payment")
	cmd.Flags().StringVar(&preferred, "from", "", "category id drained first")
	cmd.Flags().StringSliceVar(&fallbacks, "fallback", nil, "category ids drained in order when --from is short")
	return cmd
}
