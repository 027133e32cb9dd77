package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"salvadanaio/internal/cli"
	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage budget categories",
		Long:  `List, add, update, reorder and delete the categories income is distributed to.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(moveCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Service.Snapshot(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush()
				fmt.Fprintln(w, "ID\tNAME\tAMOUNT\tPERCENT\tMAX\tPRIORITY")
				for _, c := range b.Categories {
					limit := "-"
					if c.IsCapped() {
						limit = core.FormatAmount(*c.MaxAmount)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\t%d\n",
						c.ID, c.Name, core.FormatAmount(c.Amount), c.Percentage, limit, c.EffectivePriority())
				}
				return nil
			})
		},
	}
}

// categoryFlags are shared by add and update.
type categoryFlags struct {
	name       string
	percentage float64
	color      string
	icon       string
	max        string
	priority   int
}

func (f *categoryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "category name")
	cmd.Flags().Float64Var(&f.percentage, "percentage", 0, "share of income, 0-100")
	cmd.Flags().StringVar(&f.color, "color", "", "display color, e.g. #0D9488")
	cmd.Flags().StringVar(&f.icon, "icon", "", "display icon name")
	cmd.Flags().StringVar(&f.max, "max", "", "maximum balance (0 = unlimited)")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "fill order, lower fills first")
}

// apply overwrites the fields of in whose flags were set on the command line.
func (f *categoryFlags) apply(cmd *cobra.Command, in *engine.CategoryInput) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		in.Name = f.name
	}
	if changed("percentage") {
		in.Percentage = f.percentage
	}
	if changed("color") {
		in.Color = f.color
	}
	if changed("icon") {
		in.Icon = f.icon
	}
	if changed("max") {
		limit, err := parseCap(f.max)
		if err != nil {
			return err
		}
		in.MaxAmount = limit
	}
	if changed("priority") {
		if f.priority < 1 {
			return fmt.Errorf("invalid priority %d: must be at least 1", f.priority)
		}
		p := f.priority
		in.Priority = &p
	}
	return nil
}

// parseCap reads a maximum balance; empty or zero means unlimited.
func parseCap(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		zero, zerr := decimal.NewFromString(s)
		if zerr == nil && zero.IsZero() {
			return nil, nil
		}
		return nil, rejected(fmt.Errorf("max %q: %w", s, core.ErrInvalidAmount))
	}
	return &d, nil
}

func addCategoryCmd() *cobra.Command {
	var flags categoryFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category with an empty balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.CategoryInput{Name: args[0]}
			if err := flags.apply(cmd, &in); err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.AddCategory(ctx, in)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}

	flags.register(cmd)
	_ = cmd.Flags().MarkHidden("name") // the positional name is used
	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var flags categoryFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the settings of a category",
		Long:  `Change the settings of a category. Only the flags given are changed; the balance is never editable.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				i := b.CategoryIndex(args[0])
				if i < 0 {
					return rejected(fmt.Errorf("category %q: %w", args[0], core.ErrCategoryNotFound))
				}
				c := b.Categories[i]
				in := engine.CategoryInput{
					Name:       c.Name,
					Percentage: c.Percentage,
					Color:      c.Color,
					Icon:       c.Icon,
					MaxAmount:  c.MaxAmount,
					Priority:   c.Priority,
				}
				if err := flags.apply(cmd, &in); err != nil {
					return err
				}

				res, err := app.Service.UpdateCategory(ctx, args[0], in)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category and redistribute its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.DeleteCategory(ctx, args[0])
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				return nil
			})
		},
	}
}

func moveCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "move <id> <up|down>",
		Short:     "Swap a category with its neighbour in the fill order",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(engine.Up), string(engine.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := engine.Direction(args[1])
			if dir != engine.Up && dir != engine.Down {
				return fmt.Errorf("invalid direction %q: must be up or down", args[1])
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				res, err := app.Service.MoveCategory(ctx, args[0], dir)
				if err != nil {
					return rejected(err)
				}
				printOutcome(cmd, res.Outcome)
				fmt.Fprintln(cmd.OutOrStdout(), "New order:")
				for _, c := range res.Budget.Categories {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d %s\n", c.EffectivePriority(), c.Name)
				}
				return nil
			})
		},
	}
}
