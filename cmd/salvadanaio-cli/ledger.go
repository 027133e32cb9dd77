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
	"salvadanaio/internal/sheets"
	"salvadanaio/internal/sheets/google"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the exported ledger",
	}

	cmd.AddCommand(listLedgerCmd())
	cmd.AddCommand(authLedgerCmd())

	return cmd
}

func listLedgerCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger rows for a month",
		Long:  `List the rows the ledger worker exported for a month (default: the current month).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d: must be between 1 and 12", month)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			ledger, err := cli.NewLedger(ctx, cfg, commandLogger(cmd))
			if err != nil {
				return err
			}

			rows, err := ledger.ListEntries(ctx, year, month)
			if err != nil {
				return fmt.Errorf("list ledger entries: %w", err)
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No ledger entries for %04d-%02d.\n", year, month)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tCATEGORIES\tDESCRIPTION\tTRANSACTION")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Date.Format(sheets.DateLayout),
					r.Type,
					core.FormatAmount(r.Amount),
					strings.Join(r.Categories, ", "),
					r.Description,
					r.TransactionID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default: current)")
	return cmd
}

func authLedgerCmd() *cobra.Command {
	var (
		port    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with an OAuth client",
		Long: `Authorize the ledger with your Google account instead of a service account.
Reads the OAuth client from GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE
and saves the token to GOOGLE_OAUTH_TOKEN_FILE (default: token.json).
The client must allow the redirect URI http://localhost:<port>/callback.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := google.OAuthConfigFromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
			defer cancel()

			tok, err := google.AuthorizeOAuth(ctx, cfg, port, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			path := google.TokenFile()
			if err := google.SaveToken(path, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for authorization")
	return cmd
}
