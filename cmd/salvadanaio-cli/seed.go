package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"salvadanaio/internal/seed"
	"salvadanaio/internal/services"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Manage the seed file used for a fresh budget",
	}

	cmd.AddCommand(initSeedCmd())
	cmd.AddCommand(checkSeedCmd())

	return cmd
}

func initSeedCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in seed to SEED_FILE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.SeedFile); err == nil && !force {
				return fmt.Errorf("seed file %s already exists (use --force to overwrite)", cfg.SeedFile)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking seed file: %w", err)
			}

			if err := seed.Save(cfg.SeedFile, seed.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seed written to %s\n", cfg.SeedFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing seed file")
	return cmd
}

func checkSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate SEED_FILE and print the budget it produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := seed.Load(cfg.SeedFile)
			if err != nil {
				return err
			}
			b, err := f.Budget(time.Now())
			if err != nil {
				return fmt.Errorf("invalid seed %s: %w", cfg.SeedFile, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), services.Describe(b))
			return nil
		},
	}
}
