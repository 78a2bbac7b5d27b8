package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mediatrack/internal/auth"
	"mediatrack/internal/csvio"
	"mediatrack/internal/entries"
	"mediatrack/pkg/database"
	"mediatrack/pkg/utils"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var (
		user string
		in   string
	)
	cmd := &cobra.Command{
		Use:          "import-csv --user <id|username|email> --in entries.csv",
		Short:        "Load entries for one user from a CSV file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cfg.Log, cfg.Env, os.Stderr)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if err := run(ctx, logger, cfg.Database, user, in); err != nil {
				logger.Error("import failed", "user", user, "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id, username or email")
	cmd.Flags().StringVar(&in, "in", "data/entries.csv", "input CSV path, - for stdin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func run(ctx context.Context, logger *slog.Logger, dbCfg utils.DatabaseConfig, user, in string) error {
	db, err := database.Open(database.ConfigFrom(dbCfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	u, err := auth.NewRepo(db).Resolve(ctx, user)
	if err != nil {
		return fmt.Errorf("resolve user %q: %w", user, err)
	}

	var r io.Reader = os.Stdin
	if in != "-" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	res, err := csvio.Import(ctx, entries.NewRepo(db), u.ID, r)
	if err != nil {
		return err
	}
	for _, msg := range res.Errors {
		logger.Warn("skipped row", "reason", msg)
	}
	logger.Info("imported entries",
		"user_id", u.ID,
		"created", res.Created,
		"duplicates", res.Duplicates,
		"invalid", res.Invalid,
	)
	return nil
}
