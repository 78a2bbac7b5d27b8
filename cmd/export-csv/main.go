package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mediatrack/internal/auth"
	"mediatrack/internal/csvio"
	"mediatrack/internal/entries"
	"mediatrack/pkg/database"
	"mediatrack/pkg/utils"
)

func main() {
	if err := newExportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newExportCmd() *cobra.Command {
	var (
		user string
		out  string
	)
	cmd := &cobra.Command{
		Use:          "export-csv --user <id|username|email>",
		Short:        "Write one user's entries to a CSV file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cfg.Log, cfg.Env, os.Stderr)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if err := run(ctx, logger, cfg.Database, user, out); err != nil {
				logger.Error("export failed", "user", user, "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id, username or email")
	cmd.Flags().StringVar(&out, "out", "data/entries.csv", "output CSV path, - for stdout")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func run(ctx context.Context, logger *slog.Logger, dbCfg utils.DatabaseConfig, user, out string) error {
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

	var w io.Writer = os.Stdout
	if out != "-" {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := csvio.Export(ctx, entries.NewRepo(db), u.ID, w)
	if err != nil {
		return err
	}
	logger.Info("exported entries", "user_id", u.ID, "rows", n, "path", out)
	return nil
}
