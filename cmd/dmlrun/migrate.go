package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"dml-runner/config"
	"dml-runner/internal/infra"
	"dml-runner/internal/repository"
	"dml-runner/internal/source"
	"dml-runner/internal/splitter"
	"dml-runner/internal/usecase"
)

func upCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending scripts",
		Long:  "Apply all scripts that have no record in the meta table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, f)
		},
	}
}

func statusCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show script status",
		Long:  "Show the status of all scripts (SUCCESS/FAILURE/PENDING)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			infra.SetupLogger(os.Stderr, cfg)

			service, db, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			views, err := service.GetMigrationStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			// テーブル形式で出力
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tEXECUTED AT")
			fmt.Fprintln(w, "----\t------\t-----------")

			for _, view := range views {
				executedAt := "-"
				if view.ExecutedAt != nil {
					executedAt = view.ExecutedAt.Format("2006-01-02 15:04:05")
				}
				status := string(view.Status)
				if view.Missing {
					status += " (file missing)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", view.Name, status, executedAt)
			}

			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush output: %w", err)
			}
			return nil
		},
	}
}

func runUp(cmd *cobra.Command, f *flags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 環境変数が不足している場合は接続前に終了する
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	infra.SetupLogger(os.Stderr, cfg)
	slog.Info("starting...")

	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	service, db, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	report, err := service.ApplyMigrations(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if len(report.Applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending scripts.")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d script(s) successfully.\n", len(report.Applied))
	}
	return nil
}

// loadConfig は環境変数から設定を読み込み、指定されたフラグで上書きする。
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, f, cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	if f.dir != "" {
		cfg.SourceDir = f.dir
	}
	if f.metaTable != "" {
		cfg.MetaTable = f.metaTable
	}
	if f.splitter != "" {
		cfg.Splitter = f.splitter
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("retry-failed") {
		cfg.RetryFailed = f.retryFailed
	}
}

// buildService はDB接続を確立し、MigrationServiceを組み立てる。
func buildService(ctx context.Context, cfg *config.Config) (*usecase.MigrationService, *gorm.DB, error) {
	stmtSplitter, err := splitter.ByName(cfg.Splitter)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("try connection", "host", cfg.DBHost)
	db, err := infra.NewDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("connected", "host", cfg.DBHost, "user", cfg.DBUser, "db", cfg.DBName)

	store, err := repository.NewMetaRepository(db, cfg.MetaTable)
	if err != nil {
		return nil, nil, err
	}

	service := usecase.NewMigrationService(
		store,
		source.NewFileSource(cfg.SourceDir),
		stmtSplitter,
		repository.NewConnection(db),
		usecase.Options{RetryFailed: cfg.RetryFailed},
	)
	return service, db, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
