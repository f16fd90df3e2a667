// Package main はDMLスクリプト適用ツールのエントリポイント。
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

// コマンドラインフラグ（環境変数より優先）
type flags struct {
	dir         string
	metaTable   string
	splitter    string
	logLevel    string
	retryFailed bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("dmlrun failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "dmlrun",
		Short: "Apply pending SQL scripts once each, in filename order",
		Long: "Apply every SQL script in the source directory that has no record in the meta table,\n" +
			"in byte-wise filename order, stopping on the first failure.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .envファイルを読み込む（存在しない場合は無視）
			// 既存の環境変数は上書きしない
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, f)
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&f.dir, "dir", "", "Script directory (or set DML_DIR, default raw/dml)")
	rootCmd.PersistentFlags().StringVar(&f.metaTable, "meta-table", "", "Meta table name (or set META_TABLE, default RawScriptsMeta)")
	rootCmd.PersistentFlags().StringVar(&f.splitter, "splitter", "", "Statement splitter: semicolon, tokenizing (or set SQL_SPLITTER)")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (or set LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&f.retryFailed, "retry-failed", false, "Re-attempt scripts recorded as FAILURE (or set RETRY_FAILED)")

	rootCmd.AddCommand(upCmd(f))
	rootCmd.AddCommand(statusCmd(f))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dmlrun version %s\n", version)
		},
	}
}
