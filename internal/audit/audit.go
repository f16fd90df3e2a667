// Package audit は実行結果の監査ログを提供する。
package audit

import (
	"context"
	"log/slog"
	"time"
)

// WriteAuditLog はメタテーブルに記録した実行結果を監査ログとして出力する。
func WriteAuditLog(ctx context.Context, operation string, script string, result string, statements int) {
	slog.InfoContext(ctx, "script outcome recorded",
		"operation", operation,
		"script", script,
		"statements", statements,
		"result", result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
