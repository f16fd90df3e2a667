package repository

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"dml-runner/internal/usecase"
)

// Connection は *gorm.DB を usecase.Connection として公開する。
type Connection struct {
	db *gorm.DB
}

// NewConnection は新しいConnectionを生成する。
func NewConnection(db *gorm.DB) *Connection {
	return &Connection{db: db}
}

// Begin は明示的なトランザクションを開始する。
// 開始したトランザクションは Commit か Rollback されるまで1つの接続を占有する。
func (c *Connection) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		slog.ErrorContext(ctx, "failed to begin transaction",
			"operation", "begin",
			"error", tx.Error,
		)
		return nil, tx.Error
	}
	return &transaction{tx: tx}, nil
}

// transaction は gorm のトランザクションをラップする。
type transaction struct {
	tx *gorm.DB
}

// Exec はステートメントを1つ実行する。
func (t *transaction) Exec(ctx context.Context, statement string) error {
	return t.tx.WithContext(ctx).Exec(statement).Error
}

func (t *transaction) Commit() error {
	return t.tx.Commit().Error
}

func (t *transaction) Rollback() error {
	return t.tx.Rollback().Error
}
