// Package infra は外部サービスとの接続を提供する。
package infra

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"dml-runner/config"
	"dml-runner/internal/domain"
)

// NewDB はgormによるデータベース接続を初期化し、疎通を確認する。
func NewDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// メタテーブルへの記録は1文で完結するため暗黙のトランザクションは不要
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConnection, cfg.DBHost, err)
	}

	if cfg.OtelEnabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("registering tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}

	// 単一の利用者として1接続のみ使用する
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConnection, cfg.DBHost, err)
	}

	return db, nil
}
