// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dml-runner/internal/domain"
)

// validTableName はメタテーブル名として許可する識別子。
var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// MySQLの既存メタテーブルと同一の定義
const mysqlMetaDDL = "CREATE TABLE IF NOT EXISTS `%s` (\n" +
	"  `name` varchar(255) COLLATE utf8_unicode_ci NOT NULL,\n" +
	"  `executedAt` timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,\n" +
	"  `status` varchar(20) NOT NULL,\n" +
	"  PRIMARY KEY (`name`),\n" +
	"  UNIQUE KEY `name` (`name`)\n" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb3 COLLATE=utf8_unicode_ci"

// MySQL以外（テスト用のSQLite等）の定義
const portableMetaDDL = "CREATE TABLE IF NOT EXISTS `%s` (\n" +
	"  `name` varchar(255) NOT NULL PRIMARY KEY,\n" +
	"  `executedAt` timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP,\n" +
	"  `status` varchar(20) NOT NULL\n" +
	")"

// MetaRecordModel はメタテーブルのモデル。テーブル名は MetaRepository が指定する。
type MetaRecordModel struct {
	Name       string    `gorm:"column:name;primaryKey;type:varchar(255)"`
	ExecutedAt time.Time `gorm:"column:executedAt;->"`
	Status     string    `gorm:"column:status;type:varchar(20);not null"`
}

func (m *MetaRecordModel) toDomain() *domain.MigrationRecord {
	return &domain.MigrationRecord{
		Name:       m.Name,
		ExecutedAt: m.ExecutedAt,
		Status:     domain.MigrationStatus(m.Status),
	}
}

// MetaRepository は実行済みスクリプトの記録を管理するリポジトリ。
type MetaRepository struct {
	db    *gorm.DB
	table string
}

// NewMetaRepository は新しいMetaRepositoryを生成する。
func NewMetaRepository(db *gorm.DB, table string) (*MetaRepository, error) {
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid meta table name %q", domain.ErrConfig, table)
	}
	return &MetaRepository{db: db, table: table}, nil
}

// Table はメタテーブル名を返す。
func (r *MetaRepository) Table() string {
	return r.table
}

// EnsureSchema はメタテーブルが存在しなければ作成する。
func (r *MetaRepository) EnsureSchema(ctx context.Context) error {
	ddl := portableMetaDDL
	if r.db.Dialector.Name() == "mysql" {
		ddl = mysqlMetaDDL
	}
	if err := r.db.WithContext(ctx).Exec(fmt.Sprintf(ddl, r.table)).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create meta table",
			"operation", "ensure_schema",
			"table", r.table,
			"error", err,
		)
		return fmt.Errorf("%w: create table %s: %v", domain.ErrStoreWrite, r.table, err)
	}
	return nil
}

// ListAppliedNames はステータスに関わらず記録済みの名前を返す。
func (r *MetaRepository) ListAppliedNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Table(r.table).Order("name ASC").Pluck("name", &names).Error; err != nil {
		slog.ErrorContext(ctx, "failed to list applied names",
			"operation", "list_applied_names",
			"table", r.table,
			"error", err,
		)
		return nil, err
	}
	slog.DebugContext(ctx, "names in the meta table", "table", r.table, "names", names)
	return names, nil
}

// ListRecords は全記録を名前順で返す。
func (r *MetaRepository) ListRecords(ctx context.Context) ([]*domain.MigrationRecord, error) {
	var models []MetaRecordModel
	if err := r.db.WithContext(ctx).Table(r.table).Order("name ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to list records",
			"operation", "list_records",
			"table", r.table,
			"error", err,
		)
		return nil, err
	}

	records := make([]*domain.MigrationRecord, len(models))
	for i := range models {
		records[i] = models[i].toDomain()
	}
	return records, nil
}

// RecordOutcome は実行結果を1行挿入する。
// スクリプトのトランザクションとは独立した文として即時にコミットされる。
// 同名の記録が既にある場合は一意制約違反となり domain.ErrStoreWrite を返す。
func (r *MetaRepository) RecordOutcome(ctx context.Context, name string, status domain.MigrationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s: invalid status %q", domain.ErrStoreWrite, name, status)
	}
	model := &MetaRecordModel{Name: name, Status: string(status)}
	if err := r.db.WithContext(ctx).Table(r.table).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to record outcome",
			"operation", "record_outcome",
			"script", name,
			"status", status,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreWrite, name, err)
	}
	return nil
}

// ReplaceOutcome は記録がなければ挿入し、あればステータスと実行日時を更新する。
// 失敗済みスクリプトを再実行する場合にのみ使用する。
func (r *MetaRepository) ReplaceOutcome(ctx context.Context, name string, status domain.MigrationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s: invalid status %q", domain.ErrStoreWrite, name, status)
	}
	model := &MetaRecordModel{Name: name, Status: string(status)}
	err := r.db.WithContext(ctx).Table(r.table).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     string(status),
			"executedAt": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(model).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to replace outcome",
			"operation", "replace_outcome",
			"script", name,
			"status", status,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreWrite, name, err)
	}
	return nil
}
