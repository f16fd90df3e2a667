// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dml-runner/internal/audit"
	"dml-runner/internal/domain"
)

var tracer = otel.Tracer("dml-runner/usecase")

// MetaStore は実行記録を管理するリポジトリのインターフェース。
type MetaStore interface {
	EnsureSchema(ctx context.Context) error
	ListAppliedNames(ctx context.Context) ([]string, error)
	ListRecords(ctx context.Context) ([]*domain.MigrationRecord, error)
	RecordOutcome(ctx context.Context, name string, status domain.MigrationStatus) error
	ReplaceOutcome(ctx context.Context, name string, status domain.MigrationStatus) error
}

// MigrationSource はスクリプトの供給元のインターフェース。
type MigrationSource interface {
	ListScripts(ctx context.Context) ([]*domain.MigrationScript, error)
	ReadScript(ctx context.Context, script *domain.MigrationScript) error
}

// StatementSplitter はスクリプト本文をステートメントに分割する。
type StatementSplitter interface {
	Split(body string) []string
}

// Connection はスクリプト実行用のトランザクションを開始する。
type Connection interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction は1スクリプト分のトランザクション。
type Transaction interface {
	Exec(ctx context.Context, statement string) error
	Commit() error
	Rollback() error
}

// Options はMigrationServiceの動作を切り替える。
type Options struct {
	// RetryFailed が true の場合、FAILURE のみ記録されたスクリプトを再実行する。
	// 既定では記録があるスクリプトはステータスに関わらずスキップする。
	RetryFailed bool
}

// MigrationService はスクリプト適用のビジネスロジックを提供する。
type MigrationService struct {
	store    MetaStore
	source   MigrationSource
	splitter StatementSplitter
	conn     Connection
	opts     Options
}

// NewMigrationService は新しいMigrationServiceを生成する。
func NewMigrationService(store MetaStore, source MigrationSource, splitter StatementSplitter, conn Connection, opts Options) *MigrationService {
	return &MigrationService{
		store:    store,
		source:   source,
		splitter: splitter,
		conn:     conn,
		opts:     opts,
	}
}

// ApplyMigrations は未実行のスクリプトをファイル名順に実行する。
// いずれかのスクリプトが失敗した時点で FAILURE を記録し、残りは実行せずに終了する。
func (s *MigrationService) ApplyMigrations(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID: uuid.New().String(),
		State: domain.RunStateConnected,
	}
	log := slog.Default().With("run_id", report.RunID)

	ctx, span := tracer.Start(ctx, "ApplyMigrations", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
	))
	defer span.End()

	fail := func(err error) (*domain.RunReport, error) {
		report.State = domain.RunStateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		log.ErrorContext(ctx, "failed to ensure meta table",
			"operation", "apply_migrations",
			"error", err,
		)
		return fail(err)
	}
	report.State = domain.RunStateSchemaReady

	skip, retry, err := s.skipSet(ctx)
	if err != nil {
		log.ErrorContext(ctx, "failed to read meta table",
			"operation", "apply_migrations",
			"error", err,
		)
		return fail(fmt.Errorf("failed to read meta table: %w", err))
	}

	scripts, err := s.source.ListScripts(ctx)
	if err != nil {
		log.ErrorContext(ctx, "failed to list scripts",
			"operation", "apply_migrations",
			"error", err,
		)
		return fail(err)
	}
	report.State = domain.RunStateIterating

	for _, script := range scripts {
		log.DebugContext(ctx, "script found", "script", script.Name, "ordinal", script.Ordinal)

		if _, ok := skip[script.Name]; ok {
			log.DebugContext(ctx, "script already executed, skip", "script", script.Name)
			report.Skipped = append(report.Skipped, script.Name)
			continue
		}

		_, retried := retry[script.Name]
		report.State = domain.RunStateExecuting
		outcome, err := s.applyScript(ctx, log, script)
		if err != nil {
			// 読み込み・接続エラーはステートメントを実行していないため記録しない
			log.ErrorContext(ctx, "failed to prepare script",
				"operation", "apply_migrations",
				"script", script.Name,
				"error", err,
			)
			return fail(err)
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if err := s.record(ctx, script.Name, outcome.Status, retried); err != nil {
			log.ErrorContext(ctx, "failed to record outcome",
				"operation", "apply_migrations",
				"script", script.Name,
				"status", outcome.Status,
				"error", err,
			)
			if outcome.Err != nil {
				err = errors.Join(outcome.Err, err)
			}
			return fail(err)
		}
		audit.WriteAuditLog(ctx, "apply", script.Name, string(outcome.Status), outcome.Statements)

		if outcome.Status == domain.MigrationStatusFailure {
			log.ErrorContext(ctx, "script failed, halting run",
				"operation", "apply_migrations",
				"script", script.Name,
				"error", outcome.Err,
			)
			return fail(fmt.Errorf("%w: %s: %w", domain.ErrMigrationFailed, script.Name, outcome.Err))
		}

		log.InfoContext(ctx, "script executed", "script", script.Name, "statements", outcome.Statements)
		report.Applied = append(report.Applied, script.Name)
		report.State = domain.RunStateCommitted
	}

	report.State = domain.RunStateDone
	span.SetAttributes(
		attribute.Int("applied", len(report.Applied)),
		attribute.Int("skipped", len(report.Skipped)),
	)
	log.InfoContext(ctx, "run completed", "applied", len(report.Applied), "skipped", len(report.Skipped))
	return report, nil
}

// skipSet はスキップ対象と再実行対象の名前集合を返す。
func (s *MigrationService) skipSet(ctx context.Context) (skip, retry map[string]struct{}, err error) {
	skip = make(map[string]struct{})
	retry = make(map[string]struct{})

	if !s.opts.RetryFailed {
		names, err := s.store.ListAppliedNames(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, name := range names {
			skip[name] = struct{}{}
		}
		return skip, retry, nil
	}

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, record := range records {
		if record.Status == domain.MigrationStatusFailure {
			retry[record.Name] = struct{}{}
			continue
		}
		skip[record.Name] = struct{}{}
	}
	return skip, retry, nil
}

// applyScript は1スクリプトを1トランザクションで実行する。
// ステートメントが失敗した場合はロールバックし、FAILURE の結果を返す。
// 本文の読み込みやトランザクション開始に失敗した場合は error を返す。
func (s *MigrationService) applyScript(ctx context.Context, log *slog.Logger, script *domain.MigrationScript) (domain.ExecutionOutcome, error) {
	ctx, span := tracer.Start(ctx, "ApplyScript", trace.WithAttributes(
		attribute.String("script", script.Name),
		attribute.Int("ordinal", script.Ordinal),
	))
	defer span.End()

	outcome := domain.ExecutionOutcome{Script: script.Name, Status: domain.MigrationStatusFailure}
	failed := func(err error) domain.ExecutionOutcome {
		outcome.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome
	}

	if err := s.source.ReadScript(ctx, script); err != nil {
		return failed(err), err
	}
	log.DebugContext(ctx, "script to execute", "script", script.Name, "body", script.Body)

	statements := s.splitter.Split(script.Body)
	span.SetAttributes(attribute.Int("statements", len(statements)))

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		err = fmt.Errorf("%w: begin transaction: %v", domain.ErrConnection, err)
		return failed(err), err
	}

	for i, statement := range statements {
		log.DebugContext(ctx, "executing statement", "script", script.Name, "index", i+1, "statement", statement)
		if err := tx.Exec(ctx, statement); err != nil {
			log.ErrorContext(ctx, "error executing statement",
				"operation", "apply_script",
				"script", script.Name,
				"index", i+1,
				"statement", statement,
				"error", err,
			)
			s.rollback(ctx, log, tx, script.Name)
			return failed(&domain.StatementError{Script: script.Name, Index: i + 1, Statement: statement, Err: err}), nil
		}
		outcome.Statements++
	}

	if err := tx.Commit(); err != nil {
		log.ErrorContext(ctx, "failed to commit script",
			"operation", "apply_script",
			"script", script.Name,
			"error", err,
		)
		s.rollback(ctx, log, tx, script.Name)
		return failed(fmt.Errorf("%w: %s: commit: %v", domain.ErrStatementExecution, script.Name, err)), nil
	}

	outcome.Status = domain.MigrationStatusSuccess
	return outcome, nil
}

func (s *MigrationService) rollback(ctx context.Context, log *slog.Logger, tx Transaction, name string) {
	if err := tx.Rollback(); err != nil {
		log.ErrorContext(ctx, "failed to rollback script",
			"operation", "apply_script",
			"script", name,
			"error", err,
		)
	}
}

// record は実行結果をメタテーブルに記録する。
func (s *MigrationService) record(ctx context.Context, name string, status domain.MigrationStatus, retried bool) error {
	if retried {
		return s.store.ReplaceOutcome(ctx, name, status)
	}
	return s.store.RecordOutcome(ctx, name, status)
}

// GetMigrationStatus はスクリプトと実行記録を突き合わせた状況を返す。
// ファイルが存在しない記録は Missing として末尾に含める。
func (s *MigrationService) GetMigrationStatus(ctx context.Context) ([]*domain.MigrationView, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	scripts, err := s.source.ListScripts(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch records",
			"operation", "get_migration_status",
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	recordMap := make(map[string]*domain.MigrationRecord, len(records))
	for _, record := range records {
		recordMap[record.Name] = record
	}

	views := make([]*domain.MigrationView, 0, len(scripts))
	for _, script := range scripts {
		view := &domain.MigrationView{Name: script.Name, Status: domain.MigrationStatusPending}
		if record, ok := recordMap[script.Name]; ok {
			executedAt := record.ExecutedAt
			view.Status = record.Status
			view.ExecutedAt = &executedAt
			delete(recordMap, script.Name)
		}
		views = append(views, view)
	}

	// records は名前順なので、残りも名前順で追加される
	for _, record := range records {
		if _, ok := recordMap[record.Name]; !ok {
			continue
		}
		executedAt := record.ExecutedAt
		views = append(views, &domain.MigrationView{
			Name:       record.Name,
			Status:     record.Status,
			ExecutedAt: &executedAt,
			Missing:    true,
		})
	}

	return views, nil
}
