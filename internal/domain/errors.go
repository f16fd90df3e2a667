package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig は必須の設定値が不足・不正な場合のエラー。
	ErrConfig = errors.New("invalid configuration")

	// ErrConnection はデータベースに接続できない場合のエラー。
	ErrConnection = errors.New("database connection failed")

	// ErrSourceRead はスクリプトディレクトリまたはファイルを読めない場合のエラー。
	ErrSourceRead = errors.New("failed to read migration source")

	// ErrStatementExecution はSQLステートメントの実行に失敗した場合のエラー。
	ErrStatementExecution = errors.New("statement execution failed")

	// ErrStoreWrite はメタテーブルへの記録に失敗した場合のエラー。
	ErrStoreWrite = errors.New("failed to record migration outcome")

	// ErrMigrationFailed はマイグレーション実行全体が失敗した場合のエラー。
	ErrMigrationFailed = errors.New("migration failed")
)

// StatementError は失敗したステートメントの情報を保持する。
type StatementError struct {
	Script    string
	Index     int // 1始まり
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: statement %d (%s): %v", e.Script, e.Index, e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// Is は ErrStatementExecution との比較を可能にする。
func (e *StatementError) Is(target error) bool {
	return target == ErrStatementExecution
}
