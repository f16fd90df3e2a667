// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// MigrationStatus はスクリプトの実行結果を表す。
type MigrationStatus string

const (
	// MigrationStatusSuccess は全ステートメントが正常に実行されたことを表す。
	MigrationStatusSuccess MigrationStatus = "SUCCESS"
	// MigrationStatusFailure はいずれかのステートメントが失敗したことを表す。
	MigrationStatusFailure MigrationStatus = "FAILURE"
	// MigrationStatusPending はメタテーブルに記録がないことを表す（表示専用、保存しない）。
	MigrationStatusPending MigrationStatus = "PENDING"
)

// Valid はメタテーブルに保存可能なステータスかを返す。
func (s MigrationStatus) Valid() bool {
	return s == MigrationStatusSuccess || s == MigrationStatusFailure
}

// MigrationRecord はメタテーブルの1行を表す。
type MigrationRecord struct {
	Name       string
	ExecutedAt time.Time
	Status     MigrationStatus
}

// MigrationScript は実行候補のSQLスクリプトを表す。
// Body は実行直前にのみ読み込まれる。
type MigrationScript struct {
	Name    string // ファイル名（拡張子を含む）
	Ordinal int    // ソート後の順位（0始まり）
	Path    string // ソース内のパス
	Body    string
}

// ExecutionOutcome は1スクリプトの実行結果を表す。
type ExecutionOutcome struct {
	Script     string
	Status     MigrationStatus
	Statements int // 実行に成功したステートメント数
	Err        error
}

// MigrationView はステータス表示用にスクリプトと記録を突き合わせた結果。
type MigrationView struct {
	Name       string
	Status     MigrationStatus
	ExecutedAt *time.Time // 未実行の場合はnil
	Missing    bool       // 記録はあるがファイルが存在しない
}
