package domain

// RunState はランナーの状態を表す。
type RunState string

const (
	RunStateInit        RunState = "INIT"
	RunStateConnected   RunState = "CONNECTED"
	RunStateSchemaReady RunState = "SCHEMA_READY"
	RunStateIterating   RunState = "ITERATING"
	RunStateExecuting   RunState = "EXECUTING"
	RunStateCommitted   RunState = "COMMITTED"
	RunStateFailed      RunState = "FAILED"
	RunStateDone        RunState = "DONE"
)

// RunReport は1回の実行結果をまとめたもの。
type RunReport struct {
	RunID    string
	State    RunState
	Applied  []string
	Skipped  []string
	Outcomes []ExecutionOutcome
}
