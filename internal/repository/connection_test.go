package repository

import (
	"context"
	"testing"
)

func countRows(t *testing.T, conn *Connection, table string) int64 {
	t.Helper()
	var count int64
	if err := conn.db.Table(table).Count(&count).Error; err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return count
}

func TestConnection_Commit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	if err := db.Exec("CREATE TABLE t (id INTEGER)").Error; err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	conn := NewConnection(db)

	tx, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Exec(ctx, "INSERT INTO t VALUES (1)"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if err := tx.Exec(ctx, "INSERT INTO t VALUES (2)"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if got := countRows(t, conn, "t"); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}
}

func TestConnection_Rollback(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	if err := db.Exec("CREATE TABLE t (id INTEGER)").Error; err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	conn := NewConnection(db)

	tx, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Exec(ctx, "INSERT INTO t VALUES (1)"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if err := tx.Exec(ctx, "INSERT INTO missing VALUES (1)"); err == nil {
		t.Fatal("expected error for missing table, got nil")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if got := countRows(t, conn, "t"); got != 0 {
		t.Errorf("expected 0 rows after rollback, got %d", got)
	}
}
