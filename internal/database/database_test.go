package database

import (
	"path/filepath"
	"strings"
	"testing"
)

// TestDSN は接続文字列の組み立てを検証する。
func TestDSN(t *testing.T) {
	t.Parallel()

	got := DSN("/data/notification.db")
	if !strings.HasPrefix(got, "file:/data/notification.db?") {
		t.Errorf("DSN() = %q", got)
	}
	for _, p := range []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)", "_time_format=sqlite"} {
		if !strings.Contains(got, p) {
			t.Errorf("DSN()に%sが含まれていません: %q", p, got)
		}
	}
}

// TestOpen はファイルDBの作成とスキーマ適用を検証する。
func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(t.Context(), path)
	if err != nil {
		t.Fatalf("Open()でエラーが発生: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{"users", "notifications", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("テーブル%sが作成されていません: %v", table, err)
		}
	}

	// 同じファイルを開き直してもマイグレーションは再適用されない
	db2, err := Open(t.Context(), path)
	if err != nil {
		t.Fatalf("2回目のOpen()でエラーが発生: %v", err)
	}
	t.Cleanup(func() { db2.Close() })

	var count int
	if err := db2.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("件数取得に失敗: %v", err)
	}
	if count != 2 {
		t.Errorf("適用済みマイグレーション数 = %d, want 2", count)
	}
}

// TestOpenMemoryForeignKeys は外部キー制約が有効であることを検証する。
func TestOpenMemoryForeignKeys(t *testing.T) {
	t.Parallel()

	db, err := OpenMemory(t.Context())
	if err != nil {
		t.Fatalf("OpenMemory()でエラーが発生: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(
		"INSERT INTO notifications (id, user_id, type, payload, created_at) VALUES ('n-1', 'no-such-user', 'like', '{}', datetime('now'))",
	)
	if err == nil {
		t.Fatal("存在しないユーザー宛ての通知が挿入できてしまいました")
	}
}
