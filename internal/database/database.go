// Package database はSQLiteデータベースへの接続とスキーマ適用を提供する。
//
// ユーザーと通知は同じデータベースに保存する。スキーマはembedした
// マイグレーションファイルで管理し、起動時に未適用分を適用する。
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/maneeq166/real-time-notification/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pragmas は接続ごとに設定するSQLiteのプラグマ。
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// timeFormat は時刻をSQLite標準の文字列形式で書き込む指定。
const timeFormat = "_time_format=sqlite"

// DSN はファイルパスからmodernc.org/sqlite用の接続文字列を組み立てる。
func DSN(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	params = append(params, timeFormat)
	return "file:" + path + "?" + strings.Join(params, "&")
}

// Open は指定パスのSQLiteデータベースを開き、マイグレーションを適用する。
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベース疎通確認に失敗: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory はインメモリSQLiteデータベースを開き、マイグレーションを適用する。
// インメモリDBは接続ごとに別物になるため、接続数を1本に固定する。テストで使う。
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)&"+timeFormat)
	if err != nil {
		return nil, fmt.Errorf("インメモリDBの作成に失敗: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate は未適用のマイグレーションを適用する。
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return nil
}
