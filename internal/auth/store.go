package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
)

// User は登録済みユーザーを表す。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string
	// Name は表示名。
	Name string
	// Email はメールアドレス。
	Email string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
	// CreatedAt は登録日時。
	CreatedAt time.Time
}

// Store はユーザーの永続化を行う。
type Store struct {
	db *sql.DB
}

// NewStore はSQLiteを使うStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create はユーザーを保存する。メールアドレスが重複する場合はConflictを返す。
func (s *Store) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("このメールアドレスは既に登録されています")
		}
		return fmt.Errorf("ユーザーの保存に失敗: %w", err)
	}
	return nil
}

// GetByID はIDでユーザーを取得する。存在しない場合はNotFoundを返す。
func (s *Store) GetByID(ctx context.Context, id string) (User, error) {
	return s.getOne(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetByEmail はメールアドレスでユーザーを取得する。存在しない場合はNotFoundを返す。
func (s *Store) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

// Exists はユーザーが存在するかを返す。
// 通知サービスが宛先ユーザーの存在確認に使う。
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ユーザーの存在確認に失敗: %w", err)
	}
	return true, nil
}

// getOne は1行のユーザーを取得する共通処理。
func (s *Store) getOne(ctx context.Context, query string, arg string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("ユーザーが見つかりません")
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// isUniqueViolation はSQLiteの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
