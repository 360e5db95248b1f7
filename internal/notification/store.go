package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
)

// Store は通知の永続化を抽象化する。
// 変更操作はすべて1文のSQLで完結し、途中の状態が観測されることはない。
type Store interface {
	// Create は通知を保存する。
	Create(ctx context.Context, n Notification) error
	// ListUnreadByUser は未読通知を作成順に返す。
	ListUnreadByUser(ctx context.Context, userID string) ([]Notification, error)
	// ListByUser は既読・未読を問わず通知を作成順に返す。
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	// MarkRead はuserIDが所有する通知を既読にして返す。該当がなければNotFound。
	MarkRead(ctx context.Context, id, userID string) (Notification, error)
	// MarkAllRead はuserIDの未読通知をすべて既読にし、既読にした件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// SQLiteStore はSQLiteを使うStoreの実装。
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore は新しいSQLiteStoreを生成する。
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// columns は通知の取得で使うカラム一覧。scanNotificationの引数順と一致させる。
const columns = `id, user_id, type, payload, is_read, created_at`

// Create は通知を保存する。
func (s *SQLiteStore) Create(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("ペイロードのシリアライズに失敗: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, payload, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, string(payload), boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("通知の保存に失敗: %w", err)
	}
	return nil
}

// ListUnreadByUser は未読通知を作成順に返す。
func (s *SQLiteStore) ListUnreadByUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.list(ctx,
		`SELECT `+columns+` FROM notifications WHERE user_id = ? AND is_read = 0 ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
}

// ListByUser は既読・未読を問わず通知を作成順に返す。
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.list(ctx,
		`SELECT `+columns+` FROM notifications WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
}

// MarkRead はuserIDが所有する通知を既読にして返す。
// 存在しない通知と他ユーザーの通知はどちらもNotFoundになる。
// 既読の通知に対しても成功する。
func (s *SQLiteStore) MarkRead(ctx context.Context, id, userID string) (Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ? RETURNING `+columns,
		id, userID,
	)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, apperr.NotFound("通知が見つかりません")
	}
	if err != nil {
		return Notification{}, fmt.Errorf("通知の既読処理に失敗: %w", err)
	}
	return n, nil
}

// MarkAllRead はuserIDの未読通知をすべて既読にし、既読にした件数を返す。
func (s *SQLiteStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("全通知の既読処理に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	return affected, nil
}

// list は複数行の通知を取得する共通処理。
func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("通知の読み取りに失敗: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知一覧の読み取りに失敗: %w", err)
	}
	return notifications, nil
}

// scanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

// scanNotification は1行を通知に変換する。
func scanNotification(row scanner) (Notification, error) {
	var (
		n       Notification
		payload string
		isRead  int64
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &payload, &isRead, timeScanner{&n.CreatedAt}); err != nil {
		return Notification{}, err
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&n.Payload); err != nil {
		return Notification{}, fmt.Errorf("ペイロードのデシリアライズに失敗: %w", err)
	}
	n.Read = isRead != 0
	return n, nil
}

// sqliteTimeFormats はTEXTで保存された日時の解析に使う形式。
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// timeScanner は日時カラムをtime.Timeに読み込む。
// RETURNING句の結果は宣言型が伝わらず文字列で返ることがあるため、両方を受け付ける。
type timeScanner struct {
	dest *time.Time
}

// Scan はsql.Scannerを実装する。
func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.dest = v
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	default:
		return fmt.Errorf("日時として読み込めない値です: %T", src)
	}
}

func (s timeScanner) parse(v string) error {
	for _, layout := range sqliteTimeFormats {
		if t, err := time.Parse(layout, v); err == nil {
			*s.dest = t
			return nil
		}
	}
	return fmt.Errorf("日時の形式が不正です: %q", v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
