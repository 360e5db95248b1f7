package notification

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
	"github.com/maneeq166/real-time-notification/pkg/event"
)

// defaultPublishTimeout はプッシュ配信1回あたりのタイムアウト。
const defaultPublishTimeout = 5 * time.Second

// UserLookup はユーザーの存在確認を行う。
type UserLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Publisher はユーザーの接続へメッセージをプッシュする。
type Publisher interface {
	Publish(ctx context.Context, userID string, msg event.Message) error
}

// CreateInput は通知作成の入力。
type CreateInput struct {
	// Type は通知の種類。
	Type string
	// TargetUserID は宛先ユーザーのID。
	TargetUserID string
	// Payload は通知固有のデータ。actor.idはサービスが設定する。
	Payload map[string]any
}

// Service は通知のユースケースを提供する。
// すべての操作は認証済みユーザーのIDを引数で受け取る。
type Service struct {
	store          Store
	users          UserLookup
	publisher      Publisher
	now            func() time.Time
	publishTimeout time.Duration
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublishTimeout はプッシュ配信のタイムアウトを変更する。
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTimeout = d }
}

// NewService は新しいServiceを生成する。
// publisherがnilの場合はプッシュ配信を行わない。
func NewService(store Store, users UserLookup, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		store:          store,
		users:          users,
		publisher:      publisher,
		now:            time.Now,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create はactorIDを発生元として通知を作成し、宛先ユーザーへプッシュする。
// ペイロードのactor.idにはactorIDを設定する。
// プッシュ配信の失敗はログに記録するだけで作成結果には影響しない。
func (s *Service) Create(ctx context.Context, in CreateInput, actorID string) (Notification, error) {
	if in.Type == "" || in.TargetUserID == "" || in.Payload == nil {
		return Notification{}, apperr.Validation("type, userId, payloadは必須です")
	}

	n := Notification{
		ID:        uuid.New().String(),
		UserID:    in.TargetUserID,
		Type:      in.Type,
		Payload:   withActor(in.Payload, actorID),
		Read:      false,
		CreatedAt: s.now().UTC(),
	}
	if n.ActorID() == "" {
		return Notification{}, apperr.Validation("payload.actor.idが必要です")
	}

	if err := s.requireUser(ctx, in.TargetUserID); err != nil {
		return Notification{}, err
	}

	if err := s.store.Create(ctx, n); err != nil {
		return Notification{}, err
	}

	log.WithFields(log.Fields{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"actor_id":        actorID,
		"type":            n.Type,
	}).Info("通知を作成しました")

	s.publish(ctx, n)
	return n, nil
}

// ListUnread はuserIDの未読通知を作成順に返す。
func (s *Service) ListUnread(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, apperr.Validation("ユーザーIDが必要です")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListUnreadByUser(ctx, userID)
}

// List はuserIDの通知を既読・未読を問わず作成順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, apperr.Validation("ユーザーIDが必要です")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, userID)
}

// MarkRead はuserIDが所有する通知を既読にする。
// 他ユーザーの通知は存在しない通知と区別せずNotFoundを返す。
func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) (Notification, error) {
	if notificationID == "" {
		return Notification{}, apperr.Validation("notificationIdが必要です")
	}
	if userID == "" {
		return Notification{}, apperr.Validation("ユーザーIDが必要です")
	}
	return s.store.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead はuserIDの未読通知をすべて既読にし、既読にした件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperr.Validation("ユーザーIDが必要です")
	}
	return s.store.MarkAllRead(ctx, userID)
}

// requireUser はユーザーが存在しない場合にNotFoundを返す。
func (s *Service) requireUser(ctx context.Context, userID string) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("ユーザーが見つかりません")
	}
	return nil
}

// publish は作成した通知を宛先ユーザーの接続へ配信する。
// リクエストのキャンセルに巻き込まれないよう、切り離したコンテキストで実行する。
func (s *Service) publish(ctx context.Context, n Notification) {
	if s.publisher == nil {
		return
	}

	logger := log.WithFields(log.Fields{"notification_id": n.ID, "user_id": n.UserID})

	msg, err := event.New(event.TypeNotificationCreated, n)
	if err != nil {
		logger.WithError(err).Error("プッシュメッセージの生成に失敗")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, n.UserID, msg); err != nil {
		logger.WithError(err).Warn("通知のプッシュ配信に失敗")
	}
}

// withActor はペイロードを複製し、actor.idにactorIDを設定する。
// 既存のactorがオブジェクトであれば他のフィールドは保持する。
func withActor(payload map[string]any, actorID string) map[string]any {
	out := maps.Clone(payload)

	actor := map[string]any{}
	if existing, ok := payload["actor"].(map[string]any); ok {
		actor = maps.Clone(existing)
	}
	if actorID != "" {
		actor["id"] = actorID
	}
	out["actor"] = actor
	return out
}
