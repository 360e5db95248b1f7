package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
	"github.com/maneeq166/real-time-notification/pkg/token"
)

// meAlias はユーザー参照で呼び出し元自身を表すID。
const meAlias = "me"

// invalidCredentials はログイン失敗時のメッセージ。
// メールアドレスの未登録とパスワード不一致を区別しない。
const invalidCredentials = "メールアドレスまたはパスワードが正しくありません"

// TokenIssuer はIdentityからトークンを発行する。
type TokenIssuer interface {
	Issue(identity token.Identity) (string, error)
}

// Service はユーザー登録とログインのユースケースを提供する。
type Service struct {
	store    *Store
	password PasswordVerifier
	tokens   TokenIssuer
	now      func() time.Time
}

// NewService は新しいServiceを生成する。
func NewService(store *Store, password PasswordVerifier, tokens TokenIssuer) *Service {
	return &Service{
		store:    store,
		password: password,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Register は新しいユーザーを登録する。
// 必須項目の欠落はValidation、メールアドレスの重複はConflictを返す。
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return User{}, apperr.Validation("name, email, passwordは必須です")
	}
	if !strings.Contains(email, "@") {
		return User{}, apperr.Validation("メールアドレスの形式が不正です")
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return User{}, apperr.Conflict("このメールアドレスは既に登録されています")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, err
	}

	hashed, err := s.password.Hash(password)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    s.now().UTC(),
	}
	// 事前確認と挿入の間に同じメールアドレスが登録された場合は一意制約でConflictになる
	if err := s.store.Create(ctx, u); err != nil {
		return User{}, err
	}

	log.WithField("user_id", u.ID).Info("ユーザーを登録しました")
	return u, nil
}

// Login はメールアドレスとパスワードを照合し、IDトークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", apperr.Validation("email, passwordは必須です")
	}

	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.Unauthenticated(invalidCredentials, nil)
	}
	if err != nil {
		return "", err
	}

	if err := s.password.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, errPasswordMismatch) {
			return "", apperr.Unauthenticated(invalidCredentials, nil)
		}
		return "", err
	}

	return s.tokens.Issue(token.Identity{ID: u.ID, Name: u.Name, Email: u.Email})
}

// Get はユーザーを取得する。
// 呼び出し元以外のユーザーは存在の有無にかかわらずNotFoundを返す。
// idに "me" を指定すると呼び出し元自身を返す。
func (s *Service) Get(ctx context.Context, id string, caller token.Identity) (User, error) {
	if id == "" {
		return User{}, apperr.Validation("IDが必要です")
	}
	if id == meAlias {
		id = caller.ID
	}
	if id != caller.ID {
		return User{}, apperr.NotFound("ユーザーが見つかりません")
	}
	return s.store.GetByID(ctx, id)
}

// normalizeEmail はメールアドレスの前後の空白を除き小文字にする。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
