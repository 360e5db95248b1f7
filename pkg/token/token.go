// Package token は署名付きIDトークンの発行と検証を提供する。
//
// トークンはHS256で署名したJWTで、ユーザーのID・名前・メールアドレスを持つ。
// 検証はストレージを参照しないため、得られる情報はトークン発行時点のものになる。
// REST APIのBearer認証とWebSocketのハンドシェイクの双方で同じ検証を使う。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
)

// DefaultTTL はトークンの既定の有効期間（7日）。
const DefaultTTL = 7 * 24 * time.Hour

// issuer はトークンの発行者クレーム。
const issuer = "real-time-notification"

// Identity は検証済みトークンから得られる利用者の情報。
type Identity struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Name はユーザーの表示名。
	Name string `json:"name"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// Claims はJWTのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はユーザーID。
	UserID string `json:"id"`
	// Name はユーザー名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
}

// Verifier はトークンを検証してIdentityを返す。
// HTTPミドルウェアとWebSocketゲートウェイが依存する。
type Verifier interface {
	Verify(tokenString string) (Identity, error)
}

// Service はトークンの発行と検証を行う。
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithTTL はトークンの有効期間を設定する。
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock は現在時刻の取得方法を差し替える。テストで使う。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService は署名用シークレットからServiceを生成する。
func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("署名用シークレットが空です")
	}
	s := &Service{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue はIdentityを埋め込んだ署名付きトークンを発行する。
func (s *Service) Issue(identity Identity) (string, error) {
	if identity.ID == "" {
		return "", apperr.Validation("ユーザーIDが必要です")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   identity.ID,
		},
		UserID: identity.ID,
		Name:   identity.Name,
		Email:  identity.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、埋め込まれたIdentityを返す。
// 失敗はすべてapperr.KindUnauthenticatedになる。
func (s *Service) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, apperr.Unauthenticated("トークンがありません", nil)
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	parsed, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, apperr.Unauthenticated("トークンが無効または期限切れです", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return Identity{}, apperr.Unauthenticated("トークンが無効または期限切れです", nil)
	}

	return Identity{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}
