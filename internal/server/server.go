// Package server は通知サービスのプロセスを組み立てる。
//
// データベース、IDトークン、チャネルゲートウェイ、通知サービスを生成して
// HTTPルーターに結線し、グレースフルシャットダウン付きでサーバーを起動する。
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/internal/auth"
	"github.com/maneeq166/real-time-notification/internal/channel"
	"github.com/maneeq166/real-time-notification/internal/config"
	"github.com/maneeq166/real-time-notification/internal/database"
	"github.com/maneeq166/real-time-notification/internal/notification"
	"github.com/maneeq166/real-time-notification/pkg/middleware"
	"github.com/maneeq166/real-time-notification/pkg/token"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// hub はこのプロセスのチャネル参加者の集合。
	hub *channel.Hub
	// redis はRedis中継のクライアント。中継を使わない場合はnil。
	redis *redis.Client
	// relay はRedis中継。中継を使わない場合はnil。
	relay *channel.RedisRelay
}

// NewServer は設定に従ってデータベースとRedisに接続し、新しいServerを生成する。
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	db, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	var rc *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("REDIS_URLの形式が不正です: %w", err)
		}
		rc = redis.NewClient(opts)
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = db.Close()
			_ = rc.Close()
			return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
		}
	}

	s, err := newServer(cfg, db, rc)
	if err != nil {
		_ = db.Close()
		if rc != nil {
			_ = rc.Close()
		}
		return nil, err
	}
	return s, nil
}

// newServer は接続済みのデータベースとRedisクライアントからServerを組み立てる。
// rcがnilの場合はこのプロセスのHubへ直接配信する。
func newServer(cfg config.Config, db *sql.DB, rc *redis.Client) (*Server, error) {
	tokens, err := token.NewService(cfg.JWTSecret, token.WithTTL(cfg.TokenTTL))
	if err != nil {
		return nil, err
	}

	hub := channel.NewHub()
	var publisher notification.Publisher = hub
	var relay *channel.RedisRelay
	if rc != nil {
		relay = channel.NewRedisRelay(rc, cfg.RedisChannel, hub)
		publisher = relay
	}

	users := auth.NewStore(db)
	authService := auth.NewService(users, auth.BcryptVerifier{}, tokens)
	notificationService := notification.NewService(notification.NewSQLiteStore(db), users, publisher)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger(log.StandardLogger()))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	jwtAuth := middleware.JWTAuth(tokens)
	api := router.Group("/api")
	{
		auth.NewHandler(authService).RegisterRoutes(api.Group("/auth"), jwtAuth)
		notification.NewHandler(notificationService).RegisterRoutes(api.Group("/notification", jwtAuth))
		// リアルタイム配信（トークンはハンドシェイク時に検証する）
		api.GET("/socket", channel.NewGateway(hub, tokens, cfg.AllowedOrigins).Handle())
	}

	// ヘルスチェック
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notification"})
	})

	return &Server{
		router: router,
		port:   cfg.Port,
		db:     db,
		hub:    hub,
		redis:  rc,
		relay:  relay,
	}, nil
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
// Redis中継が有効な場合は購読も開始する。
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	if s.relay != nil {
		go s.relay.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("通知サービスを起動します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("通知サービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// Close はデータベースとRedisの接続を閉じる。
func (s *Server) Close() {
	if err := s.db.Close(); err != nil {
		log.WithError(err).Warn("データベース接続のクローズに失敗")
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.WithError(err).Warn("Redis接続のクローズに失敗")
		}
	}
}
