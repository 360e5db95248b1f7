package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/event"
)

// DefaultRelayChannel はRedis Pub/Subのデフォルトのチャネル名。
const DefaultRelayChannel = "notifications"

// defaultRetryDelay は購読が切れた後に再接続するまでの待ち時間。
const defaultRetryDelay = time.Second

// RedisRelay はRedis Pub/Subを介して全プロセスのHubへメッセージを中継する。
// Publishは宛先付きメッセージをRedisに発行し、Runで購読したメッセージを
// このプロセスのHubに参加している接続へ配信する。
type RedisRelay struct {
	rc         *redis.Client
	channel    string
	hub        *Hub
	retryDelay time.Duration
}

// NewRedisRelay は新しいRedisRelayを生成する。channelが空の場合はDefaultRelayChannelを使う。
func NewRedisRelay(rc *redis.Client, channel string, hub *Hub) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		rc:         rc,
		channel:    channel,
		hub:        hub,
		retryDelay: defaultRetryDelay,
	}
}

// Publish は宛先付きメッセージをRedisチャネルに発行する。
func (r *RedisRelay) Publish(ctx context.Context, userID string, msg event.Message) error {
	payload, err := event.EncodeEnvelope(userID, msg)
	if err != nil {
		return err
	}
	if err := r.rc.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("メッセージの発行に失敗: %w", err)
	}
	return nil
}

// Run はctxがキャンセルされるまでRedisチャネルを購読し、受信したメッセージをHubへ配信する。
// 購読が切れた場合は再接続する。
func (r *RedisRelay) Run(ctx context.Context) {
	logger := log.WithField("channel", r.channel)
	for {
		r.consume(ctx, logger)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Pub/Subチャネルが閉じられたため再接続します")

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retryDelay):
		}
	}
}

// consume は1回の購読でメッセージを受信し続ける。
// ctxのキャンセルまたはチャネルのクローズで戻る。
func (r *RedisRelay) consume(ctx context.Context, logger *log.Entry) {
	sub := r.rc.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := event.DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				logger.WithError(err).Error("中継メッセージの解析に失敗")
				continue
			}
			if err := r.hub.Publish(ctx, env.UserID, env.Message); err != nil {
				logger.WithError(err).WithField("user_id", env.UserID).Error("中継メッセージの配信に失敗")
			}
		}
	}
}
