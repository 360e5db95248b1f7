// Package event はプッシュチャネルで配信するメッセージの型を定義する。
//
// WebSocketクライアントへ送るメッセージと、Redisを経由してプロセス間で
// 中継するメッセージは同じエンベロープを使う。
package event

import (
	"encoding/json"
	"time"
)

// Type はメッセージの種類を表す。
type Type string

const (
	// TypeNotificationCreated は新しい通知が作成されたことを表す。
	TypeNotificationCreated Type = "notification.created"
	// TypeChannelJoined は接続がユーザーのチャネルに参加したことを表す。
	// 接続直後に1度だけ送信する。
	TypeChannelJoined Type = "channel.joined"
)

// Message はプッシュチャネルで配信される不変のメッセージ。
type Message struct {
	// ID はメッセージの一意識別子（UUID）。
	ID string `json:"id"`
	// Type はメッセージの種類。
	Type Type `json:"type"`
	// Data はメッセージ固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// OccurredAt はメッセージが生成された日時。
	OccurredAt time.Time `json:"occurredAt"`
}

// Envelope はプロセス間中継で使う宛先付きのメッセージ。
type Envelope struct {
	// UserID は配信先チャネルのキー（ユーザーID）。
	UserID string `json:"userId"`
	// Message は配信するメッセージ。
	Message Message `json:"message"`
}

// ChannelJoinedData はChannelJoinedメッセージのデータ。
type ChannelJoinedData struct {
	// UserID は参加したチャネルのユーザーID。
	UserID string `json:"userId"`
}
