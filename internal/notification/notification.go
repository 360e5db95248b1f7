package notification

import "time"

// Notification はユーザー宛ての通知を表す。
type Notification struct {
	// ID は通知の一意識別子（UUID）。
	ID string `json:"id"`
	// UserID は通知の所有者（宛先ユーザー）のID。作成後は変わらない。
	UserID string `json:"userId"`
	// Type は通知の種類（例: "like"）。
	Type string `json:"type"`
	// Payload は通知固有のデータ。actor.idに通知を発生させたユーザーのIDを持つ。
	Payload map[string]any `json:"payload"`
	// Read は既読状態。一度trueになるとfalseには戻らない。
	Read bool `json:"read"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"createdAt"`
}

// ActorID はペイロードに含まれるアクターのIDを返す。
func (n Notification) ActorID() string {
	actor, ok := n.Payload["actor"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := actor["id"].(string)
	return id
}
