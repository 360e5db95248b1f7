package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/event"
)

// member はチャネルに参加している1接続。
type member struct {
	// userID は接続を認証したユーザーのID。
	userID string
	// send は書き込みゴルーチンへ渡す送信キュー。
	send chan []byte
}

// newMember は指定サイズの送信バッファを持つmemberを生成する。
func newMember(userID string, bufferSize int) *member {
	return &member{userID: userID, send: make(chan []byte, bufferSize)}
}

// Hub はユーザーIDごとの接続の集合を管理する。
// プロセスに1つ生成し、HTTPルーターと通知サービスの両方に渡す。
type Hub struct {
	mu      sync.RWMutex
	members map[string]map[*member]struct{}
}

// NewHub は新しいHubを生成する。
func NewHub() *Hub {
	return &Hub{members: make(map[string]map[*member]struct{})}
}

// join は接続をユーザーのチャネルに参加させる。
func (h *Hub) join(m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.members[m.userID]
	if !ok {
		set = make(map[*member]struct{})
		h.members[m.userID] = set
	}
	set[m] = struct{}{}
}

// leave は接続をチャネルから外し、送信キューを閉じる。
// 2回目以降の呼び出しは何もしない。
func (h *Hub) leave(m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.members[m.userID]
	if !ok {
		return
	}
	if _, ok := set[m]; !ok {
		return
	}
	delete(set, m)
	if len(set) == 0 {
		delete(h.members, m.userID)
	}
	close(m.send)
}

// Members はユーザーのチャネルに参加している接続数を返す。
func (h *Hub) Members(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members[userID])
}

// Publish はユーザーのチャネルに参加している全接続へメッセージを配信する。
// 参加者がいない場合も成功する。
func (h *Hub) Publish(_ context.Context, userID string, msg event.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("プッシュメッセージのシリアライズに失敗: %w", err)
	}

	delivered, dropped := h.deliver(userID, payload)
	log.WithFields(log.Fields{
		"user_id":   userID,
		"type":      msg.Type,
		"delivered": delivered,
		"dropped":   dropped,
	}).Debug("メッセージを配信しました")
	return nil
}

// deliver は送信キューへの投入をブロックせずに行う。
// キューが満杯の接続にはメッセージを破棄する。
func (h *Hub) deliver(userID string, payload []byte) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for m := range h.members[userID] {
		select {
		case m.send <- payload:
			delivered++
		default:
			dropped++
			log.WithField("user_id", userID).Warn("送信バッファが満杯のためメッセージを破棄しました")
		}
	}
	return delivered, dropped
}
