package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New は新しいメッセージを生成する。
// dataにはメッセージ固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(messageType Type, data any) (Message, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("メッセージデータのシリアライズに失敗: %w", err)
	}

	return Message{
		ID:         uuid.New().String(),
		Type:       messageType,
		Data:       jsonData,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// DecodeData はメッセージのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](m Message) (*T, error) {
	var data T
	if err := json.Unmarshal(m.Data, &data); err != nil {
		return nil, fmt.Errorf("メッセージデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}

// EncodeEnvelope は宛先付きメッセージをJSONにシリアライズする。
func EncodeEnvelope(userID string, m Message) ([]byte, error) {
	b, err := json.Marshal(Envelope{UserID: userID, Message: m})
	if err != nil {
		return nil, fmt.Errorf("エンベロープのシリアライズに失敗: %w", err)
	}
	return b, nil
}

// DecodeEnvelope はJSONから宛先付きメッセージを復元する。
// 宛先またはメッセージ種類が欠けている場合はエラーを返す。
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("エンベロープのデシリアライズに失敗: %w", err)
	}
	if env.UserID == "" || env.Message.Type == "" {
		return Envelope{}, errors.New("エンベロープの宛先または種類が空です")
	}
	return env, nil
}
