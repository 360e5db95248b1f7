// Package notification は通知サービスの内部実装を提供する。
//
// 認証済みユーザー（アクター）が他のユーザー宛てに通知を作成し、
// 宛先ユーザーは未読通知の一覧取得と既読管理を行う。既読化は所有者に
// 限定され、所有者の判定は更新クエリの条件に含める。作成した通知は
// チャネルゲートウェイ経由で宛先ユーザーの接続へプッシュする。
package notification
