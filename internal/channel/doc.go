// Package channel はユーザーごとのリアルタイム接続を管理するチャネルゲートウェイを提供する。
//
// クライアントはIDトークンを添えてWebSocketで接続し、トークンのユーザーIDを
// キーとするチャネルに参加する。1ユーザーが複数の接続を持つ場合は全接続に配信する。
// 配信はベストエフォートで、送信バッファが詰まった接続へのメッセージは破棄する。
//
// 複数プロセスで動かす場合はRedisRelayを通してRedis Pub/Sub経由で配信し、
// 各プロセスが自身に接続しているメンバーへ届ける。
package channel
