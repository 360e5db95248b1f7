// Package httpclient は通知サービスのREST APIを呼び出すクライアントを提供する。
//
// ユーザー登録・ログインで得たIDトークンをBearerトークンとして付与し、
// 通知の作成・一覧取得・既読化を行う。エンドツーエンドテストや
// 他のサービスから通知を作成する際に使用する。
package httpclient
