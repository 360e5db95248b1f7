// Package auth はユーザー登録・ログイン・ユーザー参照を提供する。
//
// ログインに成功するとIDトークンを発行する。以降のリクエストとWebSocket接続は
// このトークンで認証する。パスワードはbcryptでハッシュ化して保存し、
// 平文は保持しない。
package auth
