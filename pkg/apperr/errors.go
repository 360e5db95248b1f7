// Package apperr はサービス層が返すエラーの種別を定義する。
//
// ハンドラ層は種別に応じてHTTPステータスを決定する。サービス層は例外的な
// 制御フローを使わず、種別付きのエラー値を返すことで呼び出し側の分岐を可能にする。
package apperr

import (
	"errors"
	"net/http"
)

// Kind はエラーの種別を表す。
type Kind int

const (
	// KindInternal は分類されない内部エラー。ストレージ障害などが該当する。
	KindInternal Kind = iota
	// KindValidation は必須入力の欠落や不正な入力を表す。
	KindValidation
	// KindUnauthenticated はトークンが存在しない、不正、または期限切れであることを表す。
	KindUnauthenticated
	// KindNotFound は参照先が存在しない、または呼び出し元の所有物ではないことを表す。
	KindNotFound
	// KindConflict は一意制約の重複（登録済みメールアドレスなど）を表す。
	KindConflict
)

// String はログ出力用の種別名を返す。
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// 種別の比較に使う番兵エラー。errors.Is(err, apperr.ErrNotFound) のように使う。
var (
	ErrValidation      = &Error{Kind: KindValidation, Message: "入力が不正です"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "認証に失敗しました"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "見つかりません"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "既に存在します"}
)

// Error は種別とユーザー向けメッセージを持つエラー。
type Error struct {
	// Kind はエラーの種別。
	Kind Kind
	// Message はレスポンスにそのまま載せてよいメッセージ。
	Message string
	// Err は原因となったエラー。ログにのみ出力する。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// Is は種別が一致する場合にtrueを返す。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Validation は入力エラーを生成する。
func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// Unauthenticated は認証エラーを生成する。
func Unauthenticated(message string, cause error) error {
	return &Error{Kind: KindUnauthenticated, Message: message, Err: cause}
}

// NotFound は参照先不在エラーを生成する。
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict は重複エラーを生成する。
func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf はエラーチェーンから種別を取り出す。種別付きエラーを含まない場合はKindInternal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage はレスポンスに載せるメッセージを返す。
// 内部エラーの詳細は外部に出さない。
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "内部サーバーエラーが発生しました"
}

// HTTPStatus はエラー種別に対応するHTTPステータスコードを返す。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
