package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
)

// errPasswordMismatch はパスワードが一致しないことを表す。
var errPasswordMismatch = errors.New("パスワードが一致しません")

// PasswordVerifier はパスワードのハッシュ化と照合を行う。
type PasswordVerifier interface {
	// Hash は平文のパスワードをハッシュ化する。
	Hash(password string) (string, error)
	// Compare はハッシュと平文が一致しない場合にエラーを返す。
	Compare(hash, password string) error
}

// BcryptVerifier はbcryptを使うPasswordVerifier。
type BcryptVerifier struct {
	// Cost はbcryptのコスト。0の場合はbcrypt.DefaultCost。
	Cost int
}

// Hash はパスワードをbcryptでハッシュ化する。
// bcryptの上限である72バイトを超えるパスワードはValidationを返す。
func (b BcryptVerifier) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("パスワードは72バイト以内で指定してください")
	}
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return string(hashed), nil
}

// Compare はbcryptハッシュと平文パスワードを照合する。
func (b BcryptVerifier) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errPasswordMismatch
		}
		return fmt.Errorf("パスワードの照合に失敗: %w", err)
	}
	return nil
}
