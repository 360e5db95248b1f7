package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
	"github.com/maneeq166/real-time-notification/pkg/token"
)

// contextKeyIdentity は検証済みIdentityをGinコンテキストに格納するキー。
const contextKeyIdentity = "identity"

// BearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが無い、または "Bearer " で始まらない場合はfalseを返す。
func BearerToken(header string) (string, bool) {
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// ヘッダーの欠落・形式不正は検証前に400、トークン自体が無効な場合は401を返す。
// 検証に成功した場合、コンテキストにIdentityを設定する。
func JWTAuth(verifier token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Bearerトークンがありません",
			})
			return
		}

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": apperr.PublicMessage(err),
			})
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// SetIdentity はGinコンテキストにIdentityを設定する。
func SetIdentity(c *gin.Context, identity token.Identity) {
	c.Set(contextKeyIdentity, identity)
}

// CurrentIdentity はGinコンテキストからIdentityを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func CurrentIdentity(c *gin.Context) (token.Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return token.Identity{}, false
	}
	identity, ok := v.(token.Identity)
	if !ok || identity.ID == "" {
		return token.Identity{}, false
	}
	return identity, true
}
