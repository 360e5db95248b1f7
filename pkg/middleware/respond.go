package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
)

// RespondError はエラー種別に応じたステータスコードとメッセージを返す。
// 内部エラーは詳細をログにのみ出力し、レスポンスには汎用メッセージを返す。
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("リクエストの処理に失敗")
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
