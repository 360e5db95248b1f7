package notification

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maneeq166/real-time-notification/pkg/middleware"
)

// Handler は通知APIのHTTPハンドラ。
type Handler struct {
	service *Service
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes は通知APIのルーティングを設定する。
// groupには認証ミドルウェアを適用済みであること。
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	// 通知作成
	group.POST("", h.handleCreate())
	// 未読通知一覧取得
	group.GET("", h.handleListUnread())
	// 通知一覧取得
	group.GET("/all", h.handleList())
	// 通知を既読にする
	group.PATCH("", h.handleMarkRead())
	// 全通知を既読にする
	group.PATCH("/all-notification", h.handleMarkAllRead())
}

// createRequest は通知作成リクエストのJSON構造。
type createRequest struct {
	// Type は通知の種類。
	Type string `json:"type"`
	// UserID は宛先ユーザーのID。
	UserID string `json:"userId"`
	// Payload は通知固有のデータ。
	Payload map[string]any `json:"payload"`
}

// markReadRequest は既読化リクエストのJSON構造。
type markReadRequest struct {
	// NotificationID は既読にする通知のID。
	NotificationID string `json:"notificationId"`
}

// handleCreate は通知作成ハンドラ。認証済みユーザーがアクターになる。
func (h *Handler) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		// payloadの大きな整数をfloat64に丸めないようjson.Numberで受ける
		var req createRequest
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		n, err := h.service.Create(c.Request.Context(), CreateInput{
			Type:         req.Type,
			TargetUserID: req.UserID,
			Payload:      req.Payload,
		}, identity.ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":      "通知を作成しました",
			"notification": n,
		})
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (h *Handler) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := h.service.ListUnread(c.Request.Context(), identity.ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":             "未読通知を取得しました",
			"unreadNotifications": notifications,
			"length":              len(notifications),
		})
	}
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (h *Handler) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := h.service.List(c.Request.Context(), identity.ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "通知一覧を取得しました",
			"notifications": notifications,
			"length":        len(notifications),
		})
	}
}

// handleMarkRead は指定された通知を既読にするハンドラ。
func (h *Handler) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req markReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		n, err := h.service.MarkRead(c.Request.Context(), req.NotificationID, identity.ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "通知を既読にしました",
			"notification": n,
		})
	}
}

// handleMarkAllRead は認証済みユーザーの全通知を既読にするハンドラ。
func (h *Handler) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		count, err := h.service.MarkAllRead(c.Request.Context(), identity.ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "全通知を既読にしました",
			"updatedCount": count,
		})
	}
}
