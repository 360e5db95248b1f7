package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maneeq166/real-time-notification/pkg/middleware"
)

// Handler は認証APIのHTTPハンドラ。
type Handler struct {
	service *Service
}

// NewHandler は新しいHandlerを生成する。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes は認証APIのルーティングを設定する。
// authMiddlewareはユーザー参照にのみ適用する。
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	group.POST("/register", h.handleRegister())
	group.POST("/login", h.handleLogin())
	group.GET("/:id", authMiddleware, h.handleGet())
}

// userResponse はユーザーのJSONレスポンス構造。パスワードハッシュは含めない。
type userResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Name は表示名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// CreatedAt は登録日時（RFC3339形式）。
	CreatedAt string `json:"createdAt"`
}

// toUserResponse はUserをJSONレスポンスに変換する。
func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister はユーザー登録ハンドラ。
func (h *Handler) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		u, err := h.service.Register(c.Request.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "登録しました",
			"user":    toUserResponse(u),
		})
	}
}

// handleLogin はログインハンドラ。
func (h *Handler) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		tokenString, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "ログインしました",
			"token":   tokenString,
		})
	}
}

// handleGet はユーザー参照ハンドラ。
func (h *Handler) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		u, err := h.service.Get(c.Request.Context(), c.Param("id"), identity)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "ユーザーが見つかりました",
			"user":    toUserResponse(u),
		})
	}
}
