package notification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/maneeq166/real-time-notification/pkg/middleware"
	"github.com/maneeq166/real-time-notification/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter はテスト用の通知APIルーターを構築する。
// JWTミドルウェアの代わりにX-User-IDヘッダーからIdentityを設定する。
func setupTestRouter(t *testing.T, userIDs ...string) (*gin.Engine, *fakePublisher) {
	t.Helper()

	s, publisher := setupTestService(t, userIDs...)
	router := gin.New()
	group := router.Group("/api/notification")
	group.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			middleware.SetIdentity(c, token.Identity{ID: userID})
		}
		c.Next()
	})
	NewHandler(s).RegisterRoutes(group)
	return router, publisher
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// TestLikeScenario はユーザーU1への「いいね」通知の作成から一括既読までの流れを検証する。
func TestLikeScenario(t *testing.T) {
	t.Parallel()
	router, publisher := setupTestRouter(t, "U1", "A1")

	w := doRequest(router, http.MethodPost, "/api/notification", "A1", map[string]any{
		"type":    "like",
		"userId":  "U1",
		"payload": map[string]any{"actor": map[string]any{"id": "A1"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("作成のステータスコード: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	created := parseJSON(t, w)["notification"].(map[string]any)
	if created["read"] != false {
		t.Errorf("read: got %v, want false", created["read"])
	}
	if created["userId"] != "U1" || created["type"] != "like" {
		t.Errorf("notification = %v", created)
	}
	if len(publisher.messages()) != 1 {
		t.Errorf("配信件数 = %d, want 1", len(publisher.messages()))
	}

	w = doRequest(router, http.MethodGet, "/api/notification", "U1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("未読一覧のステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseJSON(t, w)["length"]; got != float64(1) {
		t.Errorf("length: got %v, want 1", got)
	}

	w = doRequest(router, http.MethodPatch, "/api/notification/all-notification", "U1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("一括既読のステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if got := parseJSON(t, w)["updatedCount"]; got != float64(1) {
		t.Errorf("updatedCount: got %v, want 1", got)
	}

	w = doRequest(router, http.MethodGet, "/api/notification", "U1", nil)
	result := parseJSON(t, w)
	if result["length"] != float64(0) {
		t.Errorf("length: got %v, want 0", result["length"])
	}
	if unread, ok := result["unreadNotifications"].([]any); !ok || len(unread) != 0 {
		t.Errorf("unreadNotifications: got %v, want []", result["unreadNotifications"])
	}
}

// TestHandleCreate は通知作成ハンドラのエラー応答を検証する。
func TestHandleCreate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "typeが欠落している場合は400",
			body:       map[string]any{"userId": "U1", "payload": map[string]any{}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "payloadが欠落している場合は400",
			body:       map[string]any{"type": "like", "userId": "U1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "payloadがオブジェクトでない場合は400",
			body:       map[string]any{"type": "like", "userId": "U1", "payload": "text"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "宛先ユーザーが存在しない場合は404",
			body:       map[string]any{"type": "like", "userId": "ghost", "payload": map[string]any{}},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, _ := setupTestRouter(t, "U1", "A1")

			w := doRequest(router, http.MethodPost, "/api/notification", "A1", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード: got %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if _, ok := parseJSON(t, w)["error"]; !ok {
				t.Error("errorが含まれていません")
			}
		})
	}

	t.Run("payloadの大きな整数が丸められずに保存されること", func(t *testing.T) {
		t.Parallel()
		router, _ := setupTestRouter(t, "U1", "A1")

		body := json.RawMessage(`{"type":"like","userId":"U1","payload":{"postId":12345678901234567890}}`)
		w := doRequest(router, http.MethodPost, "/api/notification", "A1", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"postId":12345678901234567890`) {
			t.Errorf("作成レスポンスのpostIdが丸められています: %s", w.Body.String())
		}

		w = doRequest(router, http.MethodGet, "/api/notification/all", "U1", nil)
		if !strings.Contains(w.Body.String(), `"postId":12345678901234567890`) {
			t.Errorf("一覧レスポンスのpostIdが丸められています: %s", w.Body.String())
		}
	})

	t.Run("Identityがない場合は401", func(t *testing.T) {
		t.Parallel()
		router, _ := setupTestRouter(t, "U1")

		w := doRequest(router, http.MethodPost, "/api/notification", "", map[string]any{
			"type": "like", "userId": "U1", "payload": map[string]any{},
		})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestHandleMarkRead は既読化ハンドラを検証する。
func TestHandleMarkRead(t *testing.T) {
	t.Parallel()

	router, _ := setupTestRouter(t, "user-a", "user-b")
	w := doRequest(router, http.MethodPost, "/api/notification", "user-b", map[string]any{
		"type": "comment", "userId": "user-a", "payload": map[string]any{"text": "こんにちは"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("作成に失敗: status=%d, body=%s", w.Code, w.Body.String())
	}
	notificationID := parseJSON(t, w)["notification"].(map[string]any)["id"].(string)

	t.Run("他ユーザーの通知は404", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/api/notification", "user-b", map[string]string{"notificationId": notificationID})
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("notificationIdが空の場合は400", func(t *testing.T) {
		w := doRequest(router, http.MethodPatch, "/api/notification", "user-a", map[string]string{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("所有者は既読にでき2回目も200", func(t *testing.T) {
		for i := range 2 {
			w := doRequest(router, http.MethodPatch, "/api/notification", "user-a", map[string]string{"notificationId": notificationID})
			if w.Code != http.StatusOK {
				t.Fatalf("%d回目のステータスコード: got %d, want %d", i+1, w.Code, http.StatusOK)
			}
			n := parseJSON(t, w)["notification"].(map[string]any)
			if n["read"] != true {
				t.Errorf("%d回目: read = %v, want true", i+1, n["read"])
			}
		}
	})

	t.Run("既読の通知は一覧にのみ残ること", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/notification/all", "user-a", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if got := parseJSON(t, w)["length"]; got != float64(1) {
			t.Errorf("length: got %v, want 1", got)
		}

		w = doRequest(router, http.MethodGet, "/api/notification", "user-a", nil)
		if got := parseJSON(t, w)["length"]; got != float64(0) {
			t.Errorf("未読length: got %v, want 0", got)
		}
	})
}
