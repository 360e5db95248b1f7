package channel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/maneeq166/real-time-notification/pkg/event"
	"github.com/maneeq166/real-time-notification/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret-key-for-unit-tests"

// setupTestGateway はGatewayを公開するテスト用HTTPサーバーを起動する。
func setupTestGateway(t *testing.T, opts ...Option) (*Hub, *token.Service, string) {
	t.Helper()

	tokens, err := token.NewService(testSecret)
	if err != nil {
		t.Fatalf("トークンサービスの作成に失敗: %v", err)
	}

	hub := NewHub()
	router := gin.New()
	router.GET("/api/socket", NewGateway(hub, tokens, []string{"http://allowed.example"}, opts...).Handle())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/socket"
}

// issueToken はテスト用のトークンを発行する。
func issueToken(t *testing.T, tokens *token.Service, userID string) string {
	t.Helper()
	tokenString, err := tokens.Issue(token.Identity{ID: userID, Name: userID, Email: userID + "@example.com"})
	if err != nil {
		t.Fatalf("トークンの発行に失敗: %v", err)
	}
	return tokenString
}

// dial はWebSocketで接続し、テスト終了時に切断する。
func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("接続に失敗: %v (status=%d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage は次のメッセージを読み込む。
func readMessage(t *testing.T, conn *websocket.Conn) event.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg event.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("メッセージの読み込みに失敗: %v", err)
	}
	return msg
}

// waitMembers は接続数が期待値になるまで待つ。
func waitMembers(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Members(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Members(%s) = %d, want %d", userID, hub.Members(userID), want)
}

// TestGatewayHandshake はハンドシェイク時のトークン検証を検証する。
func TestGatewayHandshake(t *testing.T) {
	t.Parallel()

	t.Run("トークンがない場合は400でアップグレードされないこと", func(t *testing.T) {
		t.Parallel()
		hub, _, url := setupTestGateway(t)

		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatal("接続が確立されました")
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Errorf("レスポンス = %v, want 400", resp)
		}
		if hub.Members("") != 0 {
			t.Error("拒否された接続がチャネルに参加しています")
		}
	})

	t.Run("無効なトークンは401", func(t *testing.T) {
		t.Parallel()
		_, _, url := setupTestGateway(t)

		_, resp, err := websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
		if err == nil {
			t.Fatal("接続が確立されました")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("レスポンス = %v, want 401", resp)
		}
	})

	t.Run("許可されていないOriginは拒否されること", func(t *testing.T) {
		t.Parallel()
		_, tokens, url := setupTestGateway(t)

		header := http.Header{"Origin": []string{"http://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(url+"?token="+issueToken(t, tokens, "user-1"), header)
		if err == nil {
			t.Fatal("接続が確立されました")
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("レスポンス = %v, want 403", resp)
		}
	})

	t.Run("クエリパラメータのトークンで参加し参加メッセージを受信すること", func(t *testing.T) {
		t.Parallel()
		hub, tokens, url := setupTestGateway(t)

		conn := dial(t, url+"?token="+issueToken(t, tokens, "user-1"), nil)
		msg := readMessage(t, conn)
		if msg.Type != event.TypeChannelJoined {
			t.Fatalf("Type = %q, want %q", msg.Type, event.TypeChannelJoined)
		}
		data, err := event.DecodeData[event.ChannelJoinedData](msg)
		if err != nil || data.UserID != "user-1" {
			t.Errorf("DecodeData() = (%+v, %v)", data, err)
		}
		waitMembers(t, hub, "user-1", 1)
	})

	t.Run("AuthorizationヘッダーのBearerトークンでも参加できること", func(t *testing.T) {
		t.Parallel()
		hub, tokens, url := setupTestGateway(t)

		header := http.Header{
			"Authorization": []string{"Bearer " + issueToken(t, tokens, "user-1")},
			"Origin":        []string{"http://allowed.example"},
		}
		conn := dial(t, url, header)
		readMessage(t, conn)
		waitMembers(t, hub, "user-1", 1)
	})
}

// TestGatewayDelivery は参加中の接続へのプッシュ配信と切断を検証する。
func TestGatewayDelivery(t *testing.T) {
	t.Parallel()

	t.Run("同じユーザーの複数接続に配信されること", func(t *testing.T) {
		t.Parallel()
		hub, tokens, url := setupTestGateway(t)
		tokenString := issueToken(t, tokens, "user-1")

		first := dial(t, url+"?token="+tokenString, nil)
		second := dial(t, url+"?token="+tokenString, nil)
		readMessage(t, first)
		readMessage(t, second)
		waitMembers(t, hub, "user-1", 2)

		msg, err := event.New(event.TypeNotificationCreated, map[string]string{"id": "notif-1"})
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if err := hub.Publish(t.Context(), "user-1", msg); err != nil {
			t.Fatalf("Publish()でエラーが発生: %v", err)
		}

		for _, conn := range []*websocket.Conn{first, second} {
			got := readMessage(t, conn)
			if got.ID != msg.ID || got.Type != event.TypeNotificationCreated {
				t.Errorf("受信 = %+v", got)
			}
		}
	})

	t.Run("切断するとチャネルから外れること", func(t *testing.T) {
		t.Parallel()
		hub, tokens, url := setupTestGateway(t)

		conn := dial(t, url+"?token="+issueToken(t, tokens, "user-1"), nil)
		readMessage(t, conn)
		waitMembers(t, hub, "user-1", 1)

		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		waitMembers(t, hub, "user-1", 0)
	})

	t.Run("Pongを返す接続はPong待ち時間を過ぎても維持されること", func(t *testing.T) {
		t.Parallel()
		hub, tokens, url := setupTestGateway(t, WithHeartbeat(20*time.Millisecond, 100*time.Millisecond))

		conn := dial(t, url+"?token="+issueToken(t, tokens, "user-1"), nil)
		// 読み込み中はデフォルトのPingハンドラがPongを返す
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		waitMembers(t, hub, "user-1", 1)
		time.Sleep(300 * time.Millisecond)
		if got := hub.Members("user-1"); got != 1 {
			t.Errorf("Members(user-1) = %d, want 1", got)
		}
	})

	t.Run("Pongを返さない接続は切断されること", func(t *testing.T) {
		t.Parallel()
		hub, tokens, url := setupTestGateway(t, WithHeartbeat(20*time.Millisecond, 100*time.Millisecond))

		// 読み込みを行わないためPongが返らない
		dial(t, url+"?token="+issueToken(t, tokens, "user-1"), nil)
		waitMembers(t, hub, "user-1", 1)
		waitMembers(t, hub, "user-1", 0)
	})
}
