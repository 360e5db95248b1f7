package channel

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/maneeq166/real-time-notification/pkg/apperr"
	"github.com/maneeq166/real-time-notification/pkg/event"
	"github.com/maneeq166/real-time-notification/pkg/middleware"
	"github.com/maneeq166/real-time-notification/pkg/token"
)

const (
	// defaultPingInterval はサーバーからPingを送る間隔。
	defaultPingInterval = 30 * time.Second
	// defaultPongWait はPongを待つ時間。この間に何も受信しなければ切断する。
	defaultPongWait = 60 * time.Second
	// defaultWriteWait は1回の書き込みのタイムアウト。
	defaultWriteWait = 10 * time.Second
	// defaultSendBuffer は接続ごとの送信バッファのメッセージ数。
	defaultSendBuffer = 16
	// maxMessageSize はクライアントから受け付けるメッセージの最大バイト数。
	maxMessageSize = 4096
)

// Gateway はWebSocket接続のハンドシェイクとチャネルへの参加を行う。
type Gateway struct {
	hub          *Hub
	verifier     token.Verifier
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration
	sendBuffer   int
}

// Option はGatewayの設定を変更する。
type Option func(*Gateway)

// WithHeartbeat はPing間隔とPong待ち時間を変更する。
func WithHeartbeat(pingInterval, pongWait time.Duration) Option {
	return func(g *Gateway) {
		g.pingInterval = pingInterval
		g.pongWait = pongWait
	}
}

// WithSendBuffer は接続ごとの送信バッファのサイズを変更する。1未満は無視する。
func WithSendBuffer(size int) Option {
	return func(g *Gateway) {
		if size > 0 {
			g.sendBuffer = size
		}
	}
}

// NewGateway は新しいGatewayを生成する。
// allowedOriginsはブラウザからの接続で許可するOrigin。"*" で全許可。
func NewGateway(hub *Hub, verifier token.Verifier, allowedOrigins []string, opts ...Option) *Gateway {
	g := &Gateway{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.OriginAllowed(allowedOrigins),
		},
		pingInterval: defaultPingInterval,
		pongWait:     defaultPongWait,
		writeWait:    defaultWriteWait,
		sendBuffer:   defaultSendBuffer,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle はWebSocket接続を受け付けるGinハンドラを返す。
// トークンはクエリパラメータtokenか、AuthorizationヘッダーのBearerトークンで渡す。
// トークンが無ければ400、無効であれば401を返し、アップグレードは行わない。
func (g *Gateway) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := handshakeToken(c)
		if tokenString == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "トークンがありません"})
			return
		}

		identity, err := g.verifier.Verify(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.PublicMessage(err)})
			return
		}

		conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgraderがエラーレスポンスを書き込み済み
			log.WithError(err).WithField("user_id", identity.ID).Warn("WebSocketへのアップグレードに失敗")
			return
		}

		g.serve(conn, identity)
	}
}

// handshakeToken はハンドシェイクリクエストからトークンを取り出す。
func handshakeToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	t, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	return t
}

// serve は接続をチャネルに参加させ、切断されるまで読み込みを続ける。
func (g *Gateway) serve(conn *websocket.Conn, identity token.Identity) {
	m := newMember(identity.ID, g.sendBuffer)
	g.hub.join(m)

	logger := log.WithField("user_id", identity.ID)
	logger.Info("チャネルに参加しました")

	if payload, err := joinedMessage(identity.ID); err != nil {
		logger.WithError(err).Error("参加メッセージの生成に失敗")
	} else {
		select {
		case m.send <- payload:
		default:
		}
	}

	go g.writePump(conn, m)
	g.readPump(conn, m)

	logger.Info("チャネルから退出しました")
}

// joinedMessage はチャネル参加を通知するメッセージを生成する。
func joinedMessage(userID string) ([]byte, error) {
	msg, err := event.New(event.TypeChannelJoined, event.ChannelJoinedData{UserID: userID})
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// readPump はクライアントからのフレームを読み捨て、Pongで読み込み期限を延長する。
// 読み込みが失敗したら接続をチャネルから外す。
func (g *Gateway) readPump(conn *websocket.Conn, m *member) {
	defer func() {
		g.hub.leave(m)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("user_id", m.userID).Debug("WebSocket接続が切断されました")
			}
			return
		}
	}
}

// writePump は送信キューのメッセージを1フレームずつ書き込み、定期的にPingを送る。
// 送信キューが閉じられたらCloseフレームを送って終了する。
func (g *Gateway) writePump(conn *websocket.Conn, m *member) {
	ticker := time.NewTicker(g.pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-m.send:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
