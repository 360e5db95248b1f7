package httpclient

import (
	"context"
	"time"
)

// User はAPIが返すユーザー。
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification はAPIが返す通知。
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CreateNotificationRequest は通知作成リクエスト。
type CreateNotificationRequest struct {
	// Type は通知の種類。
	Type string `json:"type"`
	// UserID は宛先ユーザーのID。
	UserID string `json:"userId"`
	// Payload は通知固有のデータ。actor.idはサーバーがトークンのユーザーIDで設定する。
	Payload map[string]any `json:"payload"`
}

// Register はユーザーを登録する。
func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.PostJSON(ctx, "/api/auth/register", body, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Login はログインしてIDトークンを返す。
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.PostJSON(ctx, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// GetUser はユーザーを取得する。idに "me" を指定するとトークンのユーザーを返す。
func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.GetJSON(ctx, "/api/auth/"+id, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// CreateNotification は通知を作成する。
func (c *Client) CreateNotification(ctx context.Context, req CreateNotificationRequest) (Notification, error) {
	var resp struct {
		Notification Notification `json:"notification"`
	}
	if err := c.PostJSON(ctx, "/api/notification", req, &resp); err != nil {
		return Notification{}, err
	}
	return resp.Notification, nil
}

// ListUnread はトークンのユーザーの未読通知を返す。
func (c *Client) ListUnread(ctx context.Context) ([]Notification, error) {
	var resp struct {
		UnreadNotifications []Notification `json:"unreadNotifications"`
	}
	if err := c.GetJSON(ctx, "/api/notification", &resp); err != nil {
		return nil, err
	}
	return resp.UnreadNotifications, nil
}

// ListAll はトークンのユーザーの通知を既読・未読を問わず返す。
func (c *Client) ListAll(ctx context.Context) ([]Notification, error) {
	var resp struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.GetJSON(ctx, "/api/notification/all", &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// MarkRead は通知を既読にする。
func (c *Client) MarkRead(ctx context.Context, notificationID string) (Notification, error) {
	var resp struct {
		Notification Notification `json:"notification"`
	}
	body := map[string]string{"notificationId": notificationID}
	if err := c.PatchJSON(ctx, "/api/notification", body, &resp); err != nil {
		return Notification{}, err
	}
	return resp.Notification, nil
}

// MarkAllRead は未読通知をすべて既読にし、既読にした件数を返す。
func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var resp struct {
		UpdatedCount int64 `json:"updatedCount"`
	}
	if err := c.PatchJSON(ctx, "/api/notification/all-notification", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UpdatedCount, nil
}
