package telegramrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Koliesnichenko/library-service/util/httpx"
)

// Repo is the notification sink. Delivery is best effort; callers log
// failures and move on.
type Repo interface {
	Send(ctx context.Context, text string) error
}

type httpRepo struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewHTTP(botToken, chatID string) Repo {
	return &httpRepo{botToken: botToken, chatID: chatID, client: httpx.Client()}
}

func (r *httpRepo) Send(ctx context.Context, text string) error {
	if r.botToken == "" || r.chatID == "" {
		return errors.New("telegram: bot token or chat id not configured")
	}

	body := map[string]any{
		"chat_id":    r.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	b, _ := json.Marshal(body)

	u := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", r.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendMessage failed: %s", resp.Status)
	}
	return nil
}
