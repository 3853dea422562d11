package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wirdly/wirdbot/config"
)

// TelegramClient sends messages through the Bot API. Sends are throttled by
// a token bucket to stay under Telegram's global per-bot rate limit.
type TelegramClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewTelegramClient builds a client from configuration.
func NewTelegramClient(cfg config.AppConfig) *TelegramClient {
	perSecond := cfg.SendPerSecond
	if perSecond <= 0 {
		perSecond = 25
	}
	return &TelegramClient{
		baseURL: cfg.APIBaseURL,
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

type sendMessageRequest struct {
	ChatID      int64       `json:"chat_id"`
	Text        string      `json:"text"`
	ParseMode   string      `json:"parse_mode,omitempty"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage delivers an HTML-formatted message to a chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
}

// SendMessageWithKeyboard delivers a message with a one-time reply keyboard,
// used for the language selection prompt.
func (c *TelegramClient) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, buttons [][]string) error {
	keyboard := make([][]map[string]string, 0, len(buttons))
	for _, row := range buttons {
		r := make([]map[string]string, 0, len(row))
		for _, label := range row {
			r = append(r, map[string]string{"text": label})
		}
		keyboard = append(keyboard, r)
	}
	markup := map[string]interface{}{
		"keyboard":          keyboard,
		"one_time_keyboard": true,
		"resize_keyboard":   true,
	}
	return c.send(ctx, sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML", ReplyMarkup: markup})
}

func (c *TelegramClient) send(ctx context.Context, payload sendMessageRequest) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("telegram response status %d: unparseable body", resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram api error %d: %s", parsed.ErrorCode, parsed.Description)
	}
	return nil
}
