package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const telegramBaseURL = "https://api.telegram.org"

// stopCallback is the callback data of the inline "Stop Predictions" button.
const stopCallback = "stop_predictions"

// Reply is an outgoing message. StopButton attaches the inline button that
// unsubscribes the chat from scheduled predictions.
type Reply struct {
	Text       string
	StopButton bool
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken  string
	BaseURL   string
	Client    *http.Client
	RetryBase time.Duration
	log       zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, proxyURL string, log zerolog.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		BaseURL:  telegramBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		RetryBase: time.Second,
		log:       log.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, name)
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type sendMessage struct {
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode"`
	ReplyMarkup *struct {
		InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
	} `json:"reply_markup,omitempty"`
}

// Send sends a message to chatID.
func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, r Reply) error {
	payload := sendMessage{ChatID: chatID, Text: r.Text, ParseMode: "HTML"}
	if r.StopButton {
		payload.ReplyMarkup = &struct {
			InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
		}{InlineKeyboard: [][]inlineButton{{{Text: "Stop Predictions", CallbackData: stopCallback}}}}
	}
	return t.post(ctx, "sendMessage", payload)
}

func (t *TelegramNotifier) post(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, chatID int64, r Reply, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, chatID, r)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.RetryBase * time.Duration(1<<uint(i))
		t.log.Warn().Err(err).Int64("chat_id", chatID).Int("attempt", i+1).Dur("backoff", backoff).Msg("send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
