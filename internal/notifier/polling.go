package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CommandHandler is called for every command received from chatID.
type CommandHandler func(ctx context.Context, chatID int64, command string) Reply

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
// The inline stop button is delivered to handler as "/stop".
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("telegram polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn().Err(err).Msg("polling request failed")
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			chatID, text := t.command(ctx, update)
			if text == "" {
				continue
			}
			t.log.Info().Int64("chat_id", chatID).Str("command", text).Msg("received command")
			reply := handler(ctx, chatID, text)
			if reply.Text != "" {
				if err := t.Send(ctx, chatID, reply); err != nil {
					t.log.Error().Err(err).Int64("chat_id", chatID).Msg("send reply")
				}
			}
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.method("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}

	var result struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates not ok: %s", string(body))
	}
	return result.Result, nil
}

// command extracts the chat and command of an update; text is empty when
// the update carries nothing to handle.
func (t *TelegramNotifier) command(ctx context.Context, u telegramUpdate) (int64, string) {
	if cq := u.CallbackQuery; cq != nil {
		if err := t.post(ctx, "answerCallbackQuery", map[string]string{"callback_query_id": cq.ID}); err != nil {
			t.log.Warn().Err(err).Msg("answer callback query")
		}
		if cq.Data == stopCallback && cq.Message != nil {
			return cq.Message.Chat.ID, "/stop"
		}
		return 0, ""
	}
	if u.Message == nil {
		return 0, ""
	}
	return u.Message.Chat.ID, strings.TrimSpace(u.Message.Text)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
