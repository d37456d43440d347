package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fleetdocs/pkg/config"
)

// Telegram Bot API wire types, limited to the fields the bot consumes.

type TelegramUpdate struct {
	UpdateID      int64                  `json:"update_id"`
	Message       *TelegramMessage       `json:"message"`
	CallbackQuery *TelegramCallbackQuery `json:"callback_query"`
}

type TelegramMessage struct {
	MessageID int64                    `json:"message_id"`
	From      *TelegramUser            `json:"from"`
	Chat      TelegramChat             `json:"chat"`
	Text      string                   `json:"text"`
	Photo     []TelegramPhotoSize      `json:"photo"`
	Document  *TelegramDocumentPayload `json:"document"`
}

type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type TelegramChat struct {
	ID int64 `json:"id"`
}

type TelegramPhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type TelegramDocumentPayload struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

type TelegramCallbackQuery struct {
	ID      string           `json:"id"`
	From    *TelegramUser    `json:"from"`
	Message *TelegramMessage `json:"message"`
	Data    string           `json:"data"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type telegramFile struct {
	FilePath string `json:"file_path"`
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// TelegramClient is a minimal Bot API client. Only the handful of methods
// the conversation flow needs are implemented.
type TelegramClient struct {
	httpClient *http.Client
	baseURL    string
	fileURL    string
	config     *config.TelegramConfig
	logger     *zap.Logger
}

func NewTelegramClient(cfg *config.TelegramConfig, logger *zap.Logger) *TelegramClient {
	return &TelegramClient{
		// Long-poll requests block up to PollTimeout server-side.
		httpClient: &http.Client{Timeout: cfg.PollTimeout + 30*time.Second},
		baseURL:    "https://api.telegram.org/bot" + cfg.BotToken,
		fileURL:    "https://api.telegram.org/file/bot" + cfg.BotToken,
		config:     cfg,
		logger:     logger,
	}
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("%s failed: %s", method, decoded.Description)
	}
	return decoded.Result, nil
}

// SendMessage sends text to a chat, optionally with an inline keyboard.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	if _, err := c.call(ctx, "sendMessage", payload); err != nil {
		return err
	}
	return nil
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing a progress indicator.
func (c *TelegramClient) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	_, err := c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID})
	return err
}

// DownloadFile resolves a file_id and fetches its bytes.
func (c *TelegramClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	result, err := c.call(ctx, "getFile", map[string]any{"file_id": fileID})
	if err != nil {
		return nil, err
	}

	var file telegramFile
	if err := json.Unmarshal(result, &file); err != nil {
		return nil, fmt.Errorf("decode getFile result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+file.FilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GetUpdates long-polls for incoming updates past the given offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64) ([]TelegramUpdate, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(c.config.PollTimeout.Seconds())))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create getUpdates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var decoded telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode getUpdates response: %w", err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("getUpdates failed: %s", decoded.Description)
	}

	var updates []TelegramUpdate
	if err := json.Unmarshal(decoded.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}
