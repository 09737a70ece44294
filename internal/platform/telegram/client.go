// Package telegram is a minimal Bot API client covering the invoice and
// webhook surface of the Stars payment rail.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// StarsCurrency is the Bot API currency code for Telegram Stars invoices.
const StarsCurrency = "XTR"

// Client is the REST client for the Telegram Bot API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Bot API client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: "https://api.telegram.org",
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL overrides the API root, used in tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GetMe returns the bot's own user record, verifying the token.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return User{}, fmt.Errorf("telegram: get me: %w", err)
	}
	return me, nil
}

// SetWebhook registers the webhook URL updates are delivered to.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	req := map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message", "pre_checkout_query"},
	}
	if err := c.call(ctx, "setWebhook", req, nil); err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	return nil
}

// CreateInvoiceLink creates a Stars invoice and returns its shareable link.
// The payload is echoed back in the successful_payment update.
func (c *Client) CreateInvoiceLink(ctx context.Context, title, description, payload string, amount int64) (string, error) {
	req := map[string]any{
		"title":       title,
		"description": description,
		"payload":     payload,
		"currency":    StarsCurrency,
		"prices":      []LabeledPrice{{Label: title, Amount: amount}},
	}

	var link string
	if err := c.call(ctx, "createInvoiceLink", req, &link); err != nil {
		return "", fmt.Errorf("telegram: create invoice link: %w", err)
	}
	return link, nil
}

// SendInvoice sends a Stars invoice directly into a chat.
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, amount int64) error {
	req := map[string]any{
		"chat_id":     chatID,
		"title":       title,
		"description": description,
		"payload":     payload,
		"currency":    StarsCurrency,
		"prices":      []LabeledPrice{{Label: title, Amount: amount}},
	}
	if err := c.call(ctx, "sendInvoice", req, nil); err != nil {
		return fmt.Errorf("telegram: send invoice: %w", err)
	}
	return nil
}

// AnswerPreCheckoutQuery confirms or rejects a pre-checkout query. The Bot
// API requires an answer within ten seconds or the payment fails.
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	req := map[string]any{
		"pre_checkout_query_id": queryID,
		"ok":                    ok,
	}
	if !ok && errorMessage != "" {
		req["error_message"] = errorMessage
	}
	if err := c.call(ctx, "answerPreCheckoutQuery", req, nil); err != nil {
		return fmt.Errorf("telegram: answer pre-checkout %s: %w", queryID, err)
	}
	return nil
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	req := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if err := c.call(ctx, "sendMessage", req, nil); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// call performs one Bot API method invocation and decodes the result into
// out when out is non-nil.
func (c *Client) call(ctx context.Context, method string, reqBody any, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.OK {
		if envelope.ErrorCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w", envelope.Description, domain.ErrRateLimited)
		}
		return fmt.Errorf("API error %d: %s", envelope.ErrorCode, envelope.Description)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
