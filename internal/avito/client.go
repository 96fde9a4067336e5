package avito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mixelka/avitorelay/pkg/models"
)

// maxMessageLength is the Avito messenger limit; longer texts are
// truncated with an ellipsis marker.
const maxMessageLength = 1990

// Client is an Avito messenger API client with a per-credential token
// cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tokens     *tokenCache
}

// Config for the Avito client
type Config struct {
	BaseURL string        // e.g., https://api.avito.ru
	Timeout time.Duration // per-request timeout
}

// NewClient creates a new Avito API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "avito_client"),
		tokens: newTokenCache(),
	}
}

type chatsResponse struct {
	Chats []models.Conversation `json:"chats"`
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// ListChats returns one page of the account's conversations, ordered by
// the API most-recent-activity first.
func (c *Client) ListChats(ctx context.Context, token, profileID string, limit, offset int, unreadOnly bool) ([]models.Conversation, error) {
	endpoint := fmt.Sprintf("%s/messenger/v2/accounts/%s/chats", c.baseURL, url.PathEscape(profileID))

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if unreadOnly {
		params.Set("unread_only", "true")
	}

	var parsed chatsResponse
	if err := c.getJSON(ctx, endpoint+"?"+params.Encode(), token, &parsed); err != nil {
		return nil, fmt.Errorf("failed to list chats for profile %s: %w", profileID, err)
	}
	return parsed.Chats, nil
}

// ListMessages returns every message of one conversation.
func (c *Client) ListMessages(ctx context.Context, token, profileID, chatID string) ([]models.Message, error) {
	endpoint := fmt.Sprintf("%s/messenger/v3/accounts/%s/chats/%s/messages",
		c.baseURL, url.PathEscape(profileID), url.PathEscape(chatID))

	var parsed messagesResponse
	if err := c.getJSON(ctx, endpoint, token, &parsed); err != nil {
		return nil, fmt.Errorf("failed to list messages for chat %s: %w", chatID, err)
	}
	return parsed.Messages, nil
}

type sendMessageRequest struct {
	Message sendMessageText `json:"message"`
	Type    string          `json:"type"`
}

type sendMessageText struct {
	Text string `json:"text"`
}

// SendMessage sends a text message into a conversation. Oversized texts
// are truncated to the API limit.
func (c *Client) SendMessage(ctx context.Context, token, profileID, chatID, text string) error {
	if runes := []rune(text); len(runes) > maxMessageLength {
		c.logger.Warn("truncating oversized message", "chat_id", chatID, "length", len(runes))
		text = string(runes[:maxMessageLength]) + "..."
	}

	endpoint := fmt.Sprintf("%s/messenger/v1/accounts/%s/chats/%s/messages",
		c.baseURL, url.PathEscape(profileID), url.PathEscape(chatID))

	body, err := json.Marshal(sendMessageRequest{
		Message: sendMessageText{Text: text},
		Type:    "text",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to chat %s: %w", chatID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send message API error: %s (status %d)", string(respBody), resp.StatusCode)
	}
	return nil
}

// getJSON performs an authorized GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
