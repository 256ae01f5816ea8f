package linebot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	apiBase     = "https://api.line.me/v2/bot"
	apiDataBase = "https://api-data.line.me/v2/bot"
)

// Client talks to the LINE Messaging API. Outbound sends are rate limited to
// stay under the push quota on bursty trigger days.
type Client struct {
	token       string
	baseURL     string
	dataBaseURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a LINE client with the channel token.
func NewClient(token string) *Client {
	return &Client{
		token:       token,
		baseURL:     apiBase,
		dataBaseURL: apiDataBase,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// NewClientWithBase creates a client against custom endpoints, for tests.
func NewClientWithBase(token, baseURL, dataBaseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	c.dataBaseURL = dataBaseURL
	return c
}

// Push sends a text message to the user.
func (c *Client) Push(ctx context.Context, userID, text string) error {
	if userID == "" {
		return errors.New("push requires a user id")
	}
	payload := map[string]any{
		"to":       userID,
		"messages": []any{map[string]any{"type": "text", "text": text}},
	}
	return c.post(ctx, c.baseURL+"/message/push", payload)
}

// Reply answers a webhook event via its reply token.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return errors.New("reply requires a reply token")
	}
	payload := map[string]any{
		"replyToken": replyToken,
		"messages":   []any{map[string]any{"type": "text", "text": text}},
	}
	return c.post(ctx, c.baseURL+"/message/reply", payload)
}

// GetMessageContent downloads the binary content of a media message.
func (c *Client) GetMessageContent(ctx context.Context, messageID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataBaseURL+"/message/"+messageID+"/content", nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "build content request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "fetch content for message %s", messageID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Errorf("LINE content API error (%d)", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "read content body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal message payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "build message request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return errors.Errorf("LINE API error (%d): %s", resp.StatusCode, string(data))
	}
	return nil
}
