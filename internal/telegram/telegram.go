package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/screenagent/screenagent/internal/capture"
	"github.com/screenagent/screenagent/internal/delivery"
)

// maxPhotoBytes is the Telegram Bot API limit for photo uploads.
const maxPhotoBytes = 10 * 1024 * 1024

// Client is the archival delivery client: it records screenshots and
// report chunks in a Telegram chat. Every call is independent: a
// failed send never prevents attempting the next one.
type Client struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an archival client for the given bot token and
// chat.
func NewClient(token, chatID string) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendImage uploads one encoded frame with a short caption.
func (c *Client) SendImage(ctx context.Context, payload capture.Payload, caption string) error {
	if len(payload.Data) > maxPhotoBytes {
		return delivery.Failed(delivery.KindPayloadTooLarge,
			fmt.Errorf("frame %d is %d bytes, photo limit is %d", payload.Sequence, len(payload.Data), maxPhotoBytes))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", c.chatID); err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return fmt.Errorf("failed to write caption field: %w", err)
	}
	part, err := writer.CreateFormFile("photo", fmt.Sprintf("screenshot_%d.png", payload.Sequence))
	if err != nil {
		return fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return c.call(ctx, "sendPhoto", writer.FormDataContentType(), &body)
}

// SendText sends one text chunk as a standalone message. The caller
// is responsible for keeping the chunk within the transport's message
// length limit.
func (c *Client) SendText(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)

	return c.call(ctx, "sendMessage", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (c *Client) call(ctx context.Context, method, contentType string, body io.Reader) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return delivery.Failed(delivery.KindTransientNetwork,
			fmt.Errorf("%s call failed: %w", method, err))
	}
	defer resp.Body.Close()

	// Gateway errors can carry an HTML body instead of the Bot API
	// envelope, so classify 5xx on the status alone before decoding.
	if resp.StatusCode >= 500 {
		return delivery.Failed(delivery.KindTransientNetwork,
			fmt.Errorf("%s returned status %d", method, resp.StatusCode))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return delivery.Failed(delivery.KindMalformedResponse,
			fmt.Errorf("failed to decode %s response: %w", method, err))
	}
	if apiResp.OK {
		return nil
	}

	return c.classify(method, resp.StatusCode, apiResp)
}

// classify translates a Bot API error into a delivery failure. Rate
// limits are retryable with the transport's own backoff hint; auth
// problems are not worth retrying inside the input loop.
func (c *Client) classify(method string, status int, apiResp apiResponse) error {
	cause := fmt.Errorf("%s returned status %d: %s", method, status, apiResp.Description)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return delivery.Failed(delivery.KindAuth, cause)
	case status == http.StatusTooManyRequests:
		f := delivery.Failed(delivery.KindRateLimited, cause)
		f.RetryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		return f
	case status == http.StatusRequestEntityTooLarge:
		return delivery.Failed(delivery.KindPayloadTooLarge, cause)
	default:
		return delivery.Failed(delivery.KindUnknown, cause)
	}
}
