package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/screenagent/screenagent/internal/capture"
	"github.com/screenagent/screenagent/internal/delivery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// MaxBatchImages is the largest frame batch accepted per analysis
	// call. Oversized batches are rejected, never truncated: dropping
	// frames silently would invalidate the cross-image context the
	// analysis depends on.
	MaxBatchImages = 16

	// maxBatchBytes keeps the request under the API's 20 MB payload
	// ceiling, with headroom for the prompt and envelope.
	maxBatchBytes = 19 * 1024 * 1024
)

// Client is the analysis delivery client: one call carries the whole
// encoded batch and returns the model's free-form report.
type Client struct {
	apiKey          string
	model           string
	temperature     float32
	maxOutputTokens int32
}

// New returns an analysis client for the given API key and model.
func New(apiKey, model string, temperature float64) *Client {
	return &Client{
		apiKey:          apiKey,
		model:           model,
		temperature:     float32(temperature),
		maxOutputTokens: 8192,
	}
}

// Analyze sends the full batch in capture order with the instruction
// prompt and returns the report text.
func (c *Client) Analyze(ctx context.Context, prompt string, payloads []capture.Payload) (string, error) {
	if err := validateBatch(payloads); err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", classify(fmt.Errorf("failed to create gemini client: %w", err))
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SetMaxOutputTokens(c.maxOutputTokens)

	parts := make([]genai.Part, 0, len(payloads)+1)
	parts = append(parts, genai.Text(prompt))
	for _, p := range payloads {
		parts = append(parts, genai.ImageData("png", p.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(fmt.Errorf("failed to generate content: %w", err))
	}

	return extractText(resp)
}

// validateBatch enforces the channel's image count and size ceilings
// up front, before any bytes go on the wire.
func validateBatch(payloads []capture.Payload) error {
	if len(payloads) > MaxBatchImages {
		return delivery.Failed(delivery.KindPayloadTooLarge,
			fmt.Errorf("batch has %d frames, limit is %d", len(payloads), MaxBatchImages))
	}

	total := 0
	for _, p := range payloads {
		total += len(p.Data)
	}
	if total > maxBatchBytes {
		return delivery.Failed(delivery.KindPayloadTooLarge,
			fmt.Errorf("batch is %d bytes, limit is %d", total, maxBatchBytes))
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", delivery.Failed(delivery.KindMalformedResponse, errors.New("no candidates returned"))
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", delivery.Failed(delivery.KindMalformedResponse, errors.New("empty content returned"))
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", delivery.Failed(delivery.KindMalformedResponse, errors.New("unexpected response part type"))
}

// classify maps channel errors onto the delivery taxonomy. The model
// API reports short rate limits and exhausted quota with the same 429
// status; a Retry-After header marks the former, and a bare 429 is
// treated as a blown quota that a quick retry cannot fix.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return delivery.Failed(delivery.KindAuth, err)
		case apiErr.Code == http.StatusTooManyRequests:
			if hint := retryAfterHint(apiErr.Header); hint > 0 {
				f := delivery.Failed(delivery.KindRateLimited, err)
				f.RetryAfter = hint
				return f
			}
			return delivery.Failed(delivery.KindQuotaExceeded, err)
		case apiErr.Code >= 500:
			return delivery.Failed(delivery.KindTransientNetwork, err)
		case apiErr.Code == http.StatusBadRequest:
			return delivery.Failed(delivery.KindMalformedResponse, err)
		}
	}
	return delivery.Failed(delivery.KindTransientNetwork, err)
}

func retryAfterHint(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
