package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/screenagent/screenagent/internal/capture"
	"github.com/screenagent/screenagent/internal/delivery"
)

func testClient(serverURL string) *Client {
	c := NewClient("test-token", "12345")
	c.baseURL = serverURL
	return c
}

func testPayload() capture.Payload {
	return capture.Payload{Data: []byte("not-really-a-png"), Sequence: 1, Width: 8, Height: 6}
}

func TestSendImageSuccess(t *testing.T) {
	var gotPath, gotChatID, gotCaption string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")
		if _, _, err := r.FormFile("photo"); err != nil {
			t.Errorf("Expected photo part: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	err := testClient(server.URL).SendImage(context.Background(), testPayload(), "screenshot 1")
	if err != nil {
		t.Fatalf("SendImage returned error: %v", err)
	}
	if gotPath != "/bottest-token/sendPhoto" {
		t.Errorf("Unexpected request path %s", gotPath)
	}
	if gotChatID != "12345" {
		t.Errorf("Expected chat_id 12345, got %s", gotChatID)
	}
	if gotCaption != "screenshot 1" {
		t.Errorf("Expected caption to be forwarded, got %q", gotCaption)
	}
}

func TestSendTextSuccess(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("Unexpected request path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse form: %v", err)
		}
		gotText = r.FormValue("text")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	err := testClient(server.URL).SendText(context.Background(), "chunk one")
	if err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}
	if gotText != "chunk one" {
		t.Errorf("Expected text to be forwarded, got %q", gotText)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      delivery.Kind
		retryable bool
	}{
		{
			name:      "unauthorized",
			status:    http.StatusUnauthorized,
			body:      `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
			kind:      delivery.KindAuth,
			retryable: false,
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`,
			kind:      delivery.KindRateLimited,
			retryable: true,
		},
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			body:      `{"ok":false,"error_code":502,"description":"Bad Gateway"}`,
			kind:      delivery.KindTransientNetwork,
			retryable: true,
		},
		{
			name:      "entity too large",
			status:    http.StatusRequestEntityTooLarge,
			body:      `{"ok":false,"error_code":413,"description":"Request Entity Too Large"}`,
			kind:      delivery.KindPayloadTooLarge,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := testClient(server.URL).SendText(context.Background(), "hello")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			f := delivery.Classify(err)
			if f.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, f.Kind)
			}
			if f.Retryable() != tt.retryable {
				t.Errorf("Expected retryable=%v, got %v", tt.retryable, f.Retryable())
			}
		})
	}
}

func TestGatewayErrorBodyIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html><body>502 Bad Gateway</body></html>`))
	}))
	defer server.Close()

	err := testClient(server.URL).SendText(context.Background(), "hello")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	f := delivery.Classify(err)
	if f.Kind != delivery.KindTransientNetwork {
		t.Errorf("Expected transient network failure for a non-envelope 5xx body, got %s", f.Kind)
	}
	if !f.Retryable() {
		t.Error("Expected a 5xx to stay retryable")
	}
}

func TestRateLimitCarriesRetryAfterHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`))
	}))
	defer server.Close()

	err := testClient(server.URL).SendText(context.Background(), "hello")
	f := delivery.Classify(err)
	if f.RetryAfter != 7*time.Second {
		t.Errorf("Expected retry-after hint of 7s, got %v", f.RetryAfter)
	}
}

func TestSendImageRejectsOversizedPhoto(t *testing.T) {
	payload := capture.Payload{Data: make([]byte, maxPhotoBytes+1), Sequence: 1}

	err := NewClient("t", "c").SendImage(context.Background(), payload, "")
	f := delivery.Classify(err)
	if f.Kind != delivery.KindPayloadTooLarge {
		t.Errorf("Expected payload-too-large, got %s", f.Kind)
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	err := testClient(server.URL).SendText(context.Background(), "hello")
	f := delivery.Classify(err)
	if f.Kind != delivery.KindTransientNetwork {
		t.Errorf("Expected transient network failure, got %s", f.Kind)
	}
}
