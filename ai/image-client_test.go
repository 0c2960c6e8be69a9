package ai

import (
	"aifi/storage"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() *storage.Settings {
	s := storage.DefaultSettings()
	s.ApiKey = "k"
	s.DefaultSize = storage.SizeSquare
	s.AiModel = storage.ModelImage1Mini
	return &s
}

func requireKind(t *testing.T, err error, kind Kind) *APIError {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	assert.Equal(t, kind, apiErr.Kind)
	return apiErr
}

func TestImageClientSuccess(t *testing.T) {
	image := []byte("\x89PNG fake image bytes")
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Filtered"))

		var body ImageGenerationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ImageGenerationRequest{
			Model:  storage.ModelImage1Mini,
			Prompt: "a prompt",
			N:      1,
			Size:   storage.SizeSquare,
		}, body)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(image)}},
		})
	}))
	defer srv.Close()

	filter := func(req *http.Request) { req.Header.Set("X-Filtered", "yes") }
	client := NewImageClient(srv.URL, 0, discardLogger(), filter)

	got, err := client.Generate(context.Background(), "a prompt", testSettings())
	require.NoError(t, err)
	assert.Equal(t, image, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestImageClientPayloadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Kind
	}{
		{"invalid json", `{"data": [`, KindParse},
		{"missing b64_json", `{"data":[{}]}`, KindNoImageData},
		{"empty data", `{"data":[]}`, KindNoImageData},
		{"bad base64", `{"data":[{"b64_json":"!!not base64!!"}]}`, KindDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewImageClient(srv.URL, time.Second, discardLogger()).Generate(context.Background(), "p", testSettings())
			apiErr := requireKind(t, err, tt.want)
			assert.Equal(t, http.StatusOK, apiErr.Status)
		})
	}
}

func TestImageClientOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + strings.Repeat("A", 256) + `"}]}`))
	}))
	defer srv.Close()

	client := NewImageClient(srv.URL, time.Second, discardLogger())
	assert.EqualValues(t, MaxResponseSize, client.maxBody)
	client.maxBody = 64

	_, err := client.Generate(context.Background(), "p", testSettings())
	requireKind(t, err, KindParse)
}

func TestImageClientHTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"auth", 401, `{"error":{"message":"Incorrect API key provided"}}`, KindAuth},
		{"rate limit", 429, `{"error":{"message":"slow down"}}`, KindRateLimit},
		{"server", 500, ``, KindServer},
		{"unavailable", 503, `{}`, KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewImageClient(srv.URL, time.Second, discardLogger()).Generate(context.Background(), "p", testSettings())
			apiErr := requireKind(t, err, tt.want)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, 1, calls, "no retries")
		})
	}
}

func TestImageClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewImageClient(srv.URL, 50*time.Millisecond, discardLogger()).Generate(context.Background(), "p", testSettings())
	requireKind(t, err, KindTimeout)
}

func TestImageClientConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewImageClient(url, time.Second, discardLogger()).Generate(context.Background(), "p", testSettings())
	apiErr := requireKind(t, err, KindConnection)
	assert.Contains(t, apiErr.Message, "Connection failed:")
}

func TestImageClientRejectsUntrustedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewImageClient(srv.URL, time.Second, discardLogger()).Generate(context.Background(), "p", testSettings())
	requireKind(t, err, KindTLS)
}
