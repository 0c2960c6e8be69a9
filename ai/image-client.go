package ai

import (
	"aifi/lib/sl"
	"aifi/storage"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 240 * time.Second
	// MaxResponseSize caps the provider response body
	MaxResponseSize = 64 << 20
)

// RequestFilter may adjust the outgoing provider request, e.g. add headers
type RequestFilter func(req *http.Request)

// ImageClient performs exactly one request per Generate call, no retries
type ImageClient struct {
	url        string
	httpClient *http.Client
	log        *slog.Logger
	filters    []RequestFilter
	maxBody    int64
}

func NewImageClient(url string, timeout time.Duration, log *slog.Logger, filters ...RequestFilter) *ImageClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ImageClient{
		url: url,
		// default transport keeps certificate verification on
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With(sl.Module("image-client")),
		filters:    filters,
		maxBody:    MaxResponseSize,
	}
}

// Generate returns the decoded image bytes or an *APIError
func (c *ImageClient) Generate(ctx context.Context, prompt string, settings *storage.Settings) ([]byte, error) {
	jsonBytes, err := json.Marshal(NewImageRequest(prompt, settings))
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", settings.ApiKey))
	req.Header.Set("Content-Type", "application/json")
	for _, filter := range c.filters {
		filter(req)
	}

	c.log.With(
		slog.String("model", settings.AiModel),
		slog.String("size", settings.DefaultSize),
		sl.Secret(settings.ApiKey),
	).Debug("sending image request")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := classifyTransport(err)
		c.log.With(sl.Kind(string(apiErr.Kind)), sl.Err(err)).Warn("image request failed")
		return nil, apiErr
	}
	defer func(Body io.ReadCloser) {
		err = Body.Close()
		if err != nil {
			c.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		apiErr := classifyTransport(err)
		c.log.With(sl.Kind(string(apiErr.Kind)), sl.Err(err)).Warn("reading response body")
		return nil, apiErr
	}
	if int64(len(body)) > c.maxBody {
		c.log.With(slog.Int("status", resp.StatusCode)).Warn("response body too large")
		return nil, &APIError{
			Kind:    KindParse,
			Message: "Invalid response from OpenAI API. Please try again.",
			Status:  resp.StatusCode,
		}
	}
	c.log.With(
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", time.Since(started)),
	).Debug("image response")

	if resp.StatusCode != http.StatusOK {
		apiErr := ClassifyResponse(resp.StatusCode, body)
		c.log.With(
			sl.Kind(string(apiErr.Kind)),
			slog.Int("status", resp.StatusCode),
		).Warn("image request rejected")
		return nil, apiErr
	}

	return decodeImageResponse(body)
}

func decodeImageResponse(body []byte) ([]byte, error) {
	var response ImageGenerationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &APIError{
			Kind:    KindParse,
			Message: "Invalid response from OpenAI API. Please try again.",
			Status:  http.StatusOK,
			Err:     err,
		}
	}
	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return nil, newError(KindNoImageData, "No image data found in API response. The image generation may have failed.", http.StatusOK)
	}

	image, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return nil, &APIError{
			Kind:    KindDecode,
			Message: "Failed to process the generated image data. Please try again.",
			Status:  http.StatusOK,
			Err:     err,
		}
	}
	return image, nil
}
