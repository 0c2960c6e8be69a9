package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    Kind
	}{
		{"incorrect api key", 401, "Incorrect API key provided: sk-xxx", KindAuth},
		{"invalid api key any status", 400, "Invalid API key", KindAuth},
		{"quota", 429, "You exceeded your current quota", KindQuota},
		{"billing", 400, "Billing hard limit has been reached", KindQuota},
		{"billing_not_active is shadowed by billing", 429, "billing_not_active", KindQuota},
		{"content policy", 400, "Your request was rejected as a result of our content policy", KindContentPolicy},
		{"usage policy", 400, "violates our Usage Policy", KindContentPolicy},
		{"safety system", 400, "Your request was rejected by the safety system", KindSafety},
		{"safety", 400, "flagged for safety", KindSafety},
		{"rate limit message", 400, "Rate limit reached for requests", KindRateLimit},
		{"too many requests message", 500, "Too Many Requests", KindRateLimit},
		{"rate limit status", 429, "slow down", KindRateLimit},
		{"server error", 500, "", KindServer},
		{"bad gateway", 502, "upstream", KindServer},
		{"service unavailable", 503, "", KindUnavailable},
		{"bad request", 400, "bad size", KindBadRequest},
		{"unauthorized", 401, "no auth header", KindUnauthorized},
		{"forbidden", 403, "project not allowed", KindForbidden},
		{"not found", 404, "no route", KindNotFound},
		{"generic", 418, "teapot", KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.message)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.status, got.Status)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassifyQuotaBeforeRateLimit(t *testing.T) {
	got := Classify(429, "Rate limit hit because your quota ran out")
	assert.Equal(t, KindQuota, got.Kind)
}

func TestClassifyGenericKeepsStatusAndMessage(t *testing.T) {
	got := Classify(409, "Conflict happened")
	assert.Equal(t, KindGeneric, got.Kind)
	assert.Equal(t, "API error (HTTP 409): Conflict happened", got.Message)
}

func TestClassifyResponse(t *testing.T) {
	got := ClassifyResponse(401, []byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	assert.Equal(t, KindAuth, got.Kind)

	got = ClassifyResponse(409, []byte(`not json`))
	assert.Equal(t, KindGeneric, got.Kind)
	assert.Equal(t, "API error (HTTP 409): Unknown API error occurred.", got.Message)

	got = ClassifyResponse(409, []byte(`{"error":{}}`))
	assert.Contains(t, got.Message, unknownProviderReason)
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{errors.New(`Post "https://x": context deadline exceeded (Client.Timeout exceeded while awaiting headers)`), KindTimeout},
		{errors.New("operation timed out"), KindTimeout},
		{errors.New("dial tcp: lookup api.openai.com: no such host"), KindDNS},
		{errors.New("tls: failed to verify certificate: x509: certificate signed by unknown authority"), KindTLS},
		{errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), KindConnection},
	}
	for _, tt := range tests {
		got := classifyTransport(tt.err)
		assert.Equal(t, tt.want, got.Kind, tt.err.Error())
		assert.Zero(t, got.Status)
		assert.ErrorIs(t, got, tt.err)
	}

	got := classifyTransport(errors.New("connection reset by peer"))
	assert.Equal(t, "Connection failed: connection reset by peer", got.Message)
}

func TestAPIErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", Classify(500, ""))

	var apiErr *APIError
	assert.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, "http", apiErr.Category())
	assert.Equal(t, "transport", (&APIError{Kind: KindTLS}).Category())
	assert.Equal(t, "payload", (&APIError{Kind: KindNoImageData}).Category())
	assert.Equal(t, "storage", (&APIError{Kind: KindStorage}).Category())
}
