package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindTimeout        Kind = "timeout"
	KindDNS            Kind = "dns_resolution"
	KindTLS            Kind = "tls_error"
	KindConnection     Kind = "generic_connection_error"
	KindAuth           Kind = "auth_error"
	KindQuota          Kind = "quota_error"
	KindBilling        Kind = "billing_error"
	KindContentPolicy  Kind = "content_policy_error"
	KindSafety         Kind = "safety_error"
	KindRateLimit      Kind = "rate_limit_error"
	KindServer         Kind = "server_error"
	KindUnavailable    Kind = "service_unavailable"
	KindBadRequest     Kind = "bad_request"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindGeneric        Kind = "generic_api_error"
	KindParse          Kind = "parse_error"
	KindNoImageData    Kind = "no_image_data"
	KindDecode         Kind = "decode_error"
	KindStorage        Kind = "storage_error"
	KindInvalidPost    Kind = "invalid_post"
	KindMissingApiKey  Kind = "missing_api_key"
	KindInvalidRequest Kind = "invalid_request"
)

const unknownProviderReason = "Unknown API error occurred."

// APIError is a classified generation failure. Message is meant for end users.
type APIError struct {
	Kind    Kind
	Message string
	// Status is the provider HTTP status, zero when no response was received
	Status int
	// Err is the underlying cause, if any
	Err error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Category groups kinds for the transport layer
func (e *APIError) Category() string {
	switch e.Kind {
	case KindTimeout, KindDNS, KindTLS, KindConnection:
		return "transport"
	case KindParse, KindNoImageData, KindDecode:
		return "payload"
	case KindStorage:
		return "storage"
	case KindInvalidPost, KindMissingApiKey, KindInvalidRequest:
		return "request"
	}
	return "http"
}

func newError(kind Kind, message string, status int) *APIError {
	return &APIError{Kind: kind, Message: message, Status: status}
}

type errorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ClassifyResponse classifies a non-200 provider response
func ClassifyResponse(status int, body []byte) *APIError {
	message := unknownProviderReason
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != nil && eb.Error.Message != "" {
		message = eb.Error.Message
	}
	return Classify(status, message)
}

// Classify maps a provider status and message to a failure kind.
// Message patterns are checked before status codes, first match wins.
func Classify(status int, message string) *APIError {
	lower := strings.ToLower(message)
	containsAny := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("invalid api key", "incorrect api key"):
		return newError(KindAuth, "Your API key is invalid or expired. Please check your API key in the plugin settings.", status)
	case containsAny("quota", "billing"):
		return newError(KindQuota, "You have exceeded your API usage quota. Please check your OpenAI account billing.", status)
	case containsAny("billing_not_active"):
		// unreachable while "billing" above matches first, kept to preserve the order
		return newError(KindBilling, "Your OpenAI account billing is not active. Please add a payment method to your account.", status)
	case containsAny("content policy", "usage policy"):
		return newError(KindContentPolicy, "Your prompt contains content that violates OpenAI's usage policies. Please modify your prompt and try again.", status)
	case containsAny("safety system", "safety"):
		return newError(KindSafety, "Your prompt was rejected by the safety system. Please modify your prompt to avoid potentially harmful content.", status)
	case containsAny("rate limit", "too many requests"):
		return newError(KindRateLimit, "You are making requests too quickly. Please wait a moment before trying again.", status)
	case status == http.StatusServiceUnavailable:
		return newError(KindUnavailable, "The image generation service is temporarily unavailable. Please try again later.", status)
	case status >= http.StatusInternalServerError:
		return newError(KindServer, "OpenAI servers are experiencing issues. Please try again in a few minutes.", status)
	}

	switch status {
	case http.StatusBadRequest:
		return newError(KindBadRequest, "Invalid request. Please check your prompt and try again.", status)
	case http.StatusUnauthorized:
		return newError(KindUnauthorized, "Authentication failed. Please check your API key.", status)
	case http.StatusForbidden:
		return newError(KindForbidden, "Access denied. Please check your API key permissions.", status)
	case http.StatusNotFound:
		return newError(KindNotFound, "The requested service was not found. Please try again later.", status)
	case http.StatusTooManyRequests:
		return newError(KindRateLimit, "Too many requests. Please wait a moment before trying again.", status)
	}
	return newError(KindGeneric, fmt.Sprintf("API error (HTTP %d): %s", status, message), status)
}

// classifyTransport classifies a failure where no HTTP response was received
func classifyTransport(err error) *APIError {
	lower := strings.ToLower(err.Error())
	var e *APIError
	switch {
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded"):
		e = newError(KindTimeout, "The request timed out. The image generation is taking longer than expected. Please try again.", 0)
	case strings.Contains(lower, "no such host") || strings.Contains(lower, "could not resolve host"):
		e = newError(KindDNS, "Unable to connect to OpenAI servers. Please check your internet connection and try again.", 0)
	case strings.Contains(lower, "tls") || strings.Contains(lower, "x509") ||
		strings.Contains(lower, "ssl") || strings.Contains(lower, "certificate"):
		e = newError(KindTLS, "SSL connection error. Please try again or contact your hosting provider.", 0)
	default:
		e = newError(KindConnection, fmt.Sprintf("Connection failed: %s", err.Error()), 0)
	}
	e.Err = err
	return e
}
