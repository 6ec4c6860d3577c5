package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20
	correlationHeader     = "X-Client-Id"
)

// LiveConfig wires a real backend into the transport.
type LiveConfig struct {
	BaseURL string
	Timeout time.Duration
	// CorrelationID supplies the persisted client correlation identifier;
	// the header is omitted while it returns empty.
	CorrelationID func() string
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// LiveTransport performs HTTP calls against the configured backend. Every
// failure mode short of a decodable envelope becomes a *NetworkError so
// callers have exactly one retryable error type to branch on.
type LiveTransport struct {
	baseURL       string
	httpClient    *http.Client
	correlationID func() string
	logger        *zap.Logger
}

// NewLiveTransport validates the configuration and builds the transport.
func NewLiveTransport(config LiveConfig) (*LiveTransport, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if trimmed == "" {
		return nil, errors.New("syncclient: base URL is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("syncclient: invalid base URL: %w", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	correlation := config.CorrelationID
	if correlation == nil {
		correlation = func() string { return "" }
	}
	return &LiveTransport{
		baseURL:       trimmed,
		httpClient:    httpClient,
		correlationID: correlation,
		logger:        logger,
	}, nil
}

// Call executes one request. A response that decodes into an envelope is
// returned as-is regardless of status, so credential rejections keep their
// backend message; everything else becomes a *NetworkError.
func (t *LiveTransport) Call(ctx context.Context, method string, path string, query url.Values, body interface{}) (Envelope, error) {
	requestURL := t.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var requestBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Envelope{}, &NetworkError{Endpoint: path, Err: fmt.Errorf("encode request: %w", err)}
		}
		requestBody = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, requestURL, requestBody)
	if err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Err: err}
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	if correlation := t.correlationID(); correlation != "" {
		request.Header.Set(correlationHeader, correlation)
	}

	response, err := t.httpClient.Do(request)
	if err != nil {
		t.logger.Warn("backend call failed", zap.String("endpoint", path), zap.Error(err))
		return Envelope{}, &NetworkError{Endpoint: path, Err: err}
	}
	defer func() {
		_ = response.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Status: response.StatusCode, Err: err}
	}
	if !isJSONContentType(response.Header.Get("Content-Type")) {
		return Envelope{}, &NetworkError{
			Endpoint: path,
			Status:   response.StatusCode,
			Err:      fmt.Errorf("unexpected content type %q", response.Header.Get("Content-Type")),
		}
	}
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Status: response.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if response.StatusCode >= http.StatusInternalServerError {
		return Envelope{}, &NetworkError{
			Endpoint: path,
			Status:   response.StatusCode,
			Err:      errors.New(rejectionMessage(envelope)),
		}
	}
	return envelope, nil
}

func isJSONContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
