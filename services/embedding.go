package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"document-chunk-index/config"
	"document-chunk-index/errors"
)

// HTTPEmbeddingClient calls a remote embedding API over HTTP. Requests are
// rate limited, retried with exponential backoff and guarded by a circuit
// breaker so a failing upstream degrades to fast local errors instead of
// piling up timeouts.
type HTTPEmbeddingClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryer    *errors.Retryer
	breaker    *errors.CircuitBreaker
	logger     Logger
}

// NewHTTPEmbeddingClient creates an embedding client from config
func NewHTTPEmbeddingClient(cfg *config.EmbeddingConfig, logger Logger) *HTTPEmbeddingClient {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &HTTPEmbeddingClient{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		retryer:    errors.NewRetryer(errors.EmbeddingServiceRetryConfig()),
		breaker:    errors.NewCircuitBreaker(nil),
		logger:     logger,
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingAPIError struct {
	ErrorInfo struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (e *embeddingAPIError) Error() string {
	return fmt.Sprintf("embedding API error [%s]: %s", e.ErrorInfo.Type, e.ErrorInfo.Message)
}

// Embed implements EmbeddingClient. model overrides the configured default
// when non-empty.
func (c *HTTPEmbeddingClient) Embed(ctx context.Context, text string, model string) ([]float64, error) {
	if text == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingField, "text is required", nil)
	}
	if model == "" {
		model = c.model
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := embeddingRequest{Input: []string{text}, Model: model}

	var response embeddingResponse
	err := c.breaker.Execute(ctx, func() error {
		return c.retryer.Execute(ctx, func() error {
			return c.makeRequest(ctx, request, &response)
		})
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrTypeExternal, errors.ErrCodeEmbeddingServiceFailed, "embedding request failed")
	}

	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, errors.NewExternalServiceError(errors.ErrCodeEmbeddingServiceFailed, "embedding API returned no vector", nil)
	}
	return response.Data[0].Embedding, nil
}

func (c *HTTPEmbeddingClient) makeRequest(ctx context.Context, request embeddingRequest, response *embeddingResponse) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSerializationError, "failed to marshal embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeProcessingError, "failed to create embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeNetworkConnection, "embedding request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeNetworkConnection, "failed to read embedding response", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr embeddingAPIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.ErrorInfo.Message != "" {
			return c.classifyAPIError(resp.StatusCode, &apiErr)
		}
		return c.classifyAPIError(resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return errors.NewInternalError(errors.ErrCodeSerializationError, "failed to unmarshal embedding response", err)
	}
	return nil
}

// classifyAPIError maps HTTP status to the error taxonomy so the retryer
// only replays server-side and rate-limit failures
func (c *HTTPEmbeddingClient) classifyAPIError(status int, cause error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimitError(errors.ErrCodeEmbeddingServiceFailed, "embedding API rate limited", cause)
	case status >= 500:
		return errors.NewExternalServiceError(errors.ErrCodeEmbeddingServiceFailed, "embedding API server error", cause)
	default:
		return errors.NewValidationError(errors.ErrCodeEmbeddingServiceFailed, "embedding API rejected request", cause)
	}
}
