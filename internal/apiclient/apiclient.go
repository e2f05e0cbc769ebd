package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ameistad/eydeploy/internal/constants"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("authentication failed")
	ErrNotFound     = errors.New("resource not found")
)

// APIClient handles communication with the EY Cloud API
type APIClient struct {
	client   *http.Client
	baseURL  string
	apiToken string
	logger   *zap.Logger
}

func New(baseURL, token string, logger *zap.Logger) (*APIClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("API URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("API token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIClient{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: token,
		logger:   logger,
	}, nil
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

func (c *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("X-EY-TOKEN", c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ey/"+constants.Version)
}

func (c *APIClient) get(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *APIClient) post(ctx context.Context, path string, request, response any) error {
	return c.do(ctx, http.MethodPost, path, request, response)
}

func (c *APIClient) put(ctx context.Context, path string, request, response any) error {
	return c.do(ctx, http.MethodPut, path, request, response)
}

func (c *APIClient) do(ctx context.Context, method, path string, request, response any) error {
	var body io.Reader
	if request != nil {
		jsonData, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	url := fmt.Sprintf("%s/api/v2/%s", c.baseURL, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	// Only set Content-Type if we have a request body
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	c.logger.Debug("api request", zap.String("method", method), zap.String("url", url))
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api response", zap.String("method", method), zap.String("url", url), zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w - check your %s or run 'ey login'", ErrUnauthorized, constants.EnvVarAPIToken)
		case http.StatusNotFound:
			return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
		}
		return fmt.Errorf("%s request failed with status %d%s", method, resp.StatusCode, errorDetail(resp.Body))
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorDetail extracts the API's error message, if the body carries one.
func errorDetail(body io.Reader) string {
	var payload struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return ": " + payload.Message
	}
	if len(payload.Errors) > 0 {
		return ": " + strings.Join(payload.Errors, ", ")
	}
	return ""
}
