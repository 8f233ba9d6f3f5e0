// Package templateapi is the HTTP client for the upstream template
// service, which owns template documents and their persisted fields.
package templateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// Config holds template service client configuration
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	AuthHeader string
}

// Client wraps the HTTP client with logging and size limits
type Client struct {
	baseURL    string
	authHeader string
	client     *http.Client
	logger     ectologger.Logger
}

// NewClient creates a new template service client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		authHeader: cfg.AuthHeader,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GetTemplateFullInfo fetches a template with its complete field set.
func (c *Client) GetTemplateFullInfo(ctx context.Context, templateID int64) (*models.TemplateInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "templateapi.GetTemplateFullInfo")
	defer span.End()

	var tmpl models.TemplateInfo
	url := fmt.Sprintf("%s/templates/%d/full", c.baseURL, templateID)
	if err := c.do(ctx, http.MethodGet, url, nil, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to fetch template %d: %w", templateID, err)
	}
	return &tmpl, nil
}

// CreateField persists a new field and returns the stored record with its
// server-assigned id.
func (c *Client) CreateField(ctx context.Context, templateID int64, rec models.FieldRecord) (*models.FieldRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "templateapi.CreateField")
	defer span.End()

	var created models.FieldRecord
	url := fmt.Sprintf("%s/templates/%d/fields", c.baseURL, templateID)
	if err := c.do(ctx, http.MethodPost, url, rec, &created); err != nil {
		return nil, fmt.Errorf("failed to create field on template %d: %w", templateID, err)
	}
	return &created, nil
}

// UpdateField replaces a persisted field's stored shape.
func (c *Client) UpdateField(ctx context.Context, templateID, fieldID int64, rec models.FieldRecord) error {
	ctx, span := tracing.StartSpan(ctx, "templateapi.UpdateField")
	defer span.End()

	url := fmt.Sprintf("%s/templates/%d/fields/%d", c.baseURL, templateID, fieldID)
	if err := c.do(ctx, http.MethodPut, url, rec, nil); err != nil {
		return fmt.Errorf("failed to update field %d on template %d: %w", fieldID, templateID, err)
	}
	return nil
}

// DeleteField removes a persisted field.
func (c *Client) DeleteField(ctx context.Context, templateID, fieldID int64) error {
	ctx, span := tracing.StartSpan(ctx, "templateapi.DeleteField")
	defer span.End()

	url := fmt.Sprintf("%s/templates/%d/fields/%d", c.baseURL, templateID, fieldID)
	if err := c.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return fmt.Errorf("failed to delete field %d on template %d: %w", fieldID, templateID, err)
	}
	return nil
}

// do executes a request, decoding the JSON response into out when out is
// non-nil. Non-2xx statuses are errors carrying the response body.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", method, url)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(respBody) > MaxResponseSize {
		return fmt.Errorf("response body too large: %d bytes (max %d)", len(respBody), MaxResponseSize)
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)",
		method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
