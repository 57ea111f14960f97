// Package api contains the client for the external exchange-rate provider
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the public ExchangeRate-API v6 endpoint
	DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

	// DefaultTimeout bounds a single provider call
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
	maxDetailLength  = 256
)

// Provider call outcomes used as metric labels
const (
	outcomeSuccess         = "success"
	outcomeAPIError        = "api_error"
	outcomeHTTPError       = "http_error"
	outcomeTransportError  = "transport_error"
	outcomeInvalidResponse = "invalid_response"
)

// ClientConfig holds the provider connection settings
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ExchangeRateAPIClient fetches pair rates from ExchangeRate-API.
// Each call issues exactly one request; there is no retry.
type ExchangeRateAPIClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.ForexMetrics
	logger     logger.Logger
}

// NewExchangeRateAPIClient creates a new provider client
func NewExchangeRateAPIClient(
	cfg ClientConfig,
	httpClient *http.Client,
	m *metrics.ForexMetrics,
	log logger.Logger,
) *ExchangeRateAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &ExchangeRateAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger.OrDefault(log),
	}
}

// FetchRate retrieves the rate converting one unit of source into target
func (c *ExchangeRateAPIClient) FetchRate(ctx context.Context, source, target string) (*entity.ExchangeRate, error) {
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	rate, outcome, err := c.fetch(ctx, source, target)

	duration := time.Since(startTime)
	c.metrics.RecordProviderRequest(outcome, duration.Seconds())

	if err != nil {
		c.logger.Error("Exchange rate provider call failed", map[string]interface{}{
			"request_id":  requestID,
			"source":      source,
			"target":      target,
			"outcome":     outcome,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, err
	}

	c.logger.Debug("Exchange rate provider call succeeded", map[string]interface{}{
		"request_id":  requestID,
		"source":      source,
		"target":      target,
		"rate":        rate.Rate.String(),
		"duration_ms": duration.Milliseconds(),
	})

	return rate, nil
}

func (c *ExchangeRateAPIClient) fetch(ctx context.Context, source, target string) (*entity.ExchangeRate, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/%s/pair/%s/%s",
		c.baseURL,
		url.PathEscape(c.apiKey),
		url.PathEscape(source),
		url.PathEscape(target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, outcomeTransportError, &apperror.ProviderError{
			Source: source, Target: target, Detail: "failed to create request", Err: err,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, outcomeTransportError, &apperror.ProviderError{
			Source: source, Target: target, Detail: "request failed", Err: stripURL(err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, outcomeTransportError, &apperror.ProviderError{
			Source: source, Target: target, StatusCode: resp.StatusCode,
			Detail: "failed to read response body", Err: stripURL(err),
		}
	}

	// The provider reports its own failures in the envelope, whatever the status
	if gjson.ValidBytes(body) && gjson.GetBytes(body, "result").String() == "error" {
		classification := gjson.GetBytes(body, "error-type").String()
		if classification == "" {
			classification = "unknown-error"
		}
		return nil, outcomeAPIError, &apperror.ProviderError{
			Source: source, Target: target, Classification: classification, StatusCode: resp.StatusCode,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, outcomeHTTPError, &apperror.ProviderError{
			Source: source, Target: target, StatusCode: resp.StatusCode, Detail: truncate(string(body)),
		}
	}

	rate, err := parseRate(body)
	if err != nil {
		return nil, outcomeInvalidResponse, &apperror.ProviderError{
			Source: source, Target: target, StatusCode: resp.StatusCode, Detail: err.Error(),
		}
	}

	return &entity.ExchangeRate{
		Source: source,
		Target: target,
		Rate:   rate,
	}, outcomeSuccess, nil
}

// parseRate reads conversion_rate from its raw JSON token so no precision is lost
func parseRate(body []byte) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Decimal{}, errors.New("malformed response body")
	}

	if result := gjson.GetBytes(body, "result").String(); result != "success" {
		return decimal.Decimal{}, fmt.Errorf("unexpected result %q", result)
	}

	value := gjson.GetBytes(body, "conversion_rate")
	if value.Type != gjson.Number {
		return decimal.Decimal{}, errors.New("missing or non-numeric conversion_rate")
	}

	rate, err := decimal.NewFromString(value.Raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid conversion_rate %q: %w", value.Raw, err)
	}

	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive conversion_rate %s", rate.String())
	}

	return rate, nil
}

// stripURL drops the request URL from transport errors, it embeds the API key
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDetailLength {
		return s[:maxDetailLength] + "..."
	}
	return s
}
