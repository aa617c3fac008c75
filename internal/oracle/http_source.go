package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// HTTPSource asks a flight data service for the status:
// GET {base}/flights/{code}/status?timestamp={ts} -> {"status_code": N}
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	logger     *logger.Logger
}

type statusResponse struct {
	StatusCode *int `json:"status_code"`
}

// HTTPSources builds one cached HTTPSource per account. Workers share neither
// the client nor the cache.
func HTTPSources(cfg HTTPSourceConfig, cacheTTL time.Duration, log *logger.Logger) SourceFactory {
	return func(account common.Address) StatusSource {
		upstream := NewHTTPSource(cfg, log.With(logger.Address("oracle", account)))
		return NewCachedSource(upstream, cacheTTL)
	}
}

// NewHTTPSource creates an HTTP status source.
func NewHTTPSource(cfg HTTPSourceConfig, log *logger.Logger) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &HTTPSource{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     log.Named("status-src"),
	}
}

// Status fetches the status, retrying transport errors and 5xx responses with
// exponential backoff.
func (s *HTTPSource) Status(ctx context.Context, req surety.FlightStatusRequested) (surety.StatusCode, error) {
	endpoint := fmt.Sprintf("%s/flights/%s/status?timestamp=%s",
		s.baseURL, url.PathEscape(req.FlightCode), strconv.FormatInt(req.Timestamp, 10))

	retryDelay := s.retryDelay
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		code, retry, err := s.fetch(ctx, endpoint)
		if err == nil {
			return code, nil
		}
		lastErr = err
		if !retry || attempt == s.maxRetries-1 {
			break
		}

		s.logger.Warn("Retrying flight status lookup",
			logger.String("flight", req.FlightCode),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", s.maxRetries),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return surety.StatusUnknown, ctx.Err()
		case <-time.After(retryDelay):
			retryDelay *= 2
		}
	}
	return surety.StatusUnknown, fmt.Errorf("failed to fetch status of flight %s: %w", req.FlightCode, lastErr)
}

// fetch performs one request. retry reports whether the failure is transient.
func (s *HTTPSource) fetch(ctx context.Context, endpoint string) (code surety.StatusCode, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	s.logger.Debug("Fetching flight status", logger.String("url", endpoint))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return 0, ctx.Err() == nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode >= http.StatusInternalServerError, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, true, fmt.Errorf("failed to read response body: %w", err)
	}

	var data statusResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, false, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if data.StatusCode == nil {
		return 0, false, fmt.Errorf("response has no status_code")
	}
	if *data.StatusCode < 0 || *data.StatusCode > 255 || !surety.StatusCode(*data.StatusCode).Valid() {
		return 0, false, fmt.Errorf("unknown status code %d", *data.StatusCode)
	}
	return surety.StatusCode(*data.StatusCode), false, nil
}
