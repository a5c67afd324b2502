// Package comparison fetches budget-vs-actual data for a job from the
// external comparison service.
package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobdesk/internal/domain"
)

const DefaultTimeout = 30 * time.Second

// ErrUnavailable means the service could not produce data: timeout,
// transport failure, non-200 status or an undecodable body.
var ErrUnavailable = errors.New("comparison service unavailable")

// Client calls GET {BaseURL}/{companyID}/{jobID}. It never retries; callers
// decide whether to try again.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    timeout,
		Logger:     logger,
	}
}

func (c *Client) Fetch(ctx context.Context, companyID, jobID string) (domain.ComparisonData, error) {
	if c.BaseURL == "" {
		return domain.ComparisonData{}, fmt.Errorf("%w: base url not configured", ErrUnavailable)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	data, err := c.do(ctx, companyID, jobID)
	log := c.logger().With(
		zap.String("company_id", companyID),
		zap.String("job_id", jobID),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	if err != nil {
		log.Warn("comparison fetch failed", zap.Error(err))
		if ctx.Err() != nil {
			return domain.ComparisonData{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
		return domain.ComparisonData{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.Debug("comparison fetched", zap.Int("dropped_rows", data.Dropped))
	return data, nil
}

func (c *Client) do(ctx context.Context, companyID, jobID string) (domain.ComparisonData, error) {
	endpoint := c.BaseURL + "/" + url.PathEscape(companyID) + "/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ComparisonData{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return domain.ComparisonData{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ComparisonData{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ComparisonData{}, fmt.Errorf("comparison service returned status %d", resp.StatusCode)
	}
	var data domain.ComparisonData
	if err := json.Unmarshal(body, &data); err != nil {
		return domain.ComparisonData{}, fmt.Errorf("decoding response: %w", err)
	}
	return data, nil
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
