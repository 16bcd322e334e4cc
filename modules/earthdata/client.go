package earthdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/horkydorky/Earth-Pulse/common"
	"github.com/horkydorky/Earth-Pulse/common/model"
)

// EarthDataClient issues typed calls against the EarthPulse API. Every
// failure is either a *common.TransportError, *common.HTTPError or
// *common.DecodeError; nothing is retried.
type EarthDataClient interface {
	Do(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error)
	Request(ctx context.Context, endpoint string, opts *RequestOptions, out interface{}) error

	GetNDVIData(ctx context.Context, year int, region model.Region) (*model.NDVIData, error)
	GetGlacierData(ctx context.Context, year int, region model.Region) (*model.GlacierData, error)
	GetUrbanData(ctx context.Context, year int, region model.Region) (*model.UrbanData, error)
	GetTemperatureData(ctx context.Context, year int, region model.Region) (*model.TemperatureData, error)
	GetEnvironmentalSummary(ctx context.Context, year int, region model.Region) (*model.EnvironmentalSummary, error)
	GetTemporalComparison(ctx context.Context, query model.TemporalQuery) ([]model.ComparisonResult, error)
	GetIndicatorTrends(ctx context.Context, indicator model.Indicator, region model.Region, startYear, endYear int) ([]model.TrendPoint, error)
	GetIndicators(ctx context.Context) (*model.IndicatorCatalog, error)

	GetRegions(ctx context.Context) (*model.RegionList, error)
	GetRegionDetails(ctx context.Context, region model.Region) (*model.RegionDetails, error)
	GenerateReport(ctx context.Context, req *model.ReportRequest) (*model.ReportResponse, error)
	ExportData(ctx context.Context, req *model.ExportRequest) (*model.ExportResult, error)
	GetReportFormats(ctx context.Context) (*model.ReportFormats, error)
	GetAPIInfo(ctx context.Context) (*model.APIInfo, error)
	DownloadReport(ctx context.Context, reportID string) (*model.ReportDownload, error)
	GetHealth(ctx context.Context) (*model.HealthStatus, error)
}

// RequestOptions overrides the defaults of a single call. The zero value is a
// plain JSON GET.
type RequestOptions struct {
	Method string
	// Headers are applied after the JSON defaults, so they win.
	Headers map[string]string
	// Params are URL-encoded into the query string.
	Params map[string]string
	// Body, when non-nil, is JSON-serialized.
	Body interface{}
	// Operation labels the call in latency stats. Defaults to "METHOD endpoint".
	Operation string
	// Unversioned resolves endpoint against the base URL itself instead of
	// {base}/api/{version}/.
	Unversioned bool
}

// Response is a successful (2xx) exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

const (
	DefaultAPIVersion = "v1"
	RequestIDHeader   = "X-Request-ID"
)

type earthDataClient struct {
	baseURL    string
	version    string
	httpClient common.HttpClient
	logger     *slog.Logger
	latency    *common.LatencyTracker
}

// ClientOption configures an EarthDataClient.
type ClientOption func(*earthDataClient)

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *earthDataClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLatencyTracker records the duration of every exchange, including failed ones.
func WithLatencyTracker(tracker *common.LatencyTracker) ClientOption {
	return func(c *earthDataClient) {
		c.latency = tracker
	}
}

// NewEarthDataClient creates a client whose endpoints resolve under
// {baseURL}/api/{version}. An empty version selects DefaultAPIVersion.
func NewEarthDataClient(baseURL, version string, httpClient common.HttpClient, opts ...ClientOption) EarthDataClient {
	if version == "" {
		version = DefaultAPIVersion
	}
	c := &earthDataClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    version,
		httpClient: httpClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request performs the call and decodes the JSON body into out. If out
// implements model.Validator, a failed validation is a DecodeError.
func (c *earthDataClient) Request(ctx context.Context, endpoint string, opts *RequestOptions, out interface{}) error {
	resp, err := c.Do(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	return decodeJSON(endpoint, resp.Body, out)
}

// Do is the core method that actually performs the HTTP request.
func (c *earthDataClient) Do(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	operation := opts.Operation
	if operation == "" {
		operation = method + " " + endpoint
	}

	urlStr, err := c.buildURL(endpoint, opts.Params, opts.Unversioned)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if opts.Body != nil {
		b, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.latency.Record(operation, time.Since(start))
		c.logger.Error("earthdata request failed",
			"endpoint", endpoint, "method", method, "request_id", requestID, "error", err)
		return nil, &common.TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	c.latency.Record(operation, time.Since(start))
	if readErr != nil {
		c.logger.Error("earthdata response truncated",
			"endpoint", endpoint, "method", method, "request_id", requestID, "error", readErr)
		return nil, &common.TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response body: %w", readErr)}
	}

	c.logger.Debug("earthdata request done",
		"endpoint", endpoint, "method", method, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &common.HTTPError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Body:       data,
		}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// buildURL merges baseURL + /api/{version}/ + endpoint + params
func (c *earthDataClient) buildURL(endpoint string, params map[string]string, unversioned bool) (string, error) {
	root := fmt.Sprintf("%s/api/%s/", c.baseURL, c.version)
	if unversioned {
		root = c.baseURL + "/"
	}
	base, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	path, err := url.Parse(strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	fullURL := base.ResolveReference(path)
	q := fullURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	fullURL.RawQuery = q.Encode()
	return fullURL.String(), nil
}

func decodeJSON(endpoint string, data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &common.DecodeError{Endpoint: endpoint, Err: err}
	}
	if v, ok := out.(model.Validator); ok {
		if err := v.Validate(); err != nil {
			return &common.DecodeError{Endpoint: endpoint, Err: err}
		}
	}
	return nil
}
