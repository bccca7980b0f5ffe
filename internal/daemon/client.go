package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/breathsave/breathsave/internal/model"
)

const (
	requestTimeout = 5 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrNotLoaded means the daemon is up but has no dataset yet.
	ErrNotLoaded = errors.New("daemon: dataset not loaded")
	// ErrEngine means an analytics engine rejected the dataset or the request.
	ErrEngine = errors.New("daemon: engine error")
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("daemon: %s (HTTP %d)", e.Message, e.Status)
}

// Unwrap maps 503 and 422 responses to ErrNotLoaded and ErrEngine.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusServiceUnavailable:
		return ErrNotLoaded
	case http.StatusUnprocessableEntity:
		return ErrEngine
	}
	return nil
}

// Client queries a running daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for addr, either host:port or a full URL.
func NewClient(addr string) *Client {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: addr,
		http:    &http.Client{},
	}
}

// Status returns the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.get(ctx, "/v1/status", nil, &st)
	return st, err
}

// Overview returns the community headline numbers.
func (c *Client) Overview(ctx context.Context) (model.OverviewStats, error) {
	var ov model.OverviewStats
	err := c.get(ctx, "/v1/overview", nil, &ov)
	return ov, err
}

// Metrics returns the fitted savings model's metrics.
func (c *Client) Metrics(ctx context.Context) (model.RegressionMetrics, error) {
	var m model.RegressionMetrics
	err := c.get(ctx, "/v1/metrics", nil, &m)
	return m, err
}

// Predictions returns predicted savings for each cigarette count.
func (c *Client) Predictions(ctx context.Context, xs ...float64) ([]Prediction, error) {
	q := url.Values{}
	for _, x := range xs {
		q.Add("x", strconv.FormatFloat(x, 'f', -1, 64))
	}
	var out []Prediction
	err := c.get(ctx, "/v1/predictions", q, &out)
	return out, err
}

// get performs a GET request and decodes the JSON response into v.
func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("daemon: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("daemon: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("daemon: parsing %s: %w", path, err)
	}
	return nil
}
