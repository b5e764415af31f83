// Package trendmint provides a thin Go client for the TrendMint REST API.
package trendmint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the TrendMint REST API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

// LaunchSubmission represents the payload required to create a new launch.
// Trend may be empty to let the daemon pick the first unused trend itself.
type LaunchSubmission struct {
	ID    string `json:"id,omitempty"`
	Trend string `json:"trend,omitempty"`
}

// TokenRecord describes a successfully deployed token.
type TokenRecord struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description"`
	SourceTrend string `json:"source_trend"`
	MintAddress string `json:"mint_address"`
	TxHash      string `json:"tx_hash,omitempty"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	LaunchedAt  int64  `json:"launched_at"`
}

// Launch mirrors the server side launch state.
type Launch struct {
	ID         string       `json:"id"`
	Trend      string       `json:"trend,omitempty"`
	Status     string       `json:"status"`
	Attempts   int          `json:"attempts"`
	MaxRetries int          `json:"max_retries"`
	LastError  string       `json:"last_error,omitempty"`
	ErrorCode  string       `json:"error_code,omitempty"`
	Result     *TokenRecord `json:"result,omitempty"`
	CreatedAt  int64        `json:"created_at"`
	UpdatedAt  int64        `json:"updated_at"`
}

// Terminal reports whether the launch reached a final state.
func (l Launch) Terminal() bool {
	return l.Status == "succeeded" || l.Status == "failed"
}

// LaunchedToken is one entry of the launched token log.
type LaunchedToken struct {
	Concept struct {
		Name        string `json:"name"`
		Ticker      string `json:"ticker"`
		Description string `json:"description"`
		SourceTrend string `json:"source_trend"`
	} `json:"concept"`
	MintAddress string `json:"mint_address"`
	TxHash      string `json:"tx_hash,omitempty"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	LaunchedAt  int64  `json:"launched_at"`
}

// LaunchStats aggregates launch counts by status.
type LaunchStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// EngageStats reports the reply workflow counters.
type EngageStats struct {
	Passes       int64  `json:"passes"`
	Replies      int64  `json:"replies"`
	Skipped      int64  `json:"skipped"`
	RespondedIDs int    `json:"responded_ids"`
	LastReplyID  string `json:"last_reply_id,omitempty"`
}

// ChainSnapshot is the latest observed chain state.
type ChainSnapshot struct {
	ChainID     string `json:"chain_id"`
	BlockNumber string `json:"block_number"`
	Notes       string `json:"notes,omitempty"`
}

// Status is the aggregated daemon status report.
type Status struct {
	Launches *LaunchStats   `json:"launches,omitempty"`
	Engage   *EngageStats   `json:"engage,omitempty"`
	Chain    *ChainSnapshot `json:"chain,omitempty"`
	ChainErr string         `json:"chain_error,omitempty"`
	Time     int64          `json:"time"`
}

// ListParams filters the launch listing endpoint.
type ListParams struct {
	Limit    int
	Offset   int
	Statuses []string
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("trendmint api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the TrendMint API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL, apiKey string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("base url must include scheme and host")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, apiKey: apiKey, httpClient: httpClient}, nil
}

// SubmitLaunch creates a new launch request.
func (c *Client) SubmitLaunch(ctx context.Context, submission LaunchSubmission) (Launch, error) {
	var created Launch
	if err := c.post(ctx, "/api/v1/launches", submission, &created); err != nil {
		return Launch{}, err
	}
	return created, nil
}

// GetLaunch fetches launch details by identifier.
func (c *Client) GetLaunch(ctx context.Context, id string) (Launch, error) {
	var detail Launch
	if strings.TrimSpace(id) == "" {
		return Launch{}, errors.New("launch id cannot be empty")
	}
	if err := c.get(ctx, "/api/v1/launches/"+url.PathEscape(id), nil, &detail); err != nil {
		return Launch{}, err
	}
	return detail, nil
}

// ListLaunches returns recent launches filtered by the supplied parameters.
func (c *Client) ListLaunches(ctx context.Context, params ListParams) ([]Launch, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	if len(params.Statuses) > 0 {
		query.Set("status", strings.Join(params.Statuses, ","))
	}
	var launches []Launch
	if err := c.get(ctx, "/api/v1/launches", query, &launches); err != nil {
		return nil, err
	}
	return launches, nil
}

// ListTokens returns every token the daemon has launched so far.
func (c *Client) ListTokens(ctx context.Context) ([]LaunchedToken, error) {
	var tokens []LaunchedToken
	if err := c.get(ctx, "/api/v1/tokens", nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// GetStatus returns the aggregated daemon status.
func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	var status Status
	if err := c.get(ctx, "/api/v1/status", nil, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// WaitForLaunch polls the launch until it reaches a terminal state.
func (c *Client) WaitForLaunch(ctx context.Context, id string, interval time.Duration) (Launch, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		detail, err := c.GetLaunch(ctx, id)
		if err != nil {
			return Launch{}, err
		}
		if detail.Terminal() {
			return detail, nil
		}
		select {
		case <-ctx.Done():
			return Launch{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("read error response: %w", readErr)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
