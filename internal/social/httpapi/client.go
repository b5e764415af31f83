package httpapi

import (
	"bytes"
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

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	xerrors "TrendMint/internal/errors"
	"TrendMint/internal/social"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 8 * time.Second
)

// Config 描述社交侧车服务的连接参数。
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerMinute float64
	RateBurst     int
	MaxRetries    int
}

// Client 通过 HTTP 访问社交平台侧车服务。
//
// 所有出站请求先经过令牌桶限流器，再经过有界退避重试策略，取代上游
// 实现里用固定 sleep 伪装的限流。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   failsafe.Executor[*http.Response]
}

// NewClient 创建社交客户端。
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("未配置社交侧车服务地址")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(defaultBaseDelay, defaultMaxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			return shouldRetry(resp, err)
		}).
		Build()

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perMinute/60.0), burst),
		executor:   failsafe.With(retry),
	}, nil
}

// shouldRetry 只把网络错误、服务端错误和限流响应视为瞬时故障。
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// GetTrends 实现 social.Client 接口。
func (c *Client) GetTrends(ctx context.Context) ([]social.Trend, error) {
	var trends []social.Trend
	if err := c.getJSON(ctx, "/api/trends", nil, &trends); err != nil {
		return nil, err
	}
	return trends, nil
}

// SearchPosts 实现 social.Client 接口。
func (c *Client) SearchPosts(ctx context.Context, query string, limit int, mode social.SearchMode) ([]social.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "搜索关键词不能为空")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	if mode != "" {
		params.Set("mode", string(mode))
	}
	var posts []social.Post
	if err := c.getJSON(ctx, "/api/search", params, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// HomeTimeline 实现 social.Client 接口。
func (c *Client) HomeTimeline(ctx context.Context, limit int) ([]social.Post, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	var posts []social.Post
	if err := c.getJSON(ctx, "/api/timeline", params, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost 实现 social.Client 接口。
func (c *Client) GetPost(ctx context.Context, id string) (*social.Post, error) {
	if strings.TrimSpace(id) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "帖子 ID 不能为空")
	}
	var post social.Post
	if err := c.getJSON(ctx, "/api/posts/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// PostReply 实现 social.Client 接口。
func (c *Client) PostReply(ctx context.Context, text, inReplyToID string) ([]social.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "回复内容不能为空")
	}
	payload, err := json.Marshal(map[string]string{
		"text":           text,
		"in_reply_to_id": inReplyToID,
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化回复请求失败")
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/posts", nil, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var posts []social.Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "解析发帖响应失败")
	}
	return posts, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	resp, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "解析侧车响应失败")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "等待限流器超时")
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := c.executor.WithContext(ctx).GetWithExecution(func(_ failsafe.Execution[*http.Response]) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if reqErr != nil {
			return nil, reqErr
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		res, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// 连续重试前丢弃失败响应，避免连接泄漏。
		if shouldRetry(res, nil) {
			io.Copy(io.Discard, io.LimitReader(res.Body, 2048))
			res.Body.Close()
		}
		return res, nil
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, fmt.Sprintf("请求社交侧车失败: %s %s", method, path))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, xerrors.New(xerrors.CodeRateLimited, "社交侧车限流", xerrors.WithMetadata("path", path))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, xerrors.New(xerrors.CodeUpstreamFailure,
			fmt.Sprintf("社交侧车返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	return resp, nil
}

var _ social.Client = (*Client)(nil)
