package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TrendMint/internal/social"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		Timeout:       5 * time.Second,
		RatePerMinute: 6000,
		RateBurst:     100,
		MaxRetries:    2,
	})
	if err != nil {
		t.Fatalf("NewClient 失败: %v", err)
	}
	client.httpClient = srv.Client()
	return client, srv
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("缺少 BaseURL 时应当返回错误")
	}
}

func TestGetTrends(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/trends" {
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("意外的鉴权头: %q", got)
		}
		json.NewEncoder(w).Encode([]social.Trend{
			{Name: "AI", TweetVolume: 120},
			{Name: "Web3", TweetVolume: 80},
		})
	}))

	trends, err := client.GetTrends(context.Background())
	if err != nil {
		t.Fatalf("GetTrends 失败: %v", err)
	}
	if len(trends) != 2 || trends[0].Name != "AI" || trends[1].Name != "Web3" {
		t.Fatalf("意外的热点列表: %+v", trends)
	}
}

func TestSearchPostsParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "golang" || q.Get("limit") != "20" || q.Get("mode") != "latest" {
			t.Errorf("意外的查询参数: %v", q)
		}
		json.NewEncoder(w).Encode([]social.Post{{ID: "1", Text: "hello"}})
	}))

	posts, err := client.SearchPosts(context.Background(), "golang", 20, social.SearchModeLatest)
	if err != nil {
		t.Fatalf("SearchPosts 失败: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "1" {
		t.Fatalf("意外的搜索结果: %+v", posts)
	}
}

func TestSearchPostsEmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("空查询不应发起请求")
	}))
	if _, err := client.SearchPosts(context.Background(), "  ", 10, social.SearchModeTop); err == nil {
		t.Fatal("空查询应当返回错误")
	}
}

func TestPostReplyBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/posts" {
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		if body["text"] != "nice thread" || body["in_reply_to_id"] != "42" {
			t.Errorf("意外的请求体: %v", body)
		}
		json.NewEncoder(w).Encode([]social.Post{{ID: "100", InReplyToID: "42"}})
	}))

	posts, err := client.PostReply(context.Background(), "nice thread", "42")
	if err != nil {
		t.Fatalf("PostReply 失败: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "100" {
		t.Fatalf("意外的发帖结果: %+v", posts)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]social.Trend{{Name: "AI"}})
	}))

	trends, err := client.GetTrends(context.Background())
	if err != nil {
		t.Fatalf("重试后仍然失败: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("意外的结果: %+v", trends)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("期望 3 次请求, 实际 %d 次", got)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := client.GetPost(context.Background(), "missing"); err == nil {
		t.Fatal("404 应当返回错误")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx 不应重试, 实际请求 %d 次", got)
	}
}
