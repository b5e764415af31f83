package social

import (
	"context"
	"time"
)

// SearchMode 控制搜索接口返回结果的排序方式。
type SearchMode string

const (
	SearchModeLatest SearchMode = "latest"
	SearchModeTop    SearchMode = "top"
)

// Trend 表示平台上报的一个热门话题。
type Trend struct {
	Name        string `json:"name"`
	Promoted    bool   `json:"promoted"`
	Query       string `json:"query"`
	TweetVolume int64  `json:"tweet_volume"`
}

// Photo 表示帖子携带的一张图片。
type Photo struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Post 表示一条社交帖子及其上下文。Thread 为按时间排列的完整回复链，
// 由平台客户端负责沿父帖关系向外展开。
type Post struct {
	ID             string    `json:"id"`
	Author         string    `json:"username"`
	AuthorID       string    `json:"user_id"`
	Name           string    `json:"name"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	Thread         []Post    `json:"thread,omitempty"`
	Photos         []Photo   `json:"photos,omitempty"`
	URLs           []string  `json:"urls,omitempty"`
	IsRetweet      bool      `json:"is_retweet"`
	RetweetedID    string    `json:"retweeted_id,omitempty"`
	InReplyToID    string    `json:"in_reply_to_id,omitempty"`
	Permalink      string    `json:"permalink,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Client 定义了两个工作流消费的社交平台能力。
// 实现方负责鉴权、抓取与反序列化，调用方不关心平台细节。
type Client interface {
	GetTrends(ctx context.Context) ([]Trend, error)
	SearchPosts(ctx context.Context, query string, limit int, mode SearchMode) ([]Post, error)
	HomeTimeline(ctx context.Context, limit int) ([]Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	PostReply(ctx context.Context, text, inReplyToID string) ([]Post, error)
}
