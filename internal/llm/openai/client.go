package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TrendMint/internal/llm"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultSmallModel  = "gpt-4o-mini"
	defaultLargeModel  = "gpt-4o"
	defaultVisionModel = "gpt-4o-mini"
	defaultTimeout     = 60 * time.Second
)

// Config 描述了调用 OpenAI Chat Completions API 所需的信息。
type Config struct {
	APIKey      string
	BaseURL     string
	SmallModel  string
	LargeModel  string
	VisionModel string
	Timeout     time.Duration
}

// Client 通过 HTTP 调用 OpenAI 兼容接口，按档位选择模型。
type Client struct {
	apiKey      string
	baseURL     string
	smallModel  string
	largeModel  string
	visionModel string
	httpClient  *http.Client
}

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 OpenAI API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	small := strings.TrimSpace(cfg.SmallModel)
	if small == "" {
		small = defaultSmallModel
	}
	large := strings.TrimSpace(cfg.LargeModel)
	if large == "" {
		large = defaultLargeModel
	}
	vision := strings.TrimSpace(cfg.VisionModel)
	if vision == "" {
		vision = defaultVisionModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		smallModel:  small,
		largeModel:  large,
		visionModel: vision,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Generate 调用补全接口并返回原始文本输出。
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := c.smallModel
	if req.Tier == llm.TierLarge {
		model = c.largeModel
	}

	body := map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "user", "content": req.Prompt},
		},
		"temperature": 0.7,
	}
	return c.complete(ctx, body)
}

// DescribeImage 通过多模态消息让模型描述一张图片。
func (c *Client) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	if strings.TrimSpace(imageURL) == "" {
		return "", errors.New("图片 URL 不能为空")
	}

	body := map[string]any{
		"model": c.visionModel,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": "Describe this image in one or two sentences."},
					{"type": "image_url", "image_url": map[string]any{"url": imageURL}},
				},
			},
		},
		"temperature": 0.2,
	}
	return c.complete(ctx, body)
}

func (c *Client) complete(ctx context.Context, body map[string]any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("序列化 OpenAI 请求失败: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("构建 OpenAI 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("请求 OpenAI 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("OpenAI 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("解析 OpenAI 响应失败: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("OpenAI 响应中没有有效的 choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("OpenAI 响应内容为空")
	}
	return content, nil
}

var (
	_ llm.Client = (*Client)(nil)
	_ llm.Vision = (*Client)(nil)
)
