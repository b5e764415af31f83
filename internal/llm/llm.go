package llm

import "context"

// Tier 表示一次推理调用的质量/成本档位。候选排序等低价值调用使用
// TierSmall，正式生成内容使用 TierLarge。
type Tier string

const (
	TierSmall Tier = "small"
	TierLarge Tier = "large"
)

// Request 描述发送给大模型的一次补全请求。
type Request struct {
	Prompt string
	Tier   Tier
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Vision 定义图片描述能力，由支持多模态的客户端实现。
type Vision interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}
