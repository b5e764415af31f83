package runtime

import (
	"fmt"
	"strings"

	"TrendMint/internal/social"
)

// TweetContext 汇总回复生成所需的推文上下文。
type TweetContext struct {
	Post              social.Post
	ThreadTexts       []string
	QuotedText        string
	ImageDescriptions []string
}

// State 是一次回复生成的完整上下文快照。
type State struct {
	Persona      Persona
	Timeline     []social.Post
	TweetContext TweetContext
}

// Composer 把结构化上下文渲染成提示词模板。
type Composer struct {
	persona Persona
}

// NewComposer 创建状态合成器。
func NewComposer(persona Persona) *Composer {
	return &Composer{persona: persona}
}

// ComposeState 合并人设、时间线和推文上下文。
func (c *Composer) ComposeState(timeline []social.Post, tweetCtx TweetContext) State {
	return State{
		Persona:      c.persona,
		Timeline:     timeline,
		TweetContext: tweetCtx,
	}
}

// RenderReplyPrompt 渲染回复生成提示词, 供大模型档位调用。
func (c *Composer) RenderReplyPrompt(state State) string {
	var b strings.Builder

	p := state.Persona
	fmt.Fprintf(&b, "你是 %s (@%s)。%s\n", p.Name, strings.TrimPrefix(p.Handle, "@"), p.Bio)
	if len(p.Style) > 0 {
		fmt.Fprintf(&b, "写作风格:\n")
		for _, rule := range p.Style {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}

	if len(state.Timeline) > 0 {
		b.WriteString("\n你最近看到的时间线:\n")
		for i, post := range state.Timeline {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "- @%s: %s\n", post.Author, truncate(post.Text, 160))
		}
	}

	tc := state.TweetContext
	b.WriteString("\n需要回复的帖子:\n")
	fmt.Fprintf(&b, "@%s: %s\n", tc.Post.Author, tc.Post.Text)

	if len(tc.ThreadTexts) > 0 {
		b.WriteString("\n该帖所在会话的上下文:\n")
		for _, text := range tc.ThreadTexts {
			fmt.Fprintf(&b, "- %s\n", text)
		}
	}
	if strings.TrimSpace(tc.QuotedText) != "" {
		fmt.Fprintf(&b, "\n该帖转发的原帖内容:\n%s\n", tc.QuotedText)
	}
	if len(tc.ImageDescriptions) > 0 {
		b.WriteString("\n帖子附带图片的描述:\n")
		for i, desc := range tc.ImageDescriptions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, desc)
		}
	}

	b.WriteString("\n请以你的人设写一条简短自然的回复, 直接输出回复正文, 不要任何解释或引号, 不超过 280 个字符。")
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
