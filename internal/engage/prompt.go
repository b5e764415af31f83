package engage

import (
	"fmt"
	"strings"

	"TrendMint/internal/social"
)

// buildSelectionPrompt 构造帖子挑选提示词, 由小档模型回答。
func buildSelectionPrompt(topic string, candidates []social.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "下面是围绕话题 %q 抓取到的帖子列表:\n\n", topic)
	for _, post := range candidates {
		fmt.Fprintf(&b, "ID: %s\nFrom: @%s\nText: %s\n", post.ID, post.Author, summarize(post))
		fmt.Fprintf(&b, "Photos: %d, Links: %d, Retweet: %v\n\n",
			len(post.Photos), len(post.URLs), post.IsRetweet)
	}
	b.WriteString("从中挑出一条最有意思、最值得回复的帖子。优先选择:\n")
	b.WriteString("- 英文内容\n")
	b.WriteString("- 话题标签、链接和图片较少的\n")
	b.WriteString("- 非转发的原创内容\n")
	b.WriteString("- 容易自然地接上话的\n\n")
	b.WriteString("只输出选中帖子的 ID, 不要输出其他任何内容。")
	return b.String()
}

func summarize(post social.Post) string {
	text := strings.ReplaceAll(post.Text, "\n", " ")
	runes := []rune(text)
	if len(runes) > 280 {
		return string(runes[:280]) + "…"
	}
	return text
}
