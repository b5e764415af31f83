package minter

import (
	"fmt"
	"strings"
)

// buildConceptPrompt 构造代币概念生成提示词, 格式约束直接写进提示里,
// 解析侧仍然按同样的约束做校验。
func buildConceptPrompt(trend string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "围绕当前的社交平台热点话题 %q 构思一个 meme 代币概念。\n\n", trend)
	b.WriteString("要求:\n")
	b.WriteString("- name: 代币名称, 不超过 32 个字符, 朗朗上口\n")
	b.WriteString("- ticker: 代币符号, 3 到 5 个英文字母, 不含数字和符号\n")
	b.WriteString("- description: 一句话描述这个代币的梗\n")
	b.WriteString("- imagePrompt: 用于生成代币图标的英文绘图提示词\n\n")
	b.WriteString("只输出一个 JSON 对象, 形如:\n")
	b.WriteString(`{"name":"...","ticker":"...","description":"...","imagePrompt":"..."}`)
	b.WriteString("\n不要输出其他任何内容。")
	return b.String()
}

// buildAnnouncement 构造固定格式的发射公告。
func buildAnnouncement(launched Launched) string {
	return fmt.Sprintf("🚀 New token launched: %s ($%s) - %s\nMint: %s",
		launched.Concept.Name, launched.Concept.Ticker,
		launched.Concept.Description, launched.MintAddress)
}
