package runtime

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"TrendMint/internal/cache"
	"TrendMint/internal/social"
)

func TestConversationIDDeterministic(t *testing.T) {
	first := ConversationID("conv-1", "agent-a")
	second := ConversationID("conv-1", "agent-a")
	if first != second {
		t.Fatalf("同样输入应当得到同样的会话 ID: %s != %s", first, second)
	}
	other := ConversationID("conv-2", "agent-a")
	if first == other {
		t.Fatal("不同会话不应得到同一个 ID")
	}
	if ConversationID("conv-1", "agent-b") == first {
		t.Fatal("不同智能体不应得到同一个 ID")
	}
}

func TestPersonaRandomTopic(t *testing.T) {
	persona := Persona{ID: "a", Handle: "bot", Topics: []string{"ai", "web3"}}
	rng := rand.New(rand.NewSource(1))
	topic, err := persona.RandomTopic(rng)
	if err != nil {
		t.Fatalf("RandomTopic 失败: %v", err)
	}
	if topic != "ai" && topic != "web3" {
		t.Fatalf("意外的话题: %s", topic)
	}

	empty := Persona{ID: "a", Handle: "bot"}
	if _, err := empty.RandomTopic(rng); err == nil {
		t.Fatal("空话题列表应当返回错误")
	}
}

func TestPersonaIsSelf(t *testing.T) {
	persona := Persona{ID: "a", Handle: "TrendBot"}
	cases := map[string]bool{
		"TrendBot":  true,
		"trendbot":  true,
		"@TrendBot": true,
		"other":     false,
		"":          false,
	}
	for handle, want := range cases {
		if got := persona.IsSelf(handle); got != want {
			t.Errorf("IsSelf(%q) = %v, 期望 %v", handle, got, want)
		}
	}
}

func TestMemoryStoreEnsureConnection(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	memories := NewMemoryStore(store)

	if err := memories.EnsureConnection(ctx, "user-1", "alice"); err != nil {
		t.Fatalf("EnsureConnection 失败: %v", err)
	}

	var conn Connection
	found, err := store.GetJSON(ctx, cache.ConnectionKey("user-1"), &conn)
	if err != nil || !found {
		t.Fatalf("连接记录应当存在: found=%v err=%v", found, err)
	}
	created := conn.CreatedAt

	// 再次调用不应覆盖已有记录。
	if err := memories.EnsureConnection(ctx, "user-1", "renamed"); err != nil {
		t.Fatalf("重复 EnsureConnection 失败: %v", err)
	}
	if _, err := store.GetJSON(ctx, cache.ConnectionKey("user-1"), &conn); err != nil {
		t.Fatalf("读取连接记录失败: %v", err)
	}
	if conn.Handle != "alice" || conn.CreatedAt != created {
		t.Fatalf("已有连接记录被覆盖: %+v", conn)
	}
}

func TestMemoryStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	memories := NewMemoryStore(store)

	convID := ConversationID("conv-9", "agent-a").String()
	for _, text := range []string{"first", "second"} {
		if err := memories.CreateMemory(ctx, Memory{
			ConversationID: convID,
			AuthorID:       "user-1",
			Text:           text,
		}); err != nil {
			t.Fatalf("CreateMemory 失败: %v", err)
		}
	}

	listed, err := memories.ListMemories(ctx, convID)
	if err != nil {
		t.Fatalf("ListMemories 失败: %v", err)
	}
	if len(listed) != 2 || listed[0].Text != "first" || listed[1].Text != "second" {
		t.Fatalf("记忆顺序或内容不对: %+v", listed)
	}
	if listed[0].ID == "" || listed[0].CreatedAt == 0 {
		t.Fatalf("记忆应当补全 ID 和时间戳: %+v", listed[0])
	}
}

func TestSettingsConfigValueWinsOverEnv(t *testing.T) {
	t.Setenv("TRENDMINT_TEST_KEY", "from-env")

	settings := NewSettings(map[string]string{"TRENDMINT_TEST_KEY": "from-config"})
	if v, ok := settings.GetSetting("TRENDMINT_TEST_KEY"); !ok || v != "from-config" {
		t.Fatalf("配置值应当优先于环境变量: %q %v", v, ok)
	}

	// 配置里只有空白时回落到环境变量。
	blank := NewSettings(map[string]string{"TRENDMINT_TEST_KEY": "  "})
	if v, ok := blank.GetSetting("TRENDMINT_TEST_KEY"); !ok || v != "from-env" {
		t.Fatalf("空白配置值应当回落到环境变量: %q %v", v, ok)
	}
}

func TestSettingsEnvFallbackAndMiss(t *testing.T) {
	t.Setenv("TRENDMINT_TEST_FALLBACK", "env-only")

	settings := NewSettings(nil)
	if v, ok := settings.GetSetting("TRENDMINT_TEST_FALLBACK"); !ok || v != "env-only" {
		t.Fatalf("应当从环境变量兜底: %q %v", v, ok)
	}
	if _, ok := settings.GetSetting("TRENDMINT_TEST_MISSING"); ok {
		t.Fatal("两边都没有的设置项应当返回未命中")
	}

	var nilSettings *Settings
	if _, ok := nilSettings.GetSetting("TRENDMINT_TEST_MISSING"); ok {
		t.Fatal("空接收者也应当安全返回未命中")
	}
}

func TestSettingsSetOverrides(t *testing.T) {
	settings := NewSettings(nil)
	settings.SetSetting("SOCIAL_API_KEY", "first")
	settings.SetSetting("SOCIAL_API_KEY", "second")

	if v, ok := settings.GetSetting("SOCIAL_API_KEY"); !ok || v != "second" {
		t.Fatalf("后写入的值应当覆盖前值: %q %v", v, ok)
	}
}

func TestRenderReplyPrompt(t *testing.T) {
	persona := Persona{ID: "a", Name: "Trend Bot", Handle: "trendbot", Bio: "链上观察者", Style: []string{"简洁"}, Topics: []string{"ai"}}
	composer := NewComposer(persona)

	state := composer.ComposeState(
		[]social.Post{{Author: "alice", Text: "gm"}},
		TweetContext{
			Post:              social.Post{Author: "bob", Text: "what do you think about L2 fees?"},
			ThreadTexts:       []string{"earlier context"},
			QuotedText:        "original post",
			ImageDescriptions: []string{"a chart trending up"},
		},
	)
	prompt := composer.RenderReplyPrompt(state)

	for _, fragment := range []string{
		"Trend Bot", "@trendbot", "简洁",
		"@alice: gm",
		"@bob: what do you think about L2 fees?",
		"earlier context", "original post", "a chart trending up",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("提示词缺少片段 %q", fragment)
		}
	}
}
