package engage

import (
	"context"
	"strings"
	"testing"
	"time"

	"TrendMint/internal/cache"
	"TrendMint/internal/llm"
	"TrendMint/internal/runtime"
	"TrendMint/internal/social"
)

type stubSocial struct {
	social.Client

	search   []social.Post
	timeline []social.Post
	posts    map[string]social.Post
	replies  []string
	replyTo  []string
}

func (s *stubSocial) SearchPosts(_ context.Context, _ string, _ int, _ social.SearchMode) ([]social.Post, error) {
	return s.search, nil
}

func (s *stubSocial) HomeTimeline(_ context.Context, _ int) ([]social.Post, error) {
	return s.timeline, nil
}

func (s *stubSocial) GetPost(_ context.Context, id string) (*social.Post, error) {
	post, ok := s.posts[id]
	if !ok {
		post = social.Post{ID: id, Text: "fetched " + id, Author: "someone", AuthorID: "u-" + id, ConversationID: "conv-" + id}
	}
	return &post, nil
}

func (s *stubSocial) PostReply(_ context.Context, text, inReplyToID string) ([]social.Post, error) {
	s.replies = append(s.replies, text)
	s.replyTo = append(s.replyTo, inReplyToID)
	return []social.Post{{ID: "reply-1", Text: text, InReplyToID: inReplyToID}}, nil
}

type stubLLM struct {
	selection string
	reply     string
	prompts   []llm.Request
}

func (s *stubLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	s.prompts = append(s.prompts, req)
	if req.Tier == llm.TierSmall {
		return s.selection, nil
	}
	return s.reply, nil
}

type stubVision struct {
	described []string
}

func (s *stubVision) DescribeImage(_ context.Context, url string) (string, error) {
	s.described = append(s.described, url)
	return "a picture of " + url, nil
}

func testPersona() runtime.Persona {
	return runtime.Persona{
		ID:     "agent-1",
		Name:   "Trend Bot",
		Handle: "trendbot",
		Bio:    "onchain watcher",
		Topics: []string{"ai"},
	}
}

func newTestEngager(t *testing.T, soc *stubSocial, model *stubLLM, vision llm.Vision) (*Engager, cache.Store) {
	t.Helper()
	store := cache.NewMemory()
	persona := testPersona()
	eng, err := New(soc, model, vision, store,
		runtime.NewMemoryStore(store), runtime.NewComposer(persona), nil,
		persona, Config{})
	if err != nil {
		t.Fatalf("New 失败: %v", err)
	}
	return eng, store
}

func TestRunOncePostsReplyAndPersists(t *testing.T) {
	ctx := context.Background()

	selected := social.Post{
		ID: "12345", Author: "alice", AuthorID: "u-1",
		ConversationID: "conv-1", Text: "what do you all think about L2 fees?",
		Photos: []social.Photo{{ID: "p1", URL: "https://img/p1.jpg"}},
	}
	// 重新抓取的完整帖子才带回复链, 里面混着智能体自己的历史发言;
	// 搜索结果里的候选没有这条链, 否则会被当成已参与的会话过滤掉。
	full := selected
	full.Thread = []social.Post{
		{ID: "t1", Author: "bob", Text: "they are too high"},
		{ID: "t2", Author: "trendbot", Text: "my own earlier take"},
	}
	soc := &stubSocial{
		search:   []social.Post{selected, {ID: "67890", Author: "carol", Text: "gm"}},
		timeline: []social.Post{{ID: "tl1", Author: "dave", Text: "timeline post"}},
		posts:    map[string]social.Post{"12345": full},
	}
	model := &stubLLM{selection: "12345 is the best", reply: "fees come down as blobs scale"}
	vision := &stubVision{}
	eng, store := newTestEngager(t, soc, model, vision)

	if err := eng.runOnce(ctx); err != nil {
		t.Fatalf("runOnce 失败: %v", err)
	}

	if len(soc.replies) != 1 || soc.replyTo[0] != "12345" {
		t.Fatalf("回复没有发到选中的帖子: %v %v", soc.replies, soc.replyTo)
	}
	if len(vision.described) != 1 || vision.described[0] != "https://img/p1.jpg" {
		t.Fatalf("图片描述调用不对: %v", vision.described)
	}

	// 大档提示词应包含会话上下文但排除智能体自己的发言。
	large := model.prompts[len(model.prompts)-1].Prompt
	if !strings.Contains(large, "they are too high") {
		t.Error("提示词缺少会话上下文")
	}
	if strings.Contains(large, "my own earlier take") {
		t.Error("提示词不应包含智能体自己的历史发言")
	}
	if !strings.Contains(large, "a picture of") {
		t.Error("提示词缺少图片描述")
	}

	// 追踪记录落盘。
	trace, found, err := store.GetString(ctx, cache.TraceKey("12345"))
	if err != nil || !found {
		t.Fatalf("追踪记录应当存在: found=%v err=%v", found, err)
	}
	if !strings.Contains(trace, "fees come down as blobs scale") {
		t.Fatalf("追踪记录内容不对:\n%s", trace)
	}

	// 会话记忆: 原帖 + 回复各一条。
	convID := runtime.ConversationID("conv-1", "agent-1").String()
	memories, err := runtime.NewMemoryStore(store).ListMemories(ctx, convID)
	if err != nil || len(memories) != 2 {
		t.Fatalf("会话记忆应当有 2 条: err=%v n=%d", err, len(memories))
	}

	// 已回复集合生效。
	if !eng.responded.Has("12345") {
		t.Fatal("帖子应当被标记为已回复")
	}
	stats := eng.Stats()
	if stats.Replies != 1 || stats.LastReplyID != "12345" {
		t.Fatalf("统计不对: %+v", stats)
	}
}

func TestRunOnceSkipsRespondedPosts(t *testing.T) {
	ctx := context.Background()
	soc := &stubSocial{
		search: []social.Post{{ID: "12345", Author: "alice", Text: "hello"}},
	}
	model := &stubLLM{selection: "12345", reply: "hi"}
	eng, _ := newTestEngager(t, soc, model, nil)

	eng.responded.Add("12345")
	if err := eng.runOnce(ctx); err == nil {
		t.Fatal("所有候选都已回复过时应当跳过本轮")
	}
	if len(soc.replies) != 0 {
		t.Fatal("不应重复回复同一个帖子")
	}
}

func TestRunOnceAbortsWhenNoCandidates(t *testing.T) {
	ctx := context.Background()
	soc := &stubSocial{}
	model := &stubLLM{}
	eng, _ := newTestEngager(t, soc, model, nil)

	if err := eng.runOnce(ctx); err == nil {
		t.Fatal("空搜索结果应当跳过本轮")
	}
	if len(model.prompts) != 0 {
		t.Fatal("没有候选时不应调用大模型")
	}
}

func TestRunOnceAbortsOnNoIDMatch(t *testing.T) {
	ctx := context.Background()
	soc := &stubSocial{
		search: []social.Post{{ID: "12345", Author: "alice", Text: "hello"}},
	}
	model := &stubLLM{selection: "99999", reply: "hi"}
	eng, _ := newTestEngager(t, soc, model, nil)

	if err := eng.runOnce(ctx); err == nil {
		t.Fatal("无法匹配候选时应当跳过本轮")
	}
	if len(soc.replies) != 0 {
		t.Fatal("无匹配时不应发帖")
	}
}

func TestRunOnceAbortsOnEmptyReply(t *testing.T) {
	ctx := context.Background()
	soc := &stubSocial{
		search: []social.Post{{ID: "12345", Author: "alice", Text: "hello"}},
		posts:  map[string]social.Post{"12345": {ID: "12345", Author: "alice", AuthorID: "u-1", ConversationID: "c", Text: "hello"}},
	}
	model := &stubLLM{selection: "12345", reply: "   "}
	eng, _ := newTestEngager(t, soc, model, nil)

	if err := eng.runOnce(ctx); err == nil {
		t.Fatal("空回复应当跳过本轮")
	}
	if len(soc.replies) != 0 {
		t.Fatal("空回复不应发帖")
	}
}

func TestRunOnceSkipsOwnThreads(t *testing.T) {
	ctx := context.Background()
	soc := &stubSocial{
		search: []social.Post{{
			ID: "12345", Author: "alice", Text: "hello",
			Thread: []social.Post{{ID: "r1", Author: "trendbot", Text: "already here"}},
		}},
	}
	model := &stubLLM{selection: "12345", reply: "hi"}
	eng, _ := newTestEngager(t, soc, model, nil)

	if err := eng.runOnce(ctx); err == nil {
		t.Fatal("唯一候选已参与过时应当跳过本轮")
	}
	if len(soc.replies) != 0 {
		t.Fatal("不应回到自己参与过的会话")
	}
}

func TestPaceWaitsWithinConfiguredBound(t *testing.T) {
	eng, _ := newTestEngager(t, &stubSocial{}, &stubLLM{}, nil)
	eng.cfg.PacingDelay = 10 * time.Millisecond

	start := time.Now()
	eng.pace(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("停顿时长超出配置上限太多: %v", elapsed)
	}
}

func TestPaceHonorsCancel(t *testing.T) {
	eng, _ := newTestEngager(t, &stubSocial{}, &stubLLM{}, nil)
	eng.cfg.PacingDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		eng.pace(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("取消后停顿应当立即返回")
	}
}

func TestPaceDisabledByZeroValue(t *testing.T) {
	eng, _ := newTestEngager(t, &stubSocial{}, &stubLLM{}, nil)
	eng.cfg.PacingDelay = 0

	start := time.Now()
	eng.pace(context.Background())
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("零值停顿应当直接返回: %v", elapsed)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	soc := &stubSocial{}
	model := &stubLLM{}
	eng, _ := newTestEngager(t, soc, model, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("取消后循环应当退出")
	}
}
