package engage

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"TrendMint/internal/cache"
	xerrors "TrendMint/internal/errors"
	"TrendMint/internal/llm"
	"TrendMint/internal/runtime"
	"TrendMint/internal/social"
	"TrendMint/pkg/logger"
)

// Config 控制回复工作流的节奏和抓取规模。
type Config struct {
	// MinInterval 和 MaxInterval 界定两轮之间的随机等待区间。
	MinInterval time.Duration
	MaxInterval time.Duration
	// SearchLimit 是单轮抓取的搜索结果上限。
	SearchLimit int
	// TimelineLimit 是单轮抓取的主页时间线上限。
	TimelineLimit int
	// PacingDelay 是发帖后的最大随机停顿, 零值关闭停顿。
	PacingDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.MinInterval <= 0 {
		c.MinInterval = 60 * time.Minute
	}
	if c.MaxInterval <= c.MinInterval {
		c.MaxInterval = c.MinInterval + 60*time.Minute
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 20
	}
	if c.TimelineLimit <= 0 {
		c.TimelineLimit = 50
	}
}

// Stats 汇报工作流的运行状况, 供状态接口查询。
type Stats struct {
	Passes       int64      `json:"passes"`
	Replies      int64      `json:"replies"`
	Skipped      int64      `json:"skipped"`
	RespondedIDs int        `json:"responded_ids"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastReplyID  string     `json:"last_reply_id,omitempty"`
}

// Engager 实现搜索回复工作流。
type Engager struct {
	social     social.Client
	llm        llm.Client
	vision     llm.Vision
	store      cache.Store
	memories   *runtime.MemoryStore
	composer   *runtime.Composer
	dispatcher *runtime.Dispatcher
	persona    runtime.Persona
	cfg        Config
	log        *slog.Logger

	rng       *rand.Rand
	rngMu     sync.Mutex
	responded *respondedSet

	statsMu sync.Mutex
	stats   Stats
}

// New 创建回复工作流。vision 和 dispatcher 可以为空。
func New(socialClient social.Client, llmClient llm.Client, vision llm.Vision,
	store cache.Store, memories *runtime.MemoryStore, composer *runtime.Composer,
	dispatcher *runtime.Dispatcher, persona runtime.Persona, cfg Config) (*Engager, error) {

	if socialClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置社交客户端")
	}
	if llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	if store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置缓存存储")
	}
	if memories == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置记忆存储")
	}
	if composer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置状态合成器")
	}
	if err := persona.Validate(); err != nil {
		return nil, err
	}
	if len(persona.Topics) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "话题列表不能为空")
	}
	cfg.applyDefaults()

	return &Engager{
		social:     socialClient,
		llm:        llmClient,
		vision:     vision,
		store:      store,
		memories:   memories,
		composer:   composer,
		dispatcher: dispatcher,
		persona:    persona,
		cfg:        cfg,
		log:        logger.Named("engage"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		responded:  newRespondedSet(),
	}, nil
}

// Stats 返回当前统计快照。
func (e *Engager) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	snapshot := e.stats
	snapshot.RespondedIDs = e.responded.Len()
	return snapshot
}

func (e *Engager) randomDelay() time.Duration {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	span := e.cfg.MaxInterval - e.cfg.MinInterval
	return e.cfg.MinInterval + time.Duration(e.rng.Int63n(int64(span)+1))
}

// Run 是自我调度的常驻循环: 随机等待、跑一轮、无论成败都继续排期。
// 每个挂起点都观察 ctx, 进程退出时循环立即结束。
func (e *Engager) Run(ctx context.Context) {
	for {
		delay := e.randomDelay()
		e.log.Info("下一轮回复已排期", "delay", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.log.Info("回复工作流退出", "reason", ctx.Err())
			return
		case <-timer.C:
		}

		e.runPass(ctx)

		if ctx.Err() != nil {
			e.log.Info("回复工作流退出", "reason", ctx.Err())
			return
		}
	}
}

// runPass 执行一轮并吞掉所有错误, 循环的调度不受单轮结果影响。
func (e *Engager) runPass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("回复流程发生 panic", "panic", fmt.Sprint(r))
		}
	}()

	e.statsMu.Lock()
	e.stats.Passes++
	now := time.Now()
	e.stats.LastRunAt = &now
	e.statsMu.Unlock()

	if err := e.runOnce(ctx); err != nil {
		e.statsMu.Lock()
		e.stats.Skipped++
		e.statsMu.Unlock()
		e.log.Warn("本轮回复跳过", "error", err)
	}
}

func (e *Engager) runOnce(ctx context.Context) error {
	topic, err := e.pickTopic()
	if err != nil {
		return err
	}
	e.log.Info("开始一轮回复", "topic", topic)

	searchResults, err := e.social.SearchPosts(ctx, topic, e.cfg.SearchLimit, social.SearchModeTop)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "搜索帖子失败")
	}
	timeline, err := e.social.HomeTimeline(ctx, e.cfg.TimelineLimit)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "拉取时间线失败")
	}
	if err := e.store.SetJSON(ctx, cache.KeyTimeline, timeline); err != nil {
		e.log.Warn("缓存时间线失败", "error", err)
	}

	candidates := e.shuffledCandidates(searchResults)
	if len(candidates) == 0 {
		return xerrors.New(xerrors.CodeNotFound, "没有可用的搜索结果")
	}

	pool := e.filterPool(append(candidates, timeline...))
	if len(pool) == 0 {
		return xerrors.New(xerrors.CodeNotFound, "过滤后没有剩余候选")
	}

	selection, err := e.llm.Generate(ctx, llm.Request{
		Prompt: buildSelectionPrompt(topic, pool),
		Tier:   llm.TierSmall,
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "候选挑选失败")
	}

	selected, err := MatchPost(selection, pool)
	if err != nil {
		return err
	}
	if e.persona.IsSelf(selected.Author) {
		return xerrors.New(xerrors.CodeConflict, "选中了智能体自己的帖子")
	}

	conversationID := runtime.ConversationID(selected.ConversationID, e.persona.ID).String()
	if err := e.memories.EnsureConnection(ctx, selected.AuthorID, selected.Author); err != nil {
		return err
	}

	// 重新抓取选中帖子, 拿到完整的回复链。
	full, err := e.social.GetPost(ctx, selected.ID)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "拉取完整帖子失败")
	}
	if strings.TrimSpace(full.Text) == "" {
		return xerrors.New(xerrors.CodeNotFound, "选中的帖子没有文本内容")
	}

	tweetCtx, err := e.buildTweetContext(ctx, full)
	if err != nil {
		return err
	}

	state := e.composer.ComposeState(timeline, tweetCtx)
	reply, err := e.llm.Generate(ctx, llm.Request{
		Prompt: e.composer.RenderReplyPrompt(state),
		Tier:   llm.TierLarge,
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "回复生成失败")
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return xerrors.New(xerrors.CodeValidationFailure, "生成的回复为空")
	}

	posted, err := e.social.PostReply(ctx, reply, full.ID)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "发布回复失败")
	}

	e.persistInteraction(ctx, conversationID, full, posted, reply)

	if e.dispatcher != nil {
		e.dispatcher.Dispatch(ctx, state, reply)
	}

	e.responded.Add(full.ID)
	e.statsMu.Lock()
	e.stats.Replies++
	e.stats.LastReplyID = full.ID
	e.statsMu.Unlock()

	logger.Audit().Info("reply_posted",
		"post_id", full.ID,
		"author", full.Author,
		"topic", topic,
		"conversation_id", conversationID,
	)

	e.pace(ctx)
	return nil
}

func (e *Engager) pickTopic() (string, error) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.persona.RandomTopic(e.rng)
}

// shuffledCandidates 取搜索结果的前 SearchLimit 条并打乱顺序。
func (e *Engager) shuffledCandidates(results []social.Post) []social.Post {
	limit := e.cfg.SearchLimit
	if len(results) < limit {
		limit = len(results)
	}
	candidates := make([]social.Post, limit)
	copy(candidates, results[:limit])

	e.rngMu.Lock()
	e.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	e.rngMu.Unlock()
	return candidates
}

// filterPool 剔除已参与的会话、已回复过的帖子和重复项。
func (e *Engager) filterPool(pool []social.Post) []social.Post {
	filtered := ExcludeOwnThreads(pool, e.persona)
	seen := make(map[string]struct{}, len(filtered))
	kept := make([]social.Post, 0, len(filtered))
	for _, post := range filtered {
		if post.ID == "" || e.responded.Has(post.ID) {
			continue
		}
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		kept = append(kept, post)
	}
	return kept
}

// buildTweetContext 汇总回复链上下文、转发原文和图片描述。
// 图片描述按顺序逐张获取, 单张失败不阻断其余上下文。
func (e *Engager) buildTweetContext(ctx context.Context, post *social.Post) (runtime.TweetContext, error) {
	tweetCtx := runtime.TweetContext{Post: *post}

	for _, reply := range post.Thread {
		if e.persona.IsSelf(reply.Author) {
			continue
		}
		if text := strings.TrimSpace(reply.Text); text != "" {
			tweetCtx.ThreadTexts = append(tweetCtx.ThreadTexts, fmt.Sprintf("@%s: %s", reply.Author, text))
		}
	}

	if post.IsRetweet && post.RetweetedID != "" {
		original, err := e.social.GetPost(ctx, post.RetweetedID)
		if err != nil {
			e.log.Warn("拉取转发原帖失败", "id", post.RetweetedID, "error", err)
		} else if original != nil {
			tweetCtx.QuotedText = original.Text
		}
	}

	if e.vision != nil {
		for _, photo := range post.Photos {
			if ctx.Err() != nil {
				return tweetCtx, ctx.Err()
			}
			desc, err := e.vision.DescribeImage(ctx, photo.URL)
			if err != nil {
				e.log.Warn("图片描述失败", "url", photo.URL, "error", err)
				continue
			}
			tweetCtx.ImageDescriptions = append(tweetCtx.ImageDescriptions, desc)
		}
	}

	return tweetCtx, nil
}

// persistInteraction 把交互双方的消息写入记忆并留下可读追踪。
// 持久化失败只记录日志, 回复本身已经成功。
func (e *Engager) persistInteraction(ctx context.Context, conversationID string, source *social.Post, posted []social.Post, reply string) {
	if err := e.memories.CreateMemory(ctx, runtime.Memory{
		ConversationID: conversationID,
		AuthorID:       source.AuthorID,
		PostID:         source.ID,
		Text:           source.Text,
	}); err != nil {
		e.log.Warn("持久化原帖记忆失败", "error", err)
	}

	replyID := ""
	for _, msg := range posted {
		replyID = msg.ID
		if err := e.memories.CreateMemory(ctx, runtime.Memory{
			ConversationID: conversationID,
			AuthorID:       e.persona.ID,
			PostID:         msg.ID,
			Text:           msg.Text,
		}); err != nil {
			e.log.Warn("持久化回复记忆失败", "error", err)
		}
	}

	trace := buildTrace(source, reply, replyID)
	if err := e.store.SetString(ctx, cache.TraceKey(source.ID), trace); err != nil {
		e.log.Warn("写入追踪记录失败", "error", err)
	}
}

func buildTrace(source *social.Post, reply, replyID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Selected Post: %s\n", source.ID)
	fmt.Fprintf(&b, "From: @%s\n", source.Author)
	fmt.Fprintf(&b, "Text: %s\n\n", source.Text)
	fmt.Fprintf(&b, "Agent's Output:\n%s\n", reply)
	if replyID != "" {
		fmt.Fprintf(&b, "\nReply ID: %s\n", replyID)
	}
	return b.String()
}

// pace 发帖后的随机停顿, 等待期间同样响应取消。
func (e *Engager) pace(ctx context.Context) {
	if e.cfg.PacingDelay <= 0 {
		return
	}
	e.rngMu.Lock()
	delay := time.Duration(e.rng.Int63n(int64(e.cfg.PacingDelay)) + 1)
	e.rngMu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
