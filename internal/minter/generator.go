package minter

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"TrendMint/internal/cache"
	xerrors "TrendMint/internal/errors"
	"TrendMint/internal/llm"
	"TrendMint/internal/social"
	"TrendMint/internal/web3"
	"TrendMint/pkg/logger"
)

// 无候选与无效响应属于正常业务信号, 调用方据此跳过本轮, 不向上抛出。
var (
	// ErrNoUnusedTrend 表示当前热点列表里没有未用过的话题。
	ErrNoUnusedTrend = xerrors.New(xerrors.CodeNotFound, "没有未使用的热点话题")
	// ErrInvalidConcept 表示大模型产出的代币概念没有通过校验。
	ErrInvalidConcept = xerrors.New(xerrors.CodeValidationFailure, "代币概念校验失败")
)

// TokenDeployer 抽象链上代币部署能力。
type TokenDeployer interface {
	DeployToken(ctx context.Context, params web3.TokenParams) (web3.DeployResult, error)
}

// Options 控制生成器行为。
type Options struct {
	// Decimals 是部署代币的精度, 默认 9。
	Decimals uint8
	// InitialSupply 是代币初始供应量(未乘精度), 默认 10 亿。
	InitialSupply int64
	// Announce 为真时发射成功后通过社交客户端发布公告。
	Announce bool
	// MetadataBaseURI 非空时为每个代币拼接元数据地址。
	MetadataBaseURI string
}

// Generator 实现热点代币生成工作流。
type Generator struct {
	social   social.Client
	llm      llm.Client
	store    cache.Store
	deployer TokenDeployer
	opts     Options
}

// NewGenerator 创建生成器。deployer 可以为空, 此时只生成概念不上链。
func NewGenerator(socialClient social.Client, llmClient llm.Client, store cache.Store, deployer TokenDeployer, opts Options) (*Generator, error) {
	if socialClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置社交客户端")
	}
	if llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	if store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置缓存存储")
	}
	if opts.Decimals == 0 {
		opts.Decimals = 9
	}
	if opts.InitialSupply <= 0 {
		opts.InitialSupply = 1_000_000_000
	}
	return &Generator{
		social:   socialClient,
		llm:      llmClient,
		store:    store,
		deployer: deployer,
		opts:     opts,
	}, nil
}

// GenerateFromTrend 扫描热点并生成一个代币概念。
//
// 按列表顺序取第一个不在已用话题日志里的热点; 全部用过时返回
// ErrNoUnusedTrend。概念通过校验后才把话题追加进已用日志, 校验失败时
// 日志保持不变, 同一热点下次仍然可用。
func (g *Generator) GenerateFromTrend(ctx context.Context) (*Concept, error) {
	trend, err := g.firstUnusedTrend(ctx)
	if err != nil {
		return nil, err
	}
	return g.generateConcept(ctx, trend)
}

// GenerateForTrend 针对指定话题生成概念, 话题已被用过时返回 ErrNoUnusedTrend。
func (g *Generator) GenerateForTrend(ctx context.Context, trend string) (*Concept, error) {
	trend = strings.TrimSpace(trend)
	if trend == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "话题不能为空")
	}
	used, err := g.usedTrendSet(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := used[trend]; ok {
		return nil, ErrNoUnusedTrend
	}
	return g.generateConcept(ctx, trend)
}

// FirstUnusedTrend 返回当前热点列表里第一个未用过的话题。
func (g *Generator) FirstUnusedTrend(ctx context.Context) (string, error) {
	return g.firstUnusedTrend(ctx)
}

func (g *Generator) usedTrendSet(ctx context.Context) (map[string]struct{}, error) {
	used, err := cache.ListStrings(ctx, g.store, cache.KeyUsedTrends)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取已用话题日志失败")
	}
	set := make(map[string]struct{}, len(used))
	for _, name := range used {
		set[name] = struct{}{}
	}
	return set, nil
}

func (g *Generator) firstUnusedTrend(ctx context.Context) (string, error) {
	trends, err := g.social.GetTrends(ctx)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "获取热点话题失败")
	}
	usedSet, err := g.usedTrendSet(ctx)
	if err != nil {
		return "", err
	}
	for _, candidate := range trends {
		name := strings.TrimSpace(candidate.Name)
		if name == "" {
			continue
		}
		if _, ok := usedSet[name]; !ok {
			return name, nil
		}
	}
	return "", ErrNoUnusedTrend
}

func (g *Generator) generateConcept(ctx context.Context, trend string) (*Concept, error) {
	raw, err := g.llm.Generate(ctx, llm.Request{Prompt: buildConceptPrompt(trend), Tier: llm.TierLarge})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "代币概念生成失败")
	}

	payload, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeValidationFailure, err, "模型响应中没有可解析的 JSON")
	}

	concept := &Concept{}
	if err := json.Unmarshal(payload, concept); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeValidationFailure, err, "解析代币概念失败")
	}
	concept.SourceTrend = trend

	if err := concept.Validate(); err != nil {
		logger.Named("minter").Warn("代币概念未通过校验",
			"trend", trend, "ticker", concept.Ticker, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidConcept, err)
	}

	// 概念被接受后才消耗这个话题。
	if err := g.store.AppendJSON(ctx, cache.KeyUsedTrends, trend); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "记录已用话题失败")
	}
	if err := g.store.AppendJSON(ctx, cache.KeyGeneratedTokens, concept); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "记录代币概念失败")
	}

	return concept, nil
}

// LaunchFromTrend 生成概念并完成链上发射。
func (g *Generator) LaunchFromTrend(ctx context.Context) (*Launched, error) {
	concept, err := g.GenerateFromTrend(ctx)
	if err != nil {
		return nil, err
	}
	return g.Launch(ctx, concept)
}

// LaunchTrend 针对指定话题完成生成与发射, 话题为空时自动扫描热点列表。
func (g *Generator) LaunchTrend(ctx context.Context, trend string) (*Launched, error) {
	if strings.TrimSpace(trend) == "" {
		return g.LaunchFromTrend(ctx)
	}
	concept, err := g.GenerateForTrend(ctx, trend)
	if err != nil {
		return nil, err
	}
	return g.Launch(ctx, concept)
}

// Launch 把一个已通过校验的概念部署上链并记录结果。
func (g *Generator) Launch(ctx context.Context, concept *Concept) (*Launched, error) {
	if g.deployer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置代币部署器")
	}
	if concept == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "代币概念为空")
	}

	metadataURI := g.metadataURI(concept.Ticker)

	supply := new(big.Int).Mul(
		big.NewInt(g.opts.InitialSupply),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.opts.Decimals)), nil),
	)

	result, err := g.deployer.DeployToken(ctx, web3.TokenParams{
		Name:          concept.Name,
		Symbol:        concept.Ticker,
		Decimals:      g.opts.Decimals,
		InitialSupply: supply,
		MetadataURI:   metadataURI,
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeDeployFailure, err, "代币部署失败",
			xerrors.WithMetadata("ticker", concept.Ticker))
	}

	launched := &Launched{
		Concept:     *concept,
		MintAddress: result.MintAddress,
		TxHash:      result.TxHash,
		MetadataURI: metadataURI,
		LaunchedAt:  time.Now().Unix(),
	}
	if err := g.store.AppendJSON(ctx, cache.KeyLaunchedTokens, launched); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "记录发射结果失败")
	}

	logger.Audit().Info("token_launched",
		"name", launched.Concept.Name,
		"ticker", launched.Concept.Ticker,
		"mint_address", launched.MintAddress,
		"trend", launched.Concept.SourceTrend,
	)

	// 公告失败只记录日志, 发射结果不受影响。
	if g.opts.Announce {
		if _, err := g.social.PostReply(ctx, buildAnnouncement(*launched), ""); err != nil {
			logger.Named("minter").Warn("发射公告发布失败",
				"ticker", launched.Concept.Ticker, "error", err)
		}
	}

	return launched, nil
}

func (g *Generator) metadataURI(ticker string) string {
	base := strings.TrimRight(strings.TrimSpace(g.opts.MetadataBaseURI), "/")
	if base == "" {
		return ""
	}
	return base + "/" + url.PathEscape(strings.ToLower(ticker)) + ".json"
}
