// main 是 TrendMint 守护进程的入口: 加载配置, 组装缓存/存储/队列等基础设施,
// 再通过插件管理器启动热点代币与搜索互动两个工作流, 最后拉起 REST API。
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"TrendMint/internal/api"
	"TrendMint/internal/auth"
	"TrendMint/internal/cache"
	"TrendMint/internal/config"
	"TrendMint/internal/engage"
	"TrendMint/internal/launch"
	"TrendMint/internal/llm"
	"TrendMint/internal/llm/openai"
	"TrendMint/internal/minter"
	"TrendMint/internal/observability/alerting"
	"TrendMint/internal/runtime"
	"TrendMint/internal/social/httpapi"
	"TrendMint/internal/web3"
	"TrendMint/internal/web3/provider"
	"TrendMint/pkg/logger"
	"TrendMint/pkg/plugin"
	"TrendMint/pkg/plugin/builtin"
)

const defaultConfigPath = "configs/trendmint.json"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trendmintd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	config.LoadEnv()

	path := os.Getenv("TRENDMINT_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled: cfg.Logging.AuditPath != "",
			Path:    cfg.Logging.AuditPath,
		},
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	log := logger.Named("trendmintd")
	log.Info("配置加载完成", "path", path)

	// 密钥统一走运行时设置表: 配置里显式给出的值优先, 环境变量兜底。
	settings := runtime.NewSettings(nil)
	if cfg.LLM.OpenAI.APIKeyEnv != "" && cfg.LLM.OpenAI.APIKey != "" {
		settings.SetSetting(cfg.LLM.OpenAI.APIKeyEnv, cfg.LLM.OpenAI.APIKey)
	}

	// 共享缓存: 已用热点列表, 时间线快照, 记忆与轨迹都落在这里。
	cacheStore, err := buildCacheStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	llmClient, err := buildLLMClient(cfg.LLM, settings)
	if err != nil {
		return err
	}

	socialKey, _ := settings.GetSetting(cfg.Social.APIKeyEnv)
	socialClient, err := httpapi.NewClient(httpapi.Config{
		BaseURL:       cfg.Social.BaseURL,
		APIKey:        socialKey,
		Timeout:       cfg.Social.Timeout(),
		RatePerMinute: cfg.Social.RatePerMinute,
		RateBurst:     cfg.Social.RateBurst,
		MaxRetries:    cfg.Social.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("初始化社交客户端失败: %w", err)
	}

	launchStore, err := buildLaunchStore(cfg.Storage.LaunchStore)
	if err != nil {
		return err
	}
	defer launchStore.Close()

	queue, err := buildLaunchQueue(cfg.LaunchQueue)
	if err != nil {
		return err
	}
	defer queue.Close()

	launchService := launch.NewService(launchStore, queue, cfg.Storage.LaunchStore.Retries)

	// 告警默认只写日志, 接入外部渠道时向 fanout 追加 notifier 即可。
	dispatcher := alerting.NewFanout(&alerting.LogNotifier{})

	managerOpts := []plugin.Option{}
	var chainClient web3.Client
	var registry *provider.Registry

	if cfg.Minter.Enabled {
		registry, err = provider.NewRegistry(ctx, cfg.Web3)
		if err != nil {
			return err
		}
		defer registry.Close()

		chainClient, err = registry.DefaultClient()
		if err != nil {
			return err
		}

		deployer, err := buildDeployer(ctx, cfg.Web3, chainClient, settings)
		if err != nil {
			return err
		}

		generator, err := minter.NewGenerator(socialClient, llmClient, cacheStore, deployer, minter.Options{
			Decimals:        uint8(cfg.Minter.Decimals),
			InitialSupply:   cfg.Minter.InitialSupply,
			Announce:        cfg.Minter.Announce,
			MetadataBaseURI: cfg.Minter.MetadataBaseURI,
		})
		if err != nil {
			return err
		}

		executor, err := launch.NewMinterExecutor(generator)
		if err != nil {
			return err
		}

		processor := launch.NewProcessor(executor, launchStore, queue, queue,
			launch.WithWorkerCount(cfg.LaunchQueue.Worker),
			launch.WithProcessorLogger(logger.Named("launch.processor")),
			launch.WithAlertDispatcher(dispatcher),
		)
		scanner, err := launch.NewScanner(launchService, launch.ScannerConfig{
			Interval: time.Duration(cfg.Minter.ScanIntervalMinutes) * time.Minute,
		})
		if err != nil {
			return err
		}

		managerOpts = append(managerOpts,
			plugin.WithResource(builtin.ResourceLaunchProcessor, processor),
			plugin.WithResource(builtin.ResourceLaunchScanner, scanner),
		)
	}

	var engager *engage.Engager
	if cfg.Engage.Enabled {
		persona := runtime.Persona{
			ID:     cfg.Agent.ID,
			Name:   cfg.Agent.Name,
			Handle: cfg.Agent.Handle,
			Bio:    cfg.Agent.Bio,
			Style:  cfg.Agent.Style,
			Topics: cfg.Agent.Topics,
		}
		memories := runtime.NewMemoryStore(cacheStore)
		composer := runtime.NewComposer(persona)
		actions := runtime.NewDispatcher(nil, nil)

		var vision llm.Vision
		if v, ok := llmClient.(llm.Vision); ok {
			vision = v
		}

		engager, err = engage.New(socialClient, llmClient, vision, cacheStore,
			memories, composer, actions, persona, engage.Config{
				MinInterval:   time.Duration(cfg.Engage.MinIntervalMin) * time.Minute,
				MaxInterval:   time.Duration(cfg.Engage.MaxIntervalMin) * time.Minute,
				SearchLimit:   cfg.Engage.SearchLimit,
				TimelineLimit: cfg.Engage.TimelineLimit,
				PacingDelay:   time.Duration(cfg.Engage.PacingDelaySec) * time.Second,
			})
		if err != nil {
			return err
		}
		managerOpts = append(managerOpts, plugin.WithResource(builtin.ResourceEngager, engager))
	}

	manager, err := plugin.NewManager(plugin.ManagerConfig{
		Defaults: plugin.IsolationPolicy{
			AllowedCapabilities: []plugin.Capability{
				plugin.CapabilityNetwork,
				plugin.CapabilityChain,
				plugin.CapabilityLLM,
			},
		},
	}, managerOpts...)
	if err != nil {
		return err
	}

	if cfg.Minter.Enabled {
		if err := manager.Register("trend_token", builtin.NewTrendTokenPlugin(), nil, plugin.IsolationPolicy{}); err != nil {
			return err
		}
	}
	if cfg.Engage.Enabled {
		if err := manager.Register("search_engage", builtin.NewSearchEngagePlugin(), nil, plugin.IsolationPolicy{}); err != nil {
			return err
		}
	}

	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.StopAll(shutdownCtx); err != nil {
			log.Warn("停止插件失败", "error", err)
		}
	}()

	serverOpts := []api.ServerOption{api.WithCacheStore(cacheStore)}
	if chainClient != nil {
		serverOpts = append(serverOpts, api.WithChainClient(chainClient))
	}
	if engager != nil {
		serverOpts = append(serverOpts, api.WithEngager(engager))
	}
	if authSvc := buildAuthService(cfg.Server, settings); authSvc != nil {
		serverOpts = append(serverOpts, api.WithAuthService(authSvc))
	}

	server := api.NewServer(cfg.Server.Address, launchService, serverOpts...)
	log.Info("TrendMint 启动完成", "address", cfg.Server.Address)
	return server.Start(ctx)
}

// buildCacheStore 根据配置选择内存或 Redis 缓存。
func buildCacheStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return cache.NewMemory(), nil
	case "redis":
		return cache.NewRedis(ctx, cache.RedisConfig{
			Address:  cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	default:
		return nil, fmt.Errorf("不支持的缓存驱动: %s", cfg.Driver)
	}
}

// buildLLMClient 目前只支持 OpenAI 兼容接口, 密钥优先取配置, 其次取环境变量。
func buildLLMClient(cfg config.LLMConfig, settings *runtime.Settings) (llm.Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		apiKey := cfg.OpenAI.APIKey
		if apiKey == "" {
			apiKey, _ = settings.GetSetting(cfg.OpenAI.APIKeyEnv)
		}
		return openai.NewClient(openai.Config{
			APIKey:      apiKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			SmallModel:  cfg.OpenAI.SmallModel,
			LargeModel:  cfg.OpenAI.LargeModel,
			VisionModel: cfg.OpenAI.VisionModel,
			Timeout:     cfg.OpenAI.Timeout(),
		})
	default:
		return nil, fmt.Errorf("不支持的大模型提供方: %s", cfg.Provider)
	}
}

// buildLaunchStore 根据配置选择内存或 MySQL 存储。
func buildLaunchStore(cfg config.LaunchStoreConfig) (launch.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return launch.NewMemoryStore(), nil
	case "mysql":
		return launch.NewMySQLStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的发射存储驱动: %s", cfg.Driver)
	}
}

// buildLaunchQueue 根据配置选择内存, Redis 或 RabbitMQ 队列。
func buildLaunchQueue(cfg config.QueueConfig) (launch.Queue, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return launch.NewMemoryQueue(1024), nil
	case "redis":
		return launch.NewRedisQueue(launch.RedisQueueConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Queue:     cfg.Redis.Queue,
			BlockWait: time.Duration(cfg.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return launch.NewRabbitMQQueue(launch.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Queue:      cfg.RabbitMQ.Queue,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			Durable:    cfg.RabbitMQ.Durable,
			AutoDelete: cfg.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("不支持的队列驱动: %s", cfg.Driver)
	}
}

// buildDeployer 组装签名器与合约产物。私钥只能通过设置表的环境变量通道注入。
func buildDeployer(ctx context.Context, cfg config.Web3Config, client web3.Client, settings *runtime.Settings) (*web3.TokenDeployer, error) {
	chainIDHex, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询链 ID 失败: %w", err)
	}
	chainID, ok := new(big.Int).SetString(strings.TrimPrefix(chainIDHex, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("无法解析链 ID: %s", chainIDHex)
	}

	privateKey, _ := settings.GetSetting(cfg.PrivateKeyEnv)
	signer, err := web3.NewSigner(privateKey, chainID)
	if err != nil {
		return nil, err
	}

	artifact, err := web3.LoadArtifact(cfg.ArtifactPath)
	if err != nil {
		return nil, err
	}

	return web3.NewTokenDeployer(client, signer, artifact)
}

// buildAuthService 通过设置表解析 API 密钥, 未配置时返回 nil 表示开放访问。
func buildAuthService(cfg config.ServerConfig, settings *runtime.Settings) *auth.Service {
	if cfg.APIKeyEnv == "" {
		return nil
	}
	value, _ := settings.GetSetting(cfg.APIKeyEnv)
	key := strings.TrimSpace(value)
	if key == "" {
		return nil
	}
	return auth.NewService(auth.Config{
		Mode: auth.ModeAPIKey,
		Keys: []auth.KeyDefinition{{Key: key, Name: "operator"}},
	})
}
