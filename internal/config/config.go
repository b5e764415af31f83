package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 描述了 TrendMint 在启动阶段需要加载的核心配置。
type Config struct {
	Server      ServerConfig  `json:"server"`
	Cache       CacheConfig   `json:"cache"`
	Storage     StorageConfig `json:"storage"`
	LaunchQueue QueueConfig   `json:"launch_queue"`
	LLM         LLMConfig     `json:"llm"`
	Social      SocialConfig  `json:"social"`
	Web3        Web3Config    `json:"web3"`
	Agent       AgentConfig   `json:"agent"`
	Minter      MinterConfig  `json:"minter"`
	Engage      EngageConfig  `json:"engage"`
	Logging     LoggingConfig `json:"logging"`
	Runtime     RuntimeConfig `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址与访问密钥。
type ServerConfig struct {
	Address   string `json:"address"`
	APIKeyEnv string `json:"api_key_env"`
}

// CacheConfig 描述共享缓存的连接方式。driver 支持 memory 与 redis。
type CacheConfig struct {
	Driver   string `json:"driver"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// StorageConfig 统一描述发射记录存储后端的连接信息。
type StorageConfig struct {
	LaunchStore LaunchStoreConfig `json:"launch_store"`
}

// LaunchStoreConfig 支持 memory 与 mysql 两种驱动。
type LaunchStoreConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	Retries                int    `json:"retries"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

// QueueConfig 描述发射任务队列的驱动配置。
type QueueConfig struct {
	Driver   string              `json:"driver"`
	Worker   int                 `json:"worker"`
	Redis    RedisQueueConfig    `json:"redis"`
	RabbitMQ RabbitMQQueueConfig `json:"rabbitmq"`
}

// RedisQueueConfig 描述 Redis 队列的连接参数。
type RedisQueueConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQQueueConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQQueueConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider string       `json:"provider"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// OpenAIConfig 描述调用 OpenAI 兼容接口所需的信息。
// SmallModel 用于候选排序等低成本调用，LargeModel 用于内容生成。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	SmallModel     string `json:"small_model"`
	LargeModel     string `json:"large_model"`
	VisionModel    string `json:"vision_model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回调用超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SocialConfig 描述社交平台侧车服务的访问方式。
type SocialConfig struct {
	BaseURL        string  `json:"base_url"`
	APIKeyEnv      string  `json:"api_key_env"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	RatePerMinute  float64 `json:"rate_per_minute"`
	RateBurst      int     `json:"rate_burst"`
	MaxRetries     int     `json:"max_retries"`
}

// Timeout 返回社交客户端的调用超时时间。
func (c SocialConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Web3Config 包含访问区块链节点所需的 RPC 地址与签名私钥。
type Web3Config struct {
	RPCURL        string `json:"rpc_url"`
	ChainConfig   string `json:"chain_config"`
	DefaultChain  string `json:"default_chain"`
	PrivateKeyEnv string `json:"private_key_env"`
	ArtifactPath  string `json:"artifact_path"`
}

// AgentConfig 描述智能体自身的人设与话题列表。
type AgentConfig struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Handle string   `json:"handle"`
	Bio    string   `json:"bio"`
	Style  []string `json:"style"`
	Topics []string `json:"topics"`
}

// MinterConfig 控制趋势代币生成流程。
type MinterConfig struct {
	Enabled             bool   `json:"enabled"`
	ScanIntervalMinutes int    `json:"scan_interval_minutes"`
	Decimals            int    `json:"decimals"`
	InitialSupply       int64  `json:"initial_supply"`
	Announce            bool   `json:"announce"`
	MetadataBaseURI     string `json:"metadata_base_uri"`
}

// EngageConfig 控制搜索回复流程。
type EngageConfig struct {
	Enabled        bool `json:"enabled"`
	MinIntervalMin int  `json:"min_interval_minutes"`
	MaxIntervalMin int  `json:"max_interval_minutes"`
	SearchLimit    int  `json:"search_limit"`
	TimelineLimit  int  `json:"timeline_limit"`
	// PacingDelaySec 是发帖后随机停顿的上限秒数。
	PacingDelaySec int `json:"pacing_delay_seconds"`
}

// LoggingConfig 透传给 pkg/logger。
type LoggingConfig struct {
	Level       string   `json:"level"`
	Format      string   `json:"format"`
	OutputPaths []string `json:"output_paths"`
	AuditPath   string   `json:"audit_path"`
}

// RuntimeConfig 用于放置运行时的通用参数。
// DataDir 是守护进程落盘文件的根目录, 相对的日志路径都会解析到这里。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// LoadEnv 在进程环境之上叠加本地 .env 文件，便于开发环境注入密钥。
func LoadEnv() []string {
	files := []string{".env", ".env.local"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			continue
		}
		loaded = append(loaded, file)
	}
	return loaded
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}

	if c.Storage.LaunchStore.Driver == "" {
		c.Storage.LaunchStore.Driver = "memory"
	}
	if c.Storage.LaunchStore.Retries <= 0 {
		c.Storage.LaunchStore.Retries = 3
	}

	if c.LaunchQueue.Driver == "" {
		c.LaunchQueue.Driver = "memory"
	}
	if c.LaunchQueue.Worker <= 0 {
		c.LaunchQueue.Worker = 1
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}

	if c.Social.RatePerMinute <= 0 {
		c.Social.RatePerMinute = 30
	}
	if c.Social.RateBurst <= 0 {
		c.Social.RateBurst = 5
	}
	if c.Social.MaxRetries < 0 {
		c.Social.MaxRetries = 0
	}

	if c.Minter.ScanIntervalMinutes <= 0 {
		c.Minter.ScanIntervalMinutes = 30
	}
	if c.Minter.Decimals <= 0 {
		c.Minter.Decimals = 9
	}
	if c.Minter.InitialSupply <= 0 {
		c.Minter.InitialSupply = 1_000_000_000
	}

	if c.Engage.MinIntervalMin <= 0 {
		c.Engage.MinIntervalMin = 60
	}
	if c.Engage.MaxIntervalMin <= c.Engage.MinIntervalMin {
		c.Engage.MaxIntervalMin = c.Engage.MinIntervalMin + 60
	}
	if c.Engage.SearchLimit <= 0 {
		c.Engage.SearchLimit = 20
	}
	if c.Engage.TimelineLimit <= 0 {
		c.Engage.TimelineLimit = 50
	}
	if c.Engage.PacingDelaySec <= 0 {
		c.Engage.PacingDelaySec = 30
	}

	if c.Agent.Handle == "" {
		c.Agent.Handle = strings.ToLower(strings.ReplaceAll(c.Agent.Name, " ", ""))
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}

	// 相对的日志文件路径统一落在数据目录下。
	if c.Logging.AuditPath != "" && !filepath.IsAbs(c.Logging.AuditPath) {
		c.Logging.AuditPath = filepath.Join(c.Runtime.DataDir, c.Logging.AuditPath)
	}
	for i, p := range c.Logging.OutputPaths {
		if p == "stdout" || p == "stderr" || filepath.IsAbs(p) {
			continue
		}
		c.Logging.OutputPaths[i] = filepath.Join(c.Runtime.DataDir, p)
	}
}

// validate 检查互相依赖的配置项。话题列表为空时不允许开启互动流程，
// 否则随机选题会触发前置条件违例。
func (c *Config) validate() error {
	if c.Engage.Enabled && len(c.Agent.Topics) == 0 {
		return errors.New("engage.enabled 要求 agent.topics 至少包含一个话题")
	}
	if c.Minter.Enabled && strings.TrimSpace(c.Web3.RPCURL) == "" && strings.TrimSpace(c.Web3.ChainConfig) == "" {
		return errors.New("minter.enabled 要求配置 web3.rpc_url 或 web3.chain_config")
	}
	return nil
}
