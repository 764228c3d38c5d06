package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Email     EmailConfig     `mapstructure:"email"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Survey    SurveyConfig    `mapstructure:"survey"`
	Payout    PayoutConfig    `mapstructure:"payout"`
	Earnings  EarningsConfig  `mapstructure:"earnings"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MigrationsPath string `mapstructure:"migrations_path"` // 为空时使用 AutoMigrate
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	PayoutQueue string `mapstructure:"payout_queue"`
	MaxWorkers  int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SurveyConfig struct {
	RewardPolicy      string `mapstructure:"reward_policy"`       // prorated, all_or_nothing
	AbandonAfterHours int    `mapstructure:"abandon_after_hours"` // 超过该时长未更新的答卷视为放弃
	AbandonSchedule   string `mapstructure:"abandon_schedule"`    // cron 表达式
}

type PayoutConfig struct {
	MinAmount           float64  `mapstructure:"min_amount"`
	Methods             []string `mapstructure:"methods"`
	GatewayURL          string   `mapstructure:"gateway_url"` // 为空时使用模拟通道
	GatewayTokenURL     string   `mapstructure:"gateway_token_url"`
	GatewayClientID     string   `mapstructure:"gateway_client_id"`
	GatewayClientSecret string   `mapstructure:"gateway_client_secret"`
	GatewayRetries      int      `mapstructure:"gateway_retries"`
	SimulatedFailures   []string `mapstructure:"simulated_failures"` // 模拟通道下直接失败的提现方式
	RecoverBatchSize    int      `mapstructure:"recover_batch_size"` // worker 启动时补偿入队的 pending 数量上限
}

type EarningsConfig struct {
	ActivationBonus     float64 `mapstructure:"activation_bonus"`
	DataSharingSchedule string  `mapstructure:"data_sharing_schedule"`
}

type RateLimitConfig struct {
	ReqPerMin int `mapstructure:"req_per_min"`
	Burst     int `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

const (
	RewardPolicyProrated     = "prorated"
	RewardPolicyAllOrNothing = "all_or_nothing"
)

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults 为未配置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.Payout.MinAmount <= 0 {
		c.Payout.MinAmount = 10.00
	}
	if len(c.Payout.Methods) == 0 {
		c.Payout.Methods = []string{"paypal", "bank", "crypto"}
	}
	if c.Survey.RewardPolicy == "" {
		c.Survey.RewardPolicy = RewardPolicyProrated
	}
	if c.Survey.AbandonAfterHours <= 0 {
		c.Survey.AbandonAfterHours = 72
	}
	if c.Survey.AbandonSchedule == "" {
		c.Survey.AbandonSchedule = "@hourly"
	}
	if c.Earnings.DataSharingSchedule == "" {
		c.Earnings.DataSharingSchedule = "0 3 1 * *"
	}
	if c.Payout.GatewayRetries <= 0 {
		c.Payout.GatewayRetries = 2
	}
	if c.Payout.RecoverBatchSize <= 0 {
		c.Payout.RecoverBatchSize = 500
	}
	if c.Queue.PayoutQueue == "" {
		c.Queue.PayoutQueue = "payout_queue"
	}
	if c.Queue.MaxWorkers <= 0 {
		c.Queue.MaxWorkers = 2
	}
	if c.RateLimit.ReqPerMin <= 0 {
		c.RateLimit.ReqPerMin = 30
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 24
	}
}
