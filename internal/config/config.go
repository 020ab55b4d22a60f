package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
// 优先级: 环境变量 > 配置文件 > 默认值
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

type GitHubConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"` // 单次请求超时
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | mysql
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectRetries  int           `mapstructure:"connect_retries"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// NotifyConfig 飞书群机器人，webhook 为空时不推送
type NotifyConfig struct {
	FeishuWebhook string `mapstructure:"feishu_webhook"`
	ProfileURL    string `mapstructure:"profile_url"` // 卡片按钮链接前缀
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const envPrefix = "PROFILE_MINER"

// 支持的数据库驱动
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "https://api.github.com/")
	v.SetDefault("github.timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=profile_miner port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.connect_retries", 5)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "github-profiles")

	v.SetDefault("notify.feishu_webhook", "")
	v.SetDefault("notify.profile_url", "")

	v.SetDefault("log.level", "info")
}

// Load 读取配置
// path 为空时只使用 .env、环境变量和默认值
func Load(path string) (*Config, error) {
	// .env 不存在是正常情况
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 常用变量名的快捷方式
	_ = v.BindEnv("github.token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("database.dsn", envPrefix+"_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("notify.feishu_webhook", envPrefix+"_NOTIFY_FEISHU_WEBHOOK", "FEISHU_WEBHOOK")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("github.timeout 必须大于 0")
	}
	if c.GitHub.BaseURL == "" {
		return fmt.Errorf("github.base_url 不能为空")
	}
	return nil
}

// HasKafka 是否配置了消息队列
func (c *Config) HasKafka() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""
}

// HasFeishu 是否配置了飞书推送
func (c *Config) HasFeishu() bool {
	return c.Notify.FeishuWebhook != ""
}

func compact(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
