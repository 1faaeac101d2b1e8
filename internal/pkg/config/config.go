package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 客户端全局配置
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Unread   UnreadConfig   `mapstructure:"unread"`
	Push     PushConfig     `mapstructure:"push"`
	OSS      OSSConfig      `mapstructure:"oss"`
	Status   StatusConfig   `mapstructure:"status"`
	Log      LogConfig      `mapstructure:"log"`
	App      AppConfig      `mapstructure:"app"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // 每秒请求数
	Burst     int           `mapstructure:"burst"`
	UserAgent string        `mapstructure:"user_agent"`
}

type CacheConfig struct {
	Driver          string        `mapstructure:"driver"` // memory, file, redis, postgres
	FilePath        string        `mapstructure:"file_path"`
	Prefix          string        `mapstructure:"prefix"`
	ConversationTTL time.Duration `mapstructure:"conversation_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN 返回 postgres 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type UnreadConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type PushConfig struct {
	Platform    string `mapstructure:"platform"` // ios, android
	DeviceToken string `mapstructure:"device_token"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
}

type StatusConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Addr      string  `mapstructure:"addr"`
	Token     string  `mapstructure:"token"` // 为空时 /v1 路由不校验
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

var cacheDrivers = map[string]bool{"memory": true, "file": true, "redis": true, "postgres": true}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) url, got %q", c.API.BaseURL)
	}
	if !cacheDrivers[c.Cache.Driver] {
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.Cache.ConversationTTL <= 0 {
		return errors.New("cache.conversation_ttl must be positive")
	}
	if c.Unread.PollInterval <= 0 {
		return errors.New("unread.poll_interval must be positive")
	}

	switch c.Cache.Driver {
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis cache driver")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("database configuration is incomplete")
		}
	case "file":
		if c.Cache.FilePath == "" {
			return errors.New("cache.file_path is required for the file cache driver")
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.forum.local")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst", 20)
	v.SetDefault("api.user_agent", "forumctl/1.0")
	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.file_path", "data/cache.json")
	v.SetDefault("cache.prefix", "forum:")
	v.SetDefault("cache.conversation_ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("unread.poll_interval", 30*time.Second)
	v.SetDefault("push.platform", "android")
	v.SetDefault("status.addr", "127.0.0.1:9090")
	v.SetDefault("status.rate_limit", 20.0)
	v.SetDefault("status.burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("app.env", "dev")
}

// Load 加载配置
// path 为空时按 APP_ENV 在 ./configs 与当前目录中查找 config(.env).yaml
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		env := os.Getenv("APP_ENV")
		configName := "config"
		if env != "" && env != "dev" {
			configName = "config." + env
		}
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 绑定环境变量 FORUM_API_BASE_URL -> api.base_url
	v.SetEnvPrefix("forum")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 常用变量手动覆盖
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
