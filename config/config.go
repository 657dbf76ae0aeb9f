package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	OSS          OSSConfig          `mapstructure:"oss"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Email        EmailConfig        `mapstructure:"email"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	OTP          OTPConfig          `mapstructure:"otp"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Cron         CronConfig         `mapstructure:"cron"`
	Notify       NotifyConfig       `mapstructure:"notify"`
	Upload       UploadConfig       `mapstructure:"upload"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`  // dev | prod
	Level string `mapstructure:"level"` // debug | info | warn | error
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN          string `mapstructure:"dsn"`    // 设置后忽略 host/port 等字段
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
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

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

// Enabled OSS 是否已配置
func (c OSSConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.BucketName != ""
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	FrontendURL  string `mapstructure:"frontend_url"`
}

type EmailConfig struct {
	SMTPHost    string        `mapstructure:"smtp_host"`
	SMTPPort    int           `mapstructure:"smtp_port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	From        string        `mapstructure:"from"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
}

type PaymentConfig struct {
	StripeSecretKey string        `mapstructure:"stripe_secret_key"`
	Currency        string        `mapstructure:"currency"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type OTPConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Length int           `mapstructure:"length"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SubscriptionConfig struct {
	Plans map[string]SubscriptionPlan `mapstructure:"plans"`
}

type SubscriptionPlan struct {
	Days  int     `mapstructure:"days"`
	Price float64 `mapstructure:"price"`
}

// Durations 将套餐代码映射为有效期
func (c SubscriptionConfig) Durations() map[string]time.Duration {
	plans := c.Plans
	if len(plans) == 0 {
		plans = DefaultPlans()
	}
	out := make(map[string]time.Duration, len(plans))
	for code, p := range plans {
		out[code] = time.Duration(p.Days) * 24 * time.Hour
	}
	return out
}

// DefaultPlans 未配置时使用的套餐
func DefaultPlans() map[string]SubscriptionPlan {
	return map[string]SubscriptionPlan{
		"1":  {Days: 1, Price: 1},
		"5":  {Days: 5, Price: 5},
		"10": {Days: 10, Price: 10},
	}
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	PremiumSweep string `mapstructure:"premium_sweep"`
}

type NotifyConfig struct {
	Channel string `mapstructure:"channel"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"` // 字节
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("jwt.expire_hours", 168)
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.max_attempts", 3)
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("otp.ttl", time.Minute)
	v.SetDefault("otp.length", 6)
	v.SetDefault("cron.premium_sweep", "@every 5m")
	v.SetDefault("notify.channel", "echonow:moderation")
	v.SetDefault("upload.max_size", 5*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{".jpg", ".jpeg", ".png", ".webp", ".gif"})
}

func Load(configPath string) (*Config, error) {
	// 优先读取 config.local.yaml（包含真实密钥，不提交到 git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，例如 DATABASE_DRIVER
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查启动必需的配置项
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret 不能为空")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	for code, p := range c.Subscription.Plans {
		if p.Days <= 0 {
			return fmt.Errorf("套餐 %s 的天数必须大于 0", code)
		}
	}
	return nil
}
