package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GRPCConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	OrderTTL time.Duration `mapstructure:"order_ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// DatabaseConfig selects the gorm dialector. DSN wins over the discrete
// MySQL fields when both are set.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type PricingConfig struct {
	FreeDeliveryThreshold decimal.Decimal `mapstructure:"free_delivery_threshold"`
	DeliveryFee           decimal.Decimal `mapstructure:"delivery_fee"`
	Currency              string          `mapstructure:"currency"`
}

type PaymentConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	ShopID        string        `mapstructure:"shop_id"`
	SecretKey     string        `mapstructure:"secret_key"`
	ReturnURL     string        `mapstructure:"return_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	SendTimeout time.Duration  `mapstructure:"send_timeout"`
}

type TelegramConfig struct {
	APIURL   string `mapstructure:"api_url"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AdminConfig struct {
	UserID int64 `mapstructure:"user_id"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 9090)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.order_ttl", 10*time.Minute)
	v.SetDefault("redis.lock_ttl", time.Minute)
	v.SetDefault("mongodb.collection", "order_audit")
	v.SetDefault("pricing.free_delivery_threshold", "1500")
	v.SetDefault("pricing.delivery_fee", "500")
	v.SetDefault("pricing.currency", "RUB")
	v.SetDefault("payment.base_url", "https://api.yookassa.ru/v3")
	v.SetDefault("payment.timeout", 30*time.Second)
	v.SetDefault("notify.telegram.api_url", "https://api.telegram.org")
	v.SetDefault("notify.kafka.topic", "storefront.orders")
	v.SetDefault("notify.send_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})

	// Keys without defaults must be bound for STOREFRONT_* overrides to reach Unmarshal.
	for _, key := range []string{
		"etcd.endpoints",
		"database.dsn", "database.host", "database.port", "database.username",
		"database.password", "database.database",
		"redis.enabled", "redis.addr", "redis.password", "redis.db",
		"mongodb.enabled", "mongodb.uri", "mongodb.database",
		"payment.shop_id", "payment.secret_key", "payment.return_url",
		"payment.webhook_secret",
		"notify.telegram.bot_token", "notify.telegram.chat_id", "notify.kafka.brokers",
		"admin.user_id",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath and applies STOREFRONT_* environment
// overrides. An empty configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, viper.DecodeHook(decimalHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if c.Pricing.FreeDeliveryThreshold.IsNegative() {
		return errors.New("pricing.free_delivery_threshold must not be negative")
	}
	if c.Pricing.DeliveryFee.IsNegative() {
		return errors.New("pricing.delivery_fee must not be negative")
	}
	if c.Pricing.Currency == "" {
		return errors.New("pricing.currency is required")
	}
	return nil
}

func (c *DatabaseConfig) MySQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
