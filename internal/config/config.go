package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Stock    StockConfig
	Order    OrderConfig
	Cart     CartConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type StockConfig struct {
	MaxRetryAttempts int
	RetryBackoff     time.Duration
	TxTimeout        time.Duration
}

type OrderConfig struct {
	MaxItems              int
	TaxRate               string
	FreeShippingThreshold string
	FlatShippingFee       string
}

type CartConfig struct {
	HoldTTL       time.Duration
	ReapInterval  time.Duration
	ReapBatchSize int
}

type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.idleTimeout", "30s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "tradeflow")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.name", "tradeflow")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "5m")
	v.SetDefault("database.autoMigrate", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "orders.events")
	v.SetDefault("auth.issuer", "tradeflow-auth")
	v.SetDefault("stock.maxRetryAttempts", 3)
	v.SetDefault("stock.retryBackoff", "50ms")
	v.SetDefault("stock.txTimeout", "5s")
	v.SetDefault("order.maxItems", 100)
	v.SetDefault("order.taxRate", "0.15")
	v.SetDefault("order.freeShippingThreshold", "100")
	v.SetDefault("order.flatShippingFee", "10")
	v.SetDefault("cart.holdTTL", "30m")
	v.SetDefault("cart.reapInterval", "1m")
	v.SetDefault("cart.reapBatchSize", 200)
	v.SetDefault("log.level", "info")
}

// Load reads the YAML file at path (optional when empty or missing) and
// applies environment overrides such as DATABASE_HOST or STOCK_MAXRETRYATTEMPTS.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			IdleTimeout:     v.GetDuration("server.idleTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			MaxOpenConns:    v.GetInt("database.maxOpenConns"),
			MaxIdleConns:    v.GetInt("database.maxIdleConns"),
			ConnMaxLifetime: v.GetDuration("database.connMaxLifetime"),
			AutoMigrate:     v.GetBool("database.autoMigrate"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwtSecret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Stock: StockConfig{
			MaxRetryAttempts: v.GetInt("stock.maxRetryAttempts"),
			RetryBackoff:     v.GetDuration("stock.retryBackoff"),
			TxTimeout:        v.GetDuration("stock.txTimeout"),
		},
		Order: OrderConfig{
			MaxItems:              v.GetInt("order.maxItems"),
			TaxRate:               v.GetString("order.taxRate"),
			FreeShippingThreshold: v.GetString("order.freeShippingThreshold"),
			FlatShippingFee:       v.GetString("order.flatShippingFee"),
		},
		Cart: CartConfig{
			HoldTTL:       v.GetDuration("cart.holdTTL"),
			ReapInterval:  v.GetDuration("cart.reapInterval"),
			ReapBatchSize: v.GetInt("cart.reapBatchSize"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtSecret is required")
	}
	if cfg.Stock.MaxRetryAttempts < 1 {
		return nil, fmt.Errorf("stock.maxRetryAttempts must be at least 1, got %d", cfg.Stock.MaxRetryAttempts)
	}
	if cfg.Cart.HoldTTL <= 0 {
		return nil, fmt.Errorf("cart.holdTTL must be positive, got %s", cfg.Cart.HoldTTL)
	}
	if cfg.Cart.ReapInterval <= 0 {
		return nil, fmt.Errorf("cart.reapInterval must be positive, got %s", cfg.Cart.ReapInterval)
	}
	if cfg.Cart.ReapBatchSize < 1 {
		return nil, fmt.Errorf("cart.reapBatchSize must be at least 1, got %d", cfg.Cart.ReapBatchSize)
	}

	return cfg, nil
}
