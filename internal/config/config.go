package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/constants"
	viper "github.com/spf13/viper"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogPretty  bool   `mapstructure:"LOG_PRETTY"`

	DbDriver       string `mapstructure:"DB_DRIVER"`
	DbName         string `mapstructure:"POSTGRES_DB"`
	DbHost         string `mapstructure:"POSTGRES_HOST"`
	DbPort         string `mapstructure:"POSTGRES_PORT"`
	DbUser         string `mapstructure:"POSTGRES_USER"`
	DbPas          string `mapstructure:"POSTGRES_PASSWORD"`
	DbSslMode      string `mapstructure:"POSTGRES_SSLMODE"`
	DbMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	SqlitePath     string `mapstructure:"SQLITE_PATH"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ProductCacheTTL time.Duration `mapstructure:"PRODUCT_CACHE_TTL"`

	KafkaBrokers     []string `mapstructure:"KAFKA_BROKERS"`
	OrderEventsTopic string   `mapstructure:"ORDER_EVENTS_TOPIC"`

	CorsAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	AuthProviderURL      string   `mapstructure:"AUTH_PROVIDER_URL"`
	AuthJWKSURL          string   `mapstructure:"AUTH_JWKS_URL"`
	AuthJWTSecret        string   `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer           string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience         string   `mapstructure:"AUTH_AUDIENCE"`
	AdminSubjects        []string `mapstructure:"ADMIN_SUBJECTS"`
	AllowAnonymousOrders bool     `mapstructure:"ALLOW_ANONYMOUS_ORDERS"`

	OrderTxTimeout          time.Duration `mapstructure:"ORDER_TX_TIMEOUT"`
	OrderLockTimeout        time.Duration `mapstructure:"ORDER_LOCK_TIMEOUT"`
	OrderMaxRetries         int           `mapstructure:"ORDER_MAX_RETRIES"`
	OrderRetryBackoff       time.Duration `mapstructure:"ORDER_RETRY_BACKOFF"`
	OrderRateLimitCapacity  int           `mapstructure:"ORDER_RATE_LIMIT_CAPACITY"`
	OrderRateLimitPerSecond float64       `mapstructure:"ORDER_RATE_LIMIT_PER_SECOND"`
	CatalogSeedFile         string        `mapstructure:"CATALOG_SEED_FILE"`
}

var defaults = map[string]any{
	"SERVER_PORT": "8000",
	"LOG_LEVEL":   "info",
	"LOG_PRETTY":  false,

	"DB_DRIVER":         string(constants.DriverPostgres),
	"POSTGRES_DB":       "storefront",
	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "postgres",
	"POSTGRES_PASSWORD": "",
	"POSTGRES_SSLMODE":  "disable",
	"DB_MAX_OPEN_CONNS": 20,
	"SQLITE_PATH":       "storefront.db",

	"REDIS_ADDR":        "",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"PRODUCT_CACHE_TTL": "5m",

	"KAFKA_BROKERS":      []string{},
	"ORDER_EVENTS_TOPIC": "storefront.orders",

	"CORS_ALLOWED_ORIGINS": []string{"http://localhost:3000"},

	"AUTH_PROVIDER_URL":      "",
	"AUTH_JWKS_URL":          "",
	"AUTH_JWT_SECRET":        "",
	"AUTH_ISSUER":            "",
	"AUTH_AUDIENCE":          "authenticated",
	"ADMIN_SUBJECTS":         []string{},
	"ALLOW_ANONYMOUS_ORDERS": true,

	"ORDER_TX_TIMEOUT":            "10s",
	"ORDER_LOCK_TIMEOUT":          "3s",
	"ORDER_MAX_RETRIES":           3,
	"ORDER_RETRY_BACKOFF":         "50ms",
	"ORDER_RATE_LIMIT_CAPACITY":   20,
	"ORDER_RATE_LIMIT_PER_SECOND": 5.0,
	"CATALOG_SEED_FILE":           "",
}

/*
讀取設定檔與環境變數
path 為 .env 檔路徑, 檔案不存在時只使用環境變數與預設值
單純回傳錯誤  由外部決定要不要Fatal
*/
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}
	v.AutomaticEnv()

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cf.normalize()
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return cf, nil
}

// 清理逗號分隔欄位並推導 auth provider 的 jwks / issuer
func (c *Config) normalize() {
	c.KafkaBrokers = cleanList(c.KafkaBrokers)
	c.CorsAllowedOrigins = cleanList(c.CorsAllowedOrigins)
	c.AdminSubjects = cleanList(c.AdminSubjects)
	c.DbDriver = strings.ToLower(strings.TrimSpace(c.DbDriver))

	base := strings.TrimRight(c.AuthProviderURL, "/")
	if base != "" {
		if c.AuthJWKSURL == "" && c.AuthJWTSecret == "" {
			c.AuthJWKSURL = base + "/auth/v1/.well-known/jwks.json"
		}
		if c.AuthIssuer == "" {
			c.AuthIssuer = base + "/auth/v1"
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch constants.DbDriver(c.DbDriver) {
	case constants.DriverPostgres:
		if c.DbHost == "" || c.DbName == "" {
			errs = append(errs, errors.New("POSTGRES_HOST and POSTGRES_DB are required for postgres driver"))
		}
	case constants.DriverSqlite:
		if c.SqlitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DbDriver))
	}

	if c.AuthJWTSecret == "" && c.AuthJWKSURL == "" {
		errs = append(errs, errors.New("one of AUTH_JWT_SECRET, AUTH_JWKS_URL or AUTH_PROVIDER_URL is required"))
	}
	if c.OrderTxTimeout <= 0 {
		errs = append(errs, errors.New("ORDER_TX_TIMEOUT must be positive"))
	}
	if c.OrderMaxRetries < 0 {
		errs = append(errs, errors.New("ORDER_MAX_RETRIES must not be negative"))
	}
	if c.OrderRateLimitCapacity < 0 || c.OrderRateLimitPerSecond < 0 {
		errs = append(errs, errors.New("order rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

// IsAdminSubject 判斷 token subject 是否在管理員名單內
func (c *Config) IsAdminSubject(subject string) bool {
	for _, s := range c.AdminSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
