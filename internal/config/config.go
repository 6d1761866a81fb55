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

// Configはアプリ全体の設定（起動時に1回だけ作る）
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DB    DB
	JWT   JWT
	Kafka Kafka
	Otel  Otel

	SeedDemoData bool // 起動時にデモデータを入れる
}

type DB struct {
	Driver      string // postgres / mysql / memory
	DatabaseURL string // あれば最優先

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	MySQLDSN string
}

type JWT struct {
	Key      string // 署名キー（32byte以上）
	Issuer   string
	Audience string
	Expiry   time.Duration
}

type Kafka struct {
	Brokers    []string // 空ならイベントは流さない
	OrderTopic string
}

type Otel struct {
	Endpoint       string // 空ならOTLPへ送らない
	Authorization  string
	ServiceName    string
	ServiceVersion string
}

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// 環境変数と1対1
type rawConfig struct {
	Port     string `mapstructure:"port"`
	GoEnv    string `mapstructure:"go_env"`
	LogLevel string `mapstructure:"log_level"`

	DBDriver         string `mapstructure:"db_driver"`
	DatabaseURL      string `mapstructure:"database_url"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`
	MySQLDSN         string `mapstructure:"mysql_dsn"`

	JWTKey           string `mapstructure:"jwt_key"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
	JWTAudience      string `mapstructure:"jwt_audience"`
	JWTExpiryMinutes int    `mapstructure:"jwt_expiry_minutes"`

	SeedDemoData bool `mapstructure:"seed_demo_data"`

	KafkaBrokers    string `mapstructure:"kafka_brokers"`
	KafkaOrderTopic string `mapstructure:"kafka_order_topic"`

	OtelEndpoint      string `mapstructure:"otel_exporter_otlp_endpoint"`
	OtelAuthorization string `mapstructure:"otel_exporter_otlp_headers_authorization"`
	ServiceName       string `mapstructure:"service_name"`
	ServiceVersion    string `mapstructure:"service_version"`
}

// Loadは.env（あれば）→環境変数の順で読む
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := Config{
		Port:     raw.Port,
		GoEnv:    raw.GoEnv,
		LogLevel: strings.ToLower(raw.LogLevel),
		DB: DB{
			Driver:           strings.ToLower(raw.DBDriver),
			DatabaseURL:      raw.DatabaseURL,
			PostgresUser:     raw.PostgresUser,
			PostgresPassword: raw.PostgresPassword,
			PostgresDB:       raw.PostgresDB,
			PostgresHost:     raw.PostgresHost,
			PostgresPort:     raw.PostgresPort,
			PostgresSSLMode:  raw.PostgresSSLMode,
			MySQLDSN:         raw.MySQLDSN,
		},
		JWT: JWT{
			Key:      raw.JWTKey,
			Issuer:   raw.JWTIssuer,
			Audience: raw.JWTAudience,
			Expiry:   time.Duration(raw.JWTExpiryMinutes) * time.Minute,
		},
		Kafka: Kafka{
			Brokers:    splitList(raw.KafkaBrokers),
			OrderTopic: raw.KafkaOrderTopic,
		},
		Otel: Otel{
			Endpoint:       raw.OtelEndpoint,
			Authorization:  raw.OtelAuthorization,
			ServiceName:    raw.ServiceName,
			ServiceVersion: raw.ServiceVersion,
		},
		SeedDemoData: raw.SeedDemoData,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("go_env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("database_url", "")
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "postgres")
	v.SetDefault("postgres_db", "orders")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_sslmode", "disable")
	v.SetDefault("mysql_dsn", "")

	v.SetDefault("jwt_key", "")
	v.SetDefault("jwt_issuer", "orderapp")
	v.SetDefault("jwt_audience", "orderapp")
	v.SetDefault("jwt_expiry_minutes", 60)

	v.SetDefault("seed_demo_data", false)

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_order_topic", "order-events")

	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers_authorization", "")
	v.SetDefault("service_name", "orderapp")
	v.SetDefault("service_version", "dev")
}

// 必須チェック
func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DatabaseURL == "" && c.DB.PostgresHost == "" {
			return fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
		}
	case DriverMySQL:
		if c.DB.MySQLDSN == "" && c.DB.DatabaseURL == "" {
			return fmt.Errorf("MYSQL_DSN is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, mysql, memory")
	}
	if c.JWT.Key == "" {
		return fmt.Errorf("JWT_KEY is required")
	}
	if len(c.JWT.Key) < 32 {
		return fmt.Errorf("JWT_KEY must be at least 32 bytes")
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY_MINUTES must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.OrderTopic == "" {
		return fmt.Errorf("KAFKA_ORDER_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod"
}

// カンマ区切り
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
