package db

import (
	"fmt"
	"time"

	"orderapp/internal/config"
	"orderapp/internal/domain/model"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.DB, log *zap.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: newGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		return gorm.Open(postgres.Open(postgresDSN(cfg)), gcfg)
	case config.DriverMySQL:
		dsn, err := mysqlDSN(cfg)
		if err != nil {
			return nil, err
		}
		return gorm.Open(mysql.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg config.DB) string {
	// DATABASE_URL があれば最優先で使う
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
	)
}

// time.Time を読むので parseTime は必ずON
func mysqlDSN(cfg config.DB) (string, error) {
	raw := cfg.MySQLDSN
	if raw == "" {
		raw = cfg.DatabaseURL
	}
	parsed, err := mysqldrv.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("invalid MYSQL_DSN: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

// gormのログもzapに流す
func newGormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		return logger.Discard
	}
	return logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// Migrate はテーブルを作る（参照される側から順に）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Customer{},
		&model.Order{},
		&model.OrderItem{},
		&model.User{},
	)
}
