package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type connOptions struct {
	sslMode      string
	maxOpenConns int
	gormLogger   logger.Interface
}

type ConnOption func(*connOptions)

func WithSslMode(mode string) ConnOption {
	return func(o *connOptions) {
		o.sslMode = mode
	}
}

func WithMaxOpenConns(n int) ConnOption {
	return func(o *connOptions) {
		o.maxOpenConns = n
	}
}

func WithGormLogger(l logger.Interface) ConnOption {
	return func(o *connOptions) {
		o.gormLogger = l
	}
}

func newConnOptions(opts []ConnOption) *connOptions {
	o := &connOptions{
		sslMode:      "disable",
		maxOpenConns: 20,
		gormLogger:   logger.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetDbConn 連線到 postgres
func GetDbConn(dbname, host, port, user, pas string, opts ...ConnOption) (*gorm.DB, error) {
	o := newConnOptions(opts)

	// 資料來源名稱 (DSN)
	dsn := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s", user, pas, host, port, dbname, o.sslMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: o.gormLogger})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.maxOpenConns)
	sqlDB.SetMaxIdleConns(o.maxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteConn 本地開發與測試使用
// path 為 ":memory:" 時建立獨立的 in-memory 資料庫
// sqlite 同一時間只允許一個 writer, 所以只開一條連線
func GetSqliteConn(path string, opts ...ConnOption) (*gorm.DB, error) {
	o := newConnOptions(opts)

	var dsn string
	if path == ":memory:" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	} else {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: o.gormLogger})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := ping(db); err != nil {
		return nil, err
	}
	return db, nil
}

// NewDbConnFromConfig 依照 DB_DRIVER 選擇資料庫
func NewDbConnFromConfig(cf *config.Config, log *zerolog.Logger) (*gorm.DB, error) {
	gormLogger := NewGormLogger(log, 500*time.Millisecond)

	switch constants.DbDriver(cf.DbDriver) {
	case constants.DriverSqlite:
		return GetSqliteConn(cf.SqlitePath, WithGormLogger(gormLogger))
	case constants.DriverPostgres:
		return GetDbConn(cf.DbName, cf.DbHost, cf.DbPort, cf.DbUser, cf.DbPas,
			WithSslMode(cf.DbSslMode),
			WithMaxOpenConns(cf.DbMaxOpenConns),
			WithGormLogger(gormLogger),
		)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cf.DbDriver)
	}
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
