package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	PostgresSSLMode  string

	SQLitePath string
}

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

func Open(logg *logger.Logger, opts Options) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{Logger: gormLog}

	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	var dialector gorm.Dialector
	switch driver {
	case "", DriverPostgres:
		driver = DriverPostgres
		sslMode := opts.PostgresSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			opts.PostgresUser,
			opts.PostgresPassword,
			opts.PostgresHost,
			opts.PostgresPort,
			opts.PostgresName,
			sslMode,
		)
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = "file:estrella.db?_foreign_keys=on"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	serviceLog.Info("Database connected", "driver", driver)
	return &Service{db: gdb, driver: driver, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running auto migrations...")
	return AutoMigrateAll(s.db)
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
