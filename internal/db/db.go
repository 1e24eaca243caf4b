package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
	"github.com/craftfolio/engine/internal/utils"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New opens the configured database. DB_DRIVER selects postgres (default)
// or sqlite; sqlite exists for local development and CI, postgres is what
// production runs.
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "engine.db", log)
		gdb, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "craftfolio", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
	if err != nil {
		serviceLog.Error("failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == "postgres" {
		if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			serviceLog.Error("failed to enable uuid-ossp extension", "error", err)
			return nil, fmt.Errorf("enable uuid-ossp: %w", err)
		}
	}

	serviceLog.Info("database connected", "driver", driver)
	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Follow{},
		&types.BehaviorEvent{},
		&types.Artwork{},
		&types.Comment{},
		&types.ModerationRecord{},
		&types.UserSanction{},
		&types.SpamDetectionResult{},
		&types.UserPreferenceProfile{},
		&types.TrendingMetrics{},
		&types.UserLevel{},
		&types.RecommendationLog{},
	)
	if err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}
	s.log.Info("auto migration complete")
	return nil
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
