package db

import (
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type Config struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	// Privileged credentials bypass row-level policies. Empty means a single
	// handle is used for both tiers.
	PrivilegedUser     string
	PrivilegedPassword string
	SSLMode            string
	MaxOpenConns       int
}

// PostgresService owns the primary (policy-enforced) and privileged handles.
type PostgresService struct {
	primary    *gorm.DB
	privileged *gorm.DB
	log        *logger.Logger
}

func NewPostgresService(log *logger.Logger, cfg Config) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	primary, err := open(cfg, cfg.User, cfg.Password, serviceLog)
	if err != nil {
		return nil, fmt.Errorf("connect primary: %w", err)
	}
	privileged := primary
	if cfg.PrivilegedUser != "" && cfg.PrivilegedUser != cfg.User {
		privileged, err = open(cfg, cfg.PrivilegedUser, cfg.PrivilegedPassword, serviceLog)
		if err != nil {
			closeDB(primary)
			return nil, fmt.Errorf("connect privileged: %w", err)
		}
	} else {
		serviceLog.Warn("no privileged database role configured; policy fallback reuses the primary handle")
	}
	serviceLog.Info("postgres connected", "host", cfg.Host, "db", cfg.Name, "split_roles", privileged != primary)
	return &PostgresService{primary: primary, privileged: privileged, log: serviceLog}, nil
}

func open(cfg Config, user, password string, log *logger.Logger) (*gorm.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}).String()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   newGormLogger(log),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(maxOpen/4, 2))
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func (s *PostgresService) DB() *gorm.DB         { return s.primary }
func (s *PostgresService) Privileged() *gorm.DB { return s.privileged }
func (s *PostgresService) SplitRoles() bool     { return s.privileged != s.primary }

func (s *PostgresService) Close() {
	closeDB(s.primary)
	if s.SplitRoles() {
		closeDB(s.privileged)
	}
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
