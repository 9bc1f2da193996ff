package db

import (
	"fmt"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{DB: gdb}, nil
}

func (s *Store) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&QuotaUsageModel{},
		&PlanLimitModel{},
		&ListingModel{},
	)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
