package db

import (
  "fmt"

  "gorm.io/driver/postgres"
  "gorm.io/gorm"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/platform/envutil"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  postgresHost := envutil.String("POSTGRES_HOST", "localhost")
  postgresPort := envutil.String("POSTGRES_PORT", "5432")
  postgresUser := envutil.String("POSTGRES_USER", "postgres")
  postgresPassword := envutil.String("POSTGRES_PASSWORD", "")
  postgresName := envutil.String("POSTGRES_NAME", "quillsign")
  sslMode := envutil.String("POSTGRES_SSLMODE", "disable")

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
    postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, sslMode)

  serviceLog.Info("Connecting to Postgres...")
  gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    return nil, fmt.Errorf("connect to postgres: %w", err)
  }

  return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.Envelope{},
    &types.EnvelopeSigner{},
    &types.AuditEvent{},
    &types.InvitationToken{},
  )
  if err != nil {
    return fmt.Errorf("automigrate: %w", err)
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
