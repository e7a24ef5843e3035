package database

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   newGormLogger(log, cfg.SlowQueryThreshold),
		PrepareStmt:                              true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Ping is used by the readiness probe.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var schemas = []string{"clinical", "directory", "content", "auth", "audit", "notify"}

func Models() []any {
	return []any{
		&domain.User{},
		&domain.AuditLog{},
		&facility.Facility{},
		&assessment.Assessment{},
		&referral.Referral{},
		&referral.History{},
		&appointment.Appointment{},
		&education.Content{},
		&notification.Log{},
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_appointments_doctor_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_doctor_schedule ON clinical.appointments (doctor_id, scheduled_at, duration_mins) WHERE deleted_at IS NULL AND status NOT IN ('cancelled', 'no_show', 'completed')`,
		},
		{
			name:  "idx_referrals_target_queue",
			query: `CREATE INDEX IF NOT EXISTS idx_referrals_target_queue ON clinical.referrals (target_facility_id, status, priority, created_at) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_referral_histories_timeline",
			query: `CREATE INDEX IF NOT EXISTS idx_referral_histories_timeline ON clinical.referral_histories (referral_id, created_at)`,
		},
		{
			name:  "idx_assessments_sync",
			query: `CREATE INDEX IF NOT EXISTS idx_assessments_sync ON clinical.assessments (updated_at, id)`,
		},
		{
			name:  "idx_facilities_sync",
			query: `CREATE INDEX IF NOT EXISTS idx_facilities_sync ON directory.facilities (updated_at, id)`,
		},
		{
			name:  "idx_facilities_services",
			query: `CREATE INDEX IF NOT EXISTS idx_facilities_services ON directory.facilities USING gin (services)`,
		},
		// Name search on assessments
		{
			name:  "idx_assessments_patient_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_assessments_patient_name_trgm ON clinical.assessments USING gin ((patient_first_name || ' ' || patient_last_name) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		log.Warn("pg_trgm extension unavailable; name search will not be indexed", zap.Error(err))
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			// Indexes are an optimisation; a missing extension must not block startup.
			log.Warn("index creation failed", zap.String("index", idx.name), zap.Error(err))
		}
	}

	return nil
}
