package db

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/club-calendar/internal/config"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

func NewDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt: true,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Owner{},
		&models.CalendarEvent{},
		&models.AvailabilityRule{},
		&models.Booking{},
		&models.SyncConnection{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	// One live booking per exact interval; cancelled rows free the slot.
	if err := db.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_live_slot
        ON bookings (owner_id, slot_start, slot_end)
        WHERE state <> 'cancelled'
    `).Error; err != nil {
		return err
	}

	return db.Exec(`
        UPDATE owners
        SET timezone = 'Europe/Rome'
        WHERE timezone IS NULL OR timezone = ''
    `).Error
}
