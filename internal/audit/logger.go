package audit

import (
	"encoding/json"
	"log/slog"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

// Sink persists audit events.
type Sink interface {
	Log(ev Event) error
}

type Logger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Log(ev Event) error {
	var metaJSON string
	if ev.Metadata != nil {
		if b, err := json.Marshal(ev.Metadata); err == nil {
			metaJSON = string(b)
		}
	}

	row := models.AuditLog{
		OwnerID:  ev.OwnerID,
		Action:   ev.Action,
		Entity:   ev.Entity,
		EntityID: ev.EntityID,
		Metadata: metaJSON,
	}

	return l.db.Create(&row).Error
}

// LogSink writes audit events to the process log, for storage-less runs.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Log(ev Event) error {
	s.log.Info("audit",
		slog.Uint64("owner_id", uint64(ev.OwnerID)),
		slog.String("action", ev.Action),
		slog.String("entity", ev.Entity),
		slog.String("entity_id", ev.EntityID),
		slog.Any("metadata", ev.Metadata),
	)
	return nil
}
