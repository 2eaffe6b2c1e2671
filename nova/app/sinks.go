package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/common/config"
	"github.com/VeduStorm/NovaCore/nova/db"
	"github.com/VeduStorm/NovaCore/nova/db/dao"
	"github.com/VeduStorm/NovaCore/nova/model"
	"github.com/VeduStorm/NovaCore/nova/telemetry"
)

// Sinks are the outcome stores a config enables: the audit log and telemetry.
type Sinks struct {
	AuditDB            *db.DB
	CheckLogAggregator *dao.CheckLogAggregator
	Telemetry          *telemetry.Influx

	recorders []check.Recorder
	closeOnce sync.Once
}

// OpenSinks opens what cfg enables. Everything opened is closed again on error.
func OpenSinks(cfg *config.Config) (*Sinks, error) {
	s := &Sinks{}

	if cfg.Audit.Enable {
		ac := cfg.Audit
		log.Debugf("opening audit db: driver=%s", ac.Driver)
		auditDB, err := db.OpenGorm(ac.Driver, ac.DSN, ac.Pool)
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		day := time.Now().Format(DayLayout)
		if err := db.EnsureCheckLogTable(auditDB, day); err != nil {
			_ = auditDB.Close()
			return nil, fmt.Errorf("ensure check log table for %s: %w", day, err)
		}
		s.AuditDB = auditDB
		s.CheckLogAggregator = dao.NewCheckLogAggregator(
			auditDB.GormDataSource,
			auditDB.Driver,
			model.CheckLogTable,
			func(d string) error { return db.EnsureCheckLogTable(auditDB, d) },
			time.Second,
			200,
		)
		s.CheckLogAggregator.Start()
		s.recorders = append(s.recorders, AuditRecorder(s.CheckLogAggregator))
	}

	if cfg.Telemetry.Enable {
		tm, err := telemetry.NewInflux(cfg.Telemetry)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		s.Telemetry = tm
		s.recorders = append(s.recorders, tm)
	}
	return s, nil
}

// Recorders returns one recorder per open sink.
func (s *Sinks) Recorders() []check.Recorder {
	if s == nil {
		return nil
	}
	return s.recorders
}

// Close flushes queued audit rows, then releases telemetry and the audit db. Safe to call twice.
func (s *Sinks) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.CheckLogAggregator != nil {
			s.CheckLogAggregator.Shutdown()
		}
		if s.Telemetry != nil {
			s.Telemetry.Close()
		}
		if s.AuditDB != nil {
			if err := s.AuditDB.Close(); err != nil {
				log.Warnf("close audit db: %v", err)
			}
		}
	})
}
