package db

import (
	"fmt"

	"github.com/VeduStorm/NovaCore/nova/model"
)

// EnsureCheckLogTable creates the per-day audit table and its indexes. day: "20261016".
func EnsureCheckLogTable(d *DB, day string) error {
	tbl := model.CheckLogTable(day)

	switch d.Driver {
	case "mysql":
		create := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id BIGINT PRIMARY KEY AUTO_INCREMENT,
  time BIGINT NOT NULL,
  mode VARCHAR(16) NOT NULL,
  config_path VARCHAR(512),
  serial VARCHAR(128),
  product VARCHAR(255),
  owner VARCHAR(255),
  ok TINYINT(1) NOT NULL,
  mismatches INT NOT NULL DEFAULT 0,
  mismatch_text TEXT,
  error_text TEXT,
  KEY idx_%[1]s_time (time),
  KEY idx_%[1]s_ok_time (ok, time),
  KEY idx_%[1]s_serial_time (serial, time)
);`, tbl)
		return d.GormDataSource.Exec(create).Error

	case "sqlite", "sqlite3":
		create := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  time BIGINT NOT NULL,
  mode TEXT NOT NULL,
  config_path TEXT,
  serial TEXT,
  product TEXT,
  owner TEXT,
  ok BOOLEAN NOT NULL,
  mismatches INTEGER NOT NULL DEFAULT 0,
  mismatch_text TEXT,
  error_text TEXT
);`, tbl)
		if err := d.GormDataSource.Exec(create).Error; err != nil {
			return err
		}
		idxes := []struct {
			name string
			cols string
		}{
			{fmt.Sprintf("idx_%s_time", tbl), "time"},
			{fmt.Sprintf("idx_%s_ok_time", tbl), "ok, time"},
			{fmt.Sprintf("idx_%s_serial_time", tbl), "serial, time"},
		}
		for _, ix := range idxes {
			sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);", ix.name, tbl, ix.cols)
			if err := d.GormDataSource.Exec(sql).Error; err != nil {
				return err
			}
		}
		return nil

	default:
		return ErrUnsupportedDriver
	}
}

// HasCheckLogTable reports whether the audit table for day exists.
func HasCheckLogTable(d *DB, day string) bool {
	return d.GormDataSource.Migrator().HasTable(model.CheckLogTable(day))
}
