package dao

import (
	"context"

	"gorm.io/gorm"

	"github.com/VeduStorm/NovaCore/nova/model"
)

// ListCheckLogs returns up to limit rows of day, newest first. A missing table yields no rows.
func ListCheckLogs(ctx context.Context, db *gorm.DB, day string, limit int) ([]model.CheckLog, error) {
	tbl := model.CheckLogTable(day)
	if !db.Migrator().HasTable(tbl) {
		return []model.CheckLog{}, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var out []model.CheckLog
	err := db.WithContext(ctx).Table(tbl).Order("time DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}
