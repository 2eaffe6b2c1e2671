package model

import "fmt"

type CheckLog struct {
	Id           int64  `gorm:"column:id" json:"id"`
	Time         int64  `gorm:"column:time" json:"time"` // ms
	Mode         string `gorm:"column:mode" json:"mode"`
	ConfigPath   string `gorm:"column:config_path" json:"config_path"`
	Serial       string `gorm:"column:serial" json:"serial"`
	Product      string `gorm:"column:product" json:"product"`
	Owner        string `gorm:"column:owner" json:"owner"`
	Ok           bool   `gorm:"column:ok" json:"ok"`
	Mismatches   int    `gorm:"column:mismatches" json:"mismatches"`
	MismatchText string `gorm:"column:mismatch_text" json:"mismatch_text"` // joined mismatches
	ErrorText    string `gorm:"column:error_text" json:"error_text"`       // set when the check failed
}

func CheckLogTable(day string) string {
	return fmt.Sprintf("check_log_%s", day) // e.g. 20261016
}
