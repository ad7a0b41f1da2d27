package models

import (
	"time"
)

// 常用设置键（界面偏好）
const (
	SettingLastPort  = "last_port"
	SettingCANID     = "can_id"
	SettingPWMValues = "pwm_values"
)

// Setting 键值设置，值为JSON文本
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (Setting) TableName() string {
	return "settings"
}
