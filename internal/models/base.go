package models

import (
	"time"
)

// BaseModel 基础模型
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All 需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&CommandLog{},
		&Setting{},
	}
}
