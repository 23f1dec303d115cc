package models

import (
	"time"
)

// BaseModel 所有持久化模型内嵌的公共字段
//
// 对外暴露的标识统一走各模型的ExternalID，自增主键只用于
// 表内关联，不出现在任何接口路径里。
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
