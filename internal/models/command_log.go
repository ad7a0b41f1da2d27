package models

import (
	"time"
)

// 操作名称，与远程调用名称一致
const (
	OperationConnect    = "connect_port"
	OperationDisconnect = "disconnect_port"
	OperationSend       = "send_command"
)

// 调用来源
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceCLI       = "cli"
	SourceInternal  = "internal"
)

// CommandLog 串口操作记录
//
// 只记录发出的操作，不保存设备响应。
type CommandLog struct {
	BaseModel
	Operation  string `gorm:"type:varchar(32);index;not null" json:"operation"`
	Port       string `gorm:"type:varchar(255);index" json:"port,omitempty"`
	Command    string `gorm:"type:text" json:"command,omitempty"`
	Success    bool   `gorm:"index" json:"success"`
	ErrorCode  int    `gorm:"default:0" json:"error_code,omitempty"`
	ErrorMsg   string `gorm:"type:text" json:"error_msg,omitempty"`
	DurationMs int64  `gorm:"default:0" json:"duration_ms"`
	Source     string `gorm:"type:varchar(16)" json:"source"`
	RequestID  string `gorm:"type:varchar(64);index" json:"request_id,omitempty"`
	ClientIP   string `gorm:"type:varchar(64)" json:"client_ip,omitempty"`
}

// TableName 表名
func (CommandLog) TableName() string {
	return "command_logs"
}

// CommandLogFilter 查询条件
type CommandLogFilter struct {
	Operation string
	Port      string
	Success   *bool
	Since     *time.Time
	Until     *time.Time
	Page      int
	PageSize  int
}
