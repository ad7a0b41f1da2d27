package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/repository"
	"github.com/wfunc/serial-console/internal/serial"
	"github.com/wfunc/serial-console/internal/utils"
)

// SerialService 串口操作服务
//
// 四个远程操作加状态查询，HTTP 与 WebSocket 共用同一个实例。
type SerialService interface {
	ListPorts(ctx context.Context) ([]string, error)
	ListPortDetails(ctx context.Context) ([]serial.PortInfo, error)
	Connect(ctx context.Context, port string) error
	Disconnect(ctx context.Context)
	SendCommand(ctx context.Context, command string) error
	Status() serial.Status
}

// StateNotifier 连接状态变化通知
type StateNotifier interface {
	NotifyConnectionChanged(status serial.Status)
}

// Recorder 操作记录
type Recorder interface {
	Record(entry *models.CommandLog)
}

// HistoryService 操作记录服务
type HistoryService interface {
	Recorder
	Query(ctx context.Context, filter *models.CommandLogFilter) ([]*models.CommandLog, *repository.Pagination, error)
	Latest(ctx context.Context, limit int) ([]*models.CommandLog, error)
	Cleanup(ctx context.Context) (int64, error)
	Flush()
	Close()
}

// SettingService 界面偏好设置服务
type SettingService interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	List(ctx context.Context) (map[string]json.RawMessage, error)
	Delete(ctx context.Context, key string) error
}

// AuthService 访问控制服务
type AuthService interface {
	Enabled() bool
	Login(ctx context.Context, password string) (*LoginResponse, error)
	ValidateToken(token string) (*utils.JWTClaims, error)
}

// LoginResponse 登录结果
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
