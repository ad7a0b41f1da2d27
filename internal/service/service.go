package service

import (
	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/repository"
	"github.com/wfunc/serial-console/internal/serial"
	"github.com/wfunc/serial-console/internal/utils"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Serial  SerialService
	Motor   *MotorService
	Setting SettingService
	History HistoryService
	Auth    AuthService
}

// NewServices 组装全部服务
//
// history.enabled 为false时不写操作记录，History 仍可查询已有数据。
func NewServices(db *gorm.DB, cfg *config.Config, manager *serial.Manager, enumerator *serial.Enumerator, notifier StateNotifier) *Services {
	settingService := NewSettingService(repository.NewSettingRepository(db))
	historyService := NewHistoryService(repository.NewCommandLogRepository(db), &cfg.History)

	var recorder Recorder
	if cfg.History.Enabled {
		recorder = historyService
	}

	serialService := NewSerialService(manager, enumerator, SerialServiceOptions{
		Recorder: recorder,
		Notifier: notifier,
		Settings: settingService,
	})

	jwtManager := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Expiry())

	return &Services{
		Serial:  serialService,
		Motor:   NewMotorService(serialService, settingService, &cfg.Serial),
		Setting: settingService,
		History: historyService,
		Auth:    NewAuthService(&cfg.Security, jwtManager),
	}
}

// Close 停止后台任务
func (s *Services) Close() {
	s.History.Close()
}
