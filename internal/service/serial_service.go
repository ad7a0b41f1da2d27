package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/serial"
	"go.uber.org/zap"
)

// SerialServiceOptions 可选依赖，均可为nil
type SerialServiceOptions struct {
	Recorder Recorder
	Notifier StateNotifier
	Settings SettingService // 记住最后连接的端口
}

type serialService struct {
	manager    *serial.Manager
	enumerator *serial.Enumerator
	recorder   Recorder
	notifier   StateNotifier
	settings   SettingService
	log        *zap.Logger
}

// NewSerialService 创建串口操作服务
func NewSerialService(manager *serial.Manager, enumerator *serial.Enumerator, opts SerialServiceOptions) SerialService {
	return &serialService{
		manager:    manager,
		enumerator: enumerator,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
		settings:   opts.Settings,
		log:        logger.GetModuleLogger("serial"),
	}
}

func (s *serialService) ListPorts(ctx context.Context) ([]string, error) {
	ports, err := s.enumerator.ListPorts()
	if err != nil {
		s.log.Error("枚举串口失败", zap.Error(err))
		return nil, err
	}
	return ports, nil
}

func (s *serialService) ListPortDetails(ctx context.Context) ([]serial.PortInfo, error) {
	return s.enumerator.ListPortDetails()
}

func (s *serialService) Connect(ctx context.Context, port string) error {
	start := time.Now()
	err := s.manager.Connect(port)
	s.record(ctx, models.OperationConnect, port, "", start, err)
	if err != nil {
		return err
	}

	s.notify()
	s.rememberPort(ctx, port)
	return nil
}

// Disconnect 总是成功
func (s *serialService) Disconnect(ctx context.Context) {
	before := s.manager.Status()
	start := time.Now()
	s.manager.Disconnect()

	if !before.Connected {
		return
	}
	s.record(ctx, models.OperationDisconnect, before.Port, "", start, nil)
	s.notify()
}

func (s *serialService) SendCommand(ctx context.Context, command string) error {
	start := time.Now()
	err := s.manager.SendCommand(command)
	s.record(ctx, models.OperationSend, s.manager.Status().Port, command, start, err)
	return err
}

func (s *serialService) Status() serial.Status {
	return s.manager.Status()
}

func (s *serialService) notify() {
	if s.notifier != nil {
		s.notifier.NotifyConnectionChanged(s.manager.Status())
	}
}

func (s *serialService) rememberPort(ctx context.Context, port string) {
	if s.settings == nil {
		return
	}
	value, _ := json.Marshal(port)
	if err := s.settings.Set(context.WithoutCancel(ctx), models.SettingLastPort, value); err != nil {
		s.log.Warn("保存最后连接的端口失败", zap.Error(err))
	}
}

func (s *serialService) record(ctx context.Context, operation, port, command string, start time.Time, err error) {
	if s.recorder == nil {
		return
	}

	caller := CallerFrom(ctx)
	entry := &models.CommandLog{
		Operation:  operation,
		Port:       port,
		Command:    command,
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
		Source:     caller.Source,
		RequestID:  caller.RequestID,
		ClientIP:   caller.ClientIP,
	}
	if err != nil {
		entry.ErrorCode = int(errors.GetCode(err))
		entry.ErrorMsg = err.Error()
	}
	s.recorder.Record(entry)
}
