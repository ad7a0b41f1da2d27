package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/serial"
	"go.uber.org/zap"
)

// 电机控制器命令
const (
	CmdPWMMode = "md"
	CmdStart   = "i"
	CmdStop    = "o"
	CmdZeroAll = "0"

	MotorChannels = 4
	MaxPWM        = 32000
	MaxCANID      = 2047 // 标准帧11位
)

// ClampPWM 限制PWM值到 [-MaxPWM, MaxPWM]
func ClampPWM(value int) int {
	switch {
	case value > MaxPWM:
		return MaxPWM
	case value < -MaxPWM:
		return -MaxPWM
	default:
		return value
	}
}

// PWMCommand 构造单通道PWM命令，返回命令和实际使用的值
func PWMCommand(channel, value int) (string, int, error) {
	if channel < 0 || channel >= MotorChannels {
		return "", 0, errors.Newf(errors.ErrInvalidParam, "channel %d out of range 0..%d", channel, MotorChannels-1)
	}
	value = ClampPWM(value)
	return fmt.Sprintf("p%d:%d", channel, value), value, nil
}

// CANIDCommand 构造CAN ID设置命令
func CANIDCommand(id int) (string, error) {
	if id < 0 || id > MaxCANID {
		return "", errors.Newf(errors.ErrInvalidParam, "can id %d out of range 0..%d", id, MaxCANID)
	}
	return fmt.Sprintf("c%d", id), nil
}

// MotorState 控制器状态（以最后一次成功发送的命令为准）
//
// Running 只对发送 i 时的那次连接有效，连接断开或被替换后视为停止。
type MotorState struct {
	CANID   *int               `json:"can_id,omitempty"`
	PWM     [MotorChannels]int `json:"pwm"`
	Running bool               `json:"running"`
}

// MotorService 电机控制器命令服务
//
// 所有命令都是普通的 send_command 负载，不解析设备响应。
type MotorService struct {
	serial           SerialService
	settings         SettingService
	initPWMMode      bool
	stopOnDisconnect bool
	log              *zap.Logger

	mu    sync.Mutex
	state MotorState
	// runningOn 发送 i 时连接的打开时间
	runningOn time.Time
}

// NewMotorService 创建电机服务，settings 可为nil
func NewMotorService(serialService SerialService, settings SettingService, cfg *config.SerialConfig) *MotorService {
	return &MotorService{
		serial:           serialService,
		settings:         settings,
		initPWMMode:      cfg.EnableMotorInit,
		stopOnDisconnect: cfg.StopOnDisconnect,
		log:              logger.GetModuleLogger("serial"),
	}
}

// Connect 连接串口并切换到PWM模式
//
// 切换失败时连接保持打开，返回发送错误。
func (m *MotorService) Connect(ctx context.Context, port string) error {
	if err := m.serial.Connect(ctx, port); err != nil {
		return err
	}
	if !m.initPWMMode {
		return nil
	}
	return m.serial.SendCommand(ctx, CmdPWMMode)
}

// Disconnect 先发送停止命令再断开，停止失败不影响断开
func (m *MotorService) Disconnect(ctx context.Context) {
	if m.stopOnDisconnect && m.serial.Status().Connected {
		if err := m.serial.SendCommand(ctx, CmdStop); err != nil {
			m.log.Warn("断开前停止电机失败", zap.Error(err))
		}
	}
	m.serial.Disconnect(ctx)
}

// PWMMode 切换到PWM模式
func (m *MotorService) PWMMode(ctx context.Context) error {
	return m.serial.SendCommand(ctx, CmdPWMMode)
}

// Start 开始运行
func (m *MotorService) Start(ctx context.Context) error {
	if err := m.serial.SendCommand(ctx, CmdStart); err != nil {
		return err
	}
	status := m.serial.Status()

	m.mu.Lock()
	m.state.Running = status.ConnectedAt != nil
	if status.ConnectedAt != nil {
		m.runningOn = *status.ConnectedAt
	}
	m.mu.Unlock()
	return nil
}

// Stop 停止运行
func (m *MotorService) Stop(ctx context.Context) error {
	if err := m.serial.SendCommand(ctx, CmdStop); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.Running = false
	m.mu.Unlock()
	return nil
}

// SetPWM 设置单通道PWM，超出范围的值被截断，返回实际发送的值
func (m *MotorService) SetPWM(ctx context.Context, channel, value int) (int, error) {
	cmd, value, err := PWMCommand(channel, value)
	if err != nil {
		return 0, err
	}
	if err := m.serial.SendCommand(ctx, cmd); err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.state.PWM[channel] = value
	pwm := m.state.PWM
	m.mu.Unlock()

	m.save(ctx, models.SettingPWMValues, pwm)
	return value, nil
}

// SetCANID 设置CAN ID
func (m *MotorService) SetCANID(ctx context.Context, id int) error {
	cmd, err := CANIDCommand(id)
	if err != nil {
		return err
	}
	if err := m.serial.SendCommand(ctx, cmd); err != nil {
		return err
	}

	m.mu.Lock()
	m.state.CANID = &id
	m.mu.Unlock()

	m.save(ctx, models.SettingCANID, id)
	return nil
}

// ZeroAll 全部通道归零
func (m *MotorService) ZeroAll(ctx context.Context) error {
	if err := m.serial.SendCommand(ctx, CmdZeroAll); err != nil {
		return err
	}

	m.mu.Lock()
	m.state.PWM = [MotorChannels]int{}
	m.mu.Unlock()

	m.save(ctx, models.SettingPWMValues, [MotorChannels]int{})
	return nil
}

// State 当前状态快照
func (m *MotorService) State() MotorState {
	status := m.serial.Status()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Running && !sameConnection(status, m.runningOn) {
		m.state.Running = false
	}
	st := m.state
	if st.CANID != nil {
		id := *st.CANID
		st.CANID = &id
	}
	return st
}

func sameConnection(status serial.Status, openedAt time.Time) bool {
	return status.Connected && status.ConnectedAt != nil && status.ConnectedAt.Equal(openedAt)
}

// LoadState 从设置中恢复上次的CAN ID和PWM值（不发送任何命令）
func (m *MotorService) LoadState(ctx context.Context) {
	if m.settings == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if raw, err := m.settings.Get(ctx, models.SettingCANID); err == nil {
		var id int
		if json.Unmarshal(raw, &id) == nil && id >= 0 && id <= MaxCANID {
			m.state.CANID = &id
		}
	}
	if raw, err := m.settings.Get(ctx, models.SettingPWMValues); err == nil {
		var pwm []int
		if json.Unmarshal(raw, &pwm) == nil {
			for i := 0; i < len(pwm) && i < MotorChannels; i++ {
				m.state.PWM[i] = ClampPWM(pwm[i])
			}
		}
	}
}

func (m *MotorService) save(ctx context.Context, key string, value interface{}) {
	if m.settings == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err == nil {
		err = m.settings.Set(context.WithoutCancel(ctx), key, raw)
	}
	if err != nil {
		m.log.Warn("保存电机设置失败", zap.String("key", key), zap.Error(err))
	}
}
