package serial

import (
	"fmt"

	"github.com/wfunc/serial-console/internal/config"
)

// 驱动名称
const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

// NewOpener 根据配置选择串口驱动
//
// 调试模式下返回只认识 mock_ports 的内存驱动。
func NewOpener(cfg *config.SerialConfig) (Opener, error) {
	if cfg.MockMode {
		return NewMockOpener(cfg.MockPorts...), nil
	}

	switch cfg.Driver {
	case "", DriverBugst:
		return BugstOpener{}, nil
	case DriverTarm:
		return TarmOpener{}, nil
	default:
		return nil, fmt.Errorf("unknown serial driver: %s", cfg.Driver)
	}
}
