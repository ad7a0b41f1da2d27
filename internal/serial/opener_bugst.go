package serial

import (
	"fmt"

	bugst "go.bug.st/serial"
)

// BugstOpener 基于 go.bug.st/serial 的串口驱动
type BugstOpener struct{}

// Open 以固定参数（115200 8N1，1秒超时）打开串口
func (BugstOpener) Open(name string) (Device, error) {
	mode := &bugst.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}

	port, err := bugst.Open(name, mode)
	if err != nil {
		return nil, err
	}

	// 库没有写超时设置，只能限制读
	if err := port.SetReadTimeout(Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return &bugstDevice{Port: port}, nil
}

// bugstDevice 适配 bugst.Port 到 Device
type bugstDevice struct {
	bugst.Port
}

// Flush 等待发送缓冲区中的数据全部发出
func (d *bugstDevice) Flush() error {
	return d.Port.Drain()
}
