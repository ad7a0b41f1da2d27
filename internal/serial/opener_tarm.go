package serial

import (
	tarm "github.com/tarm/serial"
)

// TarmOpener 基于 github.com/tarm/serial 的串口驱动
type TarmOpener struct{}

// Open 以固定参数（115200 8N1，1秒超时）打开串口
func (TarmOpener) Open(name string) (Device, error) {
	config := &tarm.Config{
		Name:        name,
		Baud:        BaudRate,
		Size:        DataBits,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
		ReadTimeout: Timeout,
	}

	port, err := tarm.OpenPort(config)
	if err != nil {
		return nil, err
	}
	return &tarmDevice{port: port}, nil
}

// tarmDevice 适配 tarm.Port 到 Device
type tarmDevice struct {
	port *tarm.Port
}

func (d *tarmDevice) Read(p []byte) (int, error) {
	return d.port.Read(p)
}

func (d *tarmDevice) Write(p []byte) (int, error) {
	return d.port.Write(p)
}

func (d *tarmDevice) Close() error {
	return d.port.Close()
}

// Flush tarm 的写入是同步系统调用，写入返回即已交给驱动。
// tarm.Port.Flush 会清空收发缓冲区（丢弃未发送数据），这里不能调用。
func (d *tarmDevice) Flush() error {
	return nil
}
