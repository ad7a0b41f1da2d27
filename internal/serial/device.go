package serial

import (
	"io"
	"time"
)

// 固定串口参数，所有连接一律使用
const (
	BaudRate = 115200
	DataBits = 8
	Timeout  = time.Second

	// MaxResponseSize 单次读取响应的最大字节数
	MaxResponseSize = 1024
)

// Device 串口设备能力接口
//
// Flush 必须在数据真正发出（或进入驱动层发送队列）后返回，不能丢弃未发送的数据。
type Device interface {
	io.ReadWriteCloser
	Flush() error
}

// Opener 按设备名打开串口
type Opener interface {
	Open(name string) (Device, error)
}

// OpenerFunc 函数适配器
type OpenerFunc func(name string) (Device, error)

// Open 实现Opener接口
func (f OpenerFunc) Open(name string) (Device, error) {
	return f(name)
}
