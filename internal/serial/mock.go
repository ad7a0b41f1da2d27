package serial

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMockPortNotFound 模拟驱动中不存在的端口
var ErrMockPortNotFound = errors.New("no such port")

// MockDevice 内存串口设备（测试与调试模式使用）
//
// 记录每一次写入、刷新和关闭，可注入失败。
type MockDevice struct {
	Name string

	mu       sync.Mutex
	writes   [][]byte
	ops      []string
	flushes  int
	closed   bool
	readData []byte

	WriteErr   error
	FlushErr   error
	ReadErr    error
	CloseErr   error
	ShortWrite bool // 只写入一半数据
}

// NewMockDevice 创建模拟设备
func NewMockDevice(name string) *MockDevice {
	return &MockDevice{Name: name}
}

func (d *MockDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, "write")
	if d.closed {
		return 0, errors.New("port closed")
	}
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	n := len(p)
	if d.ShortWrite {
		n = len(p) / 2
	}
	buf := make([]byte, n)
	copy(buf, p[:n])
	d.writes = append(d.writes, buf)
	return n, nil
}

func (d *MockDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, "read")
	if d.ReadErr != nil {
		return 0, d.ReadErr
	}
	n := copy(p, d.readData)
	d.readData = d.readData[n:]
	return n, nil
}

// Flush 记录刷新
func (d *MockDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, "flush")
	if d.FlushErr != nil {
		return d.FlushErr
	}
	d.flushes++
	return nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, "close")
	d.closed = true
	return d.CloseErr
}

// Feed 追加待读取的数据
func (d *MockDevice) Feed(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readData = append(d.readData, data...)
}

// Writes 返回所有写入调用的数据副本
func (d *MockDevice) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.writes))
	for i, w := range d.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Ops 返回操作序列（write/flush/read/close）
func (d *MockDevice) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ops...)
}

// Flushes 成功刷新次数
func (d *MockDevice) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// Closed 是否已关闭
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// MockOpener 模拟串口驱动
type MockOpener struct {
	mu      sync.Mutex
	ports   map[string]bool
	openErr map[string]error
	opened  []*MockDevice
}

// NewMockOpener 创建模拟驱动，只有列出的端口可以打开
func NewMockOpener(ports ...string) *MockOpener {
	o := &MockOpener{
		ports:   make(map[string]bool, len(ports)),
		openErr: make(map[string]error),
	}
	for _, p := range ports {
		o.ports[p] = true
	}
	return o
}

// FailOpen 令指定端口打开失败
func (o *MockOpener) FailOpen(name string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openErr[name] = err
}

// Open 实现Opener接口
func (o *MockOpener) Open(name string) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.openErr[name]; ok {
		return nil, err
	}
	if !o.ports[name] {
		return nil, fmt.Errorf("%w: %s", ErrMockPortNotFound, name)
	}
	dev := NewMockDevice(name)
	o.opened = append(o.opened, dev)
	return dev, nil
}

// Opened 按打开顺序返回所有设备
func (o *MockOpener) Opened() []*MockDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MockDevice(nil), o.opened...)
}

// Last 最近一次打开的设备
func (o *MockOpener) Last() *MockDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.opened) == 0 {
		return nil
	}
	return o.opened[len(o.opened)-1]
}
