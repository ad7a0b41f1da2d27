package serial

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

// Connection 当前打开的串口
type Connection struct {
	Name     string
	OpenedAt time.Time

	device Device
}

// Status 连接状态快照
type Status struct {
	Connected   bool       `json:"connected"`
	Port        string     `json:"port,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// Manager 串口连接管理器
//
// 全局最多持有一个连接。所有方法在整个调用期间持有锁，
// 设备I/O最长阻塞到 Timeout。
type Manager struct {
	mu     sync.Mutex
	opener Opener
	conn   *Connection
	log    *zap.Logger
}

// NewManager 创建连接管理器
func NewManager(opener Opener) *Manager {
	return &Manager{
		opener: opener,
		log:    logger.GetModuleLogger("serial"),
	}
}

// Connect 打开指定串口，替换已有连接
//
// 先打开新设备，成功后才释放旧连接；打开失败时原连接保持不变。
func (m *Manager) Connect(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrSerialPortOpen, "port name is empty")
	}

	dev, err := m.opener.Open(name)
	if err != nil {
		m.log.Warn("打开串口失败", zap.String("port", name), zap.Error(err))
		return errors.Wrapf(err, errors.ErrSerialPortOpen, "port=%s", name)
	}

	if m.conn != nil {
		m.log.Info("替换现有连接", zap.String("old", m.conn.Name), zap.String("new", name))
		m.release(m.conn)
	}

	m.conn = &Connection{
		Name:     name,
		OpenedAt: time.Now(),
		device:   dev,
	}
	m.log.Info("串口已连接", zap.String("port", name), zap.Int("baud", BaudRate))
	return nil
}

// Disconnect 断开当前连接，未连接时什么也不做
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return
	}
	m.release(m.conn)
	m.log.Info("串口已断开", zap.String("port", m.conn.Name))
	m.conn = nil
}

// release 刷新并关闭设备，错误只记录
func (m *Manager) release(conn *Connection) {
	if err := conn.device.Flush(); err != nil {
		m.log.Warn("关闭前刷新失败", zap.String("port", conn.Name), zap.Error(err))
	}
	if err := conn.device.Close(); err != nil {
		m.log.Warn("关闭串口失败", zap.String("port", conn.Name), zap.Error(err))
	}
}

// SendCommand 发送一行命令
//
// 命令后追加一个换行符，单次写入后刷新。失败时连接保持打开。
func (m *Manager) SendCommand(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return errors.New(errors.ErrSerialNotConnected)
	}

	err := m.send(m.conn, text)
	logger.LogSerialCommand(m.conn.Name, text, err)
	return err
}

func (m *Manager) send(conn *Connection, text string) error {
	data := []byte(text + "\n")

	n, err := conn.device.Write(data)
	if err != nil {
		return errors.Wrapf(err, errors.ErrSerialPortWrite, "port=%s", conn.Name)
	}
	if n != len(data) {
		return errors.Wrapf(io.ErrShortWrite, errors.ErrSerialPortWrite,
			"port=%s wrote %d of %d bytes", conn.Name, n, len(data))
	}

	if err := conn.device.Flush(); err != nil {
		return errors.Wrapf(err, errors.ErrSerialPortFlush, "port=%s", conn.Name)
	}
	return nil
}

// ReadResponse 读取一次设备响应（最多 MaxResponseSize 字节）
//
// 非法UTF-8序列替换为U+FFFD。超时未收到任何数据时返回 ErrSerialTimeout。
func (m *Manager) ReadResponse() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return "", errors.New(errors.ErrSerialNotConnected)
	}

	buf := make([]byte, MaxResponseSize)
	n, err := m.conn.device.Read(buf)
	if n == 0 && (err == nil || err == io.EOF) {
		return "", errors.Newf(errors.ErrSerialTimeout, "port=%s", m.conn.Name)
	}
	if err != nil && err != io.EOF {
		return "", errors.Wrapf(err, errors.ErrSerialPortRead, "port=%s", m.conn.Name)
	}

	return decodeLossy(buf[:n]), nil
}

// decodeLossy 按UTF-8解码，非法字节替换为U+FFFD
func decodeLossy(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// Status 返回当前连接状态
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return Status{}
	}
	openedAt := m.conn.OpenedAt
	return Status{
		Connected:   true,
		Port:        m.conn.Name,
		ConnectedAt: &openedAt,
	}
}

// IsConnected 是否已连接
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Close 关闭管理器（进程退出时调用）
func (m *Manager) Close() error {
	m.Disconnect()
	return nil
}
