package serial

import (
	"strings"

	"github.com/wfunc/serial-console/internal/errors"
	"go.bug.st/serial/enumerator"
)

// PortType 设备类别
type PortType string

const (
	PortTypeUSB       PortType = "usb"
	PortTypeBluetooth PortType = "bluetooth"
	PortTypePCI       PortType = "pci"
	PortTypeUnknown   PortType = "unknown"
)

// Listable 可以出现在端口列表中的类别
func (t PortType) Listable() bool {
	return t == PortTypeUSB || t == PortTypeUnknown
}

// PortInfo 端口描述（每次枚举临时生成，不持久化）
type PortInfo struct {
	Name         string   `json:"name"`
	Type         PortType `json:"type"`
	VID          string   `json:"vid,omitempty"`
	PID          string   `json:"pid,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty"`
	Product      string   `json:"product,omitempty"`
}

// ListFunc 主机端口查询
type ListFunc func() ([]*enumerator.PortDetails, error)

// Enumerator 端口枚举器
type Enumerator struct {
	list ListFunc
}

// NewEnumerator 创建使用系统查询的枚举器
func NewEnumerator() *Enumerator {
	return &Enumerator{list: enumerator.GetDetailedPortsList}
}

// NewEnumeratorWith 使用自定义查询函数创建枚举器
func NewEnumeratorWith(list ListFunc) *Enumerator {
	return &Enumerator{list: list}
}

// NewMockEnumerator 返回固定端口列表的枚举器（调试模式）
func NewMockEnumerator(ports []string) *Enumerator {
	return NewEnumeratorWith(func() ([]*enumerator.PortDetails, error) {
		details := make([]*enumerator.PortDetails, 0, len(ports))
		for _, name := range ports {
			details = append(details, &enumerator.PortDetails{
				Name:    name,
				IsUSB:   true,
				Product: "Mock Serial Device",
			})
		}
		return details, nil
	})
}

// ListPorts 列出可用串口名称，保持系统返回的顺序
func (e *Enumerator) ListPorts() ([]string, error) {
	infos, err := e.ListPortDetails()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names, nil
}

// ListPortDetails 列出可用串口及其USB信息
func (e *Enumerator) ListPortDetails() ([]PortInfo, error) {
	details, err := e.list()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPortEnumerate)
	}

	infos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		t := Classify(d)
		if !t.Listable() {
			continue
		}
		infos = append(infos, PortInfo{
			Name:         d.Name,
			Type:         t,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return infos, nil
}

// Classify 判断设备类别
//
// 驱动只报告是否为USB设备，蓝牙串口通过设备名识别。
func Classify(d *enumerator.PortDetails) PortType {
	if d.IsUSB {
		return PortTypeUSB
	}

	name := strings.ToLower(d.Name)
	product := strings.ToLower(d.Product)
	if strings.Contains(name, "rfcomm") || strings.Contains(name, "bluetooth") ||
		strings.Contains(product, "bluetooth") {
		return PortTypeBluetooth
	}
	return PortTypeUnknown
}
