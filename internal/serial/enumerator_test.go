package serial

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/serial-console/internal/errors"
	"go.bug.st/serial/enumerator"
)

func staticList(details ...*enumerator.PortDetails) ListFunc {
	return func() ([]*enumerator.PortDetails, error) {
		return details, nil
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		detail enumerator.PortDetails
		want   PortType
	}{
		{"usb", enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true}, PortTypeUSB},
		{"rfcomm", enumerator.PortDetails{Name: "/dev/rfcomm0"}, PortTypeBluetooth},
		{"mac bluetooth", enumerator.PortDetails{Name: "/dev/cu.Bluetooth-Incoming-Port"}, PortTypeBluetooth},
		{"bluetooth product", enumerator.PortDetails{Name: "COM7", Product: "Standard Serial over Bluetooth link"}, PortTypeBluetooth},
		{"plain", enumerator.PortDetails{Name: "/dev/ttyS0"}, PortTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.detail))
		})
	}
}

func TestListPortsFiltersExcludedClasses(t *testing.T) {
	enum := NewEnumeratorWith(staticList(
		&enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true},
		&enumerator.PortDetails{Name: "/dev/rfcomm0"},
		&enumerator.PortDetails{Name: "/dev/ttyS0"},
		nil,
		&enumerator.PortDetails{Name: "/dev/cu.Bluetooth-Incoming-Port"},
		&enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true},
	))

	ports, err := enum.ListPorts()
	require.NoError(t, err)
	// 保持系统顺序，不重新排序
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyS0", "/dev/ttyACM0"}, ports)
}

func TestListPortsEmpty(t *testing.T) {
	ports, err := NewEnumeratorWith(staticList()).ListPorts()
	require.NoError(t, err)
	assert.Empty(t, ports)
	assert.NotNil(t, ports)
}

func TestListPortsError(t *testing.T) {
	enum := NewEnumeratorWith(func() ([]*enumerator.PortDetails, error) {
		return nil, stderrors.New("udev unavailable")
	})

	_, err := enum.ListPorts()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPortEnumerate))
	assert.Contains(t, err.Error(), "udev unavailable")
}

func TestListPortDetails(t *testing.T) {
	enum := NewEnumeratorWith(staticList(
		&enumerator.PortDetails{
			Name: "COM3", IsUSB: true, VID: "0483", PID: "5740",
			SerialNumber: "3677", Product: "STM32 Virtual ComPort",
		},
	))

	infos, err := enum.ListPortDetails()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, PortInfo{
		Name: "COM3", Type: PortTypeUSB, VID: "0483", PID: "5740",
		SerialNumber: "3677", Product: "STM32 Virtual ComPort",
	}, infos[0])
}

func TestMockEnumerator(t *testing.T) {
	ports, err := NewMockEnumerator([]string{"COM3", "COM5"}).ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{"COM3", "COM5"}, ports)
}
