package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/serial"
	"go.uber.org/zap"
)

func main() {
	var (
		list     = flag.Bool("list", false, "列出可用串口")
		details  = flag.Bool("details", false, "列出串口及USB信息")
		port     = flag.String("port", "", "要连接的串口")
		commands = flag.String("cmd", "", "发送的命令，多条用逗号分隔")
		read     = flag.Bool("read", false, "每条命令后读取一次响应")
		driver   = flag.String("driver", serial.DriverBugst, "串口驱动 (bugst/tarm)")
		mock     = flag.Bool("mock", false, "使用内存设备")
		logLevel = flag.String("log", "warn", "日志级别")
	)
	flag.Parse()

	if err := logger.Init(&config.LogConfig{Level: *logLevel, Format: "console", Output: "stdout"}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serialCfg := &config.SerialConfig{Driver: *driver, MockMode: *mock}
	if *mock {
		serialCfg.MockPorts = []string{"COM3", "COM5"}
	}

	if !*list && !*details && *port == "" {
		flag.Usage()
		os.Exit(2)
	}

	enumerator := serial.NewEnumerator()
	if *mock {
		enumerator = serial.NewMockEnumerator(serialCfg.MockPorts)
	}

	if *list {
		ports, err := enumerator.ListPorts()
		if err != nil {
			fail(err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
	}

	if *details {
		ports, err := enumerator.ListPortDetails()
		if err != nil {
			fail(err)
		}
		for _, p := range ports {
			fmt.Printf("%-20s %-8s VID=%s PID=%s SN=%s %s\n", p.Name, p.Type, p.VID, p.PID, p.SerialNumber, p.Product)
		}
	}

	if *port == "" {
		return
	}

	opener, err := serial.NewOpener(serialCfg)
	if err != nil {
		fail(err)
	}
	manager := serial.NewManager(opener)
	defer manager.Close()

	if err := manager.Connect(*port); err != nil {
		fail(err)
	}
	fmt.Printf("已连接 %s\n", *port)

	for _, cmd := range splitCommands(*commands) {
		if err := manager.SendCommand(cmd); err != nil {
			fail(err)
		}
		fmt.Printf("> %s\n", cmd)

		if *read {
			resp, err := manager.ReadResponse()
			if errors.Is(err, errors.ErrSerialTimeout) {
				fmt.Println("< (无响应)")
				continue
			}
			if err != nil {
				logger.Warn("读取响应失败", zap.String("command", cmd), zap.Error(err))
				continue
			}
			fmt.Printf("< %s\n", strings.TrimRight(resp, "\r\n"))
		}
	}
}

// splitCommands 按逗号切分，忽略空白项
func splitCommands(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	logger.Sync()
	os.Exit(1)
}
