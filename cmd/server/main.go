package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/api"
	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/database"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/serial"
	"github.com/wfunc/serial-console/internal/service"
	"github.com/wfunc/serial-console/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息，构建时通过 -ldflags 注入
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const cleanupInterval = time.Hour

// Server 服务器主结构
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	manager  *serial.Manager
	hub      *websocket.Hub
	services *service.Services
	http     *http.Server

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 初始化组件并开始监听
func (s *Server) Start() error {
	s.logger.Info("正在启动串口控制台服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
		zap.String("driver", s.cfg.Serial.Driver),
		zap.Bool("mock", s.cfg.Serial.MockMode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	ln := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.http.ListenAndServe()
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			ln <- err
		}
	}()

	// 端口被占用等错误会立即返回
	select {
	case err := <-ln:
		return errors.Wrapf(err, errors.ErrUnknown, "监听 %s 失败", s.http.Addr)
	case <-time.After(200 * time.Millisecond):
	}

	s.startBackgroundTasks()

	config.Watch(func(newCfg *config.Config) {
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.cfg.Server.Addr()),
		zap.String("websocket", s.cfg.WebSocket.Path),
	)
	return nil
}

func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	if err := s.initDatabase(); err != nil {
		return err
	}

	opener, err := serial.NewOpener(&s.cfg.Serial)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigValidate)
	}
	enumerator := serial.NewEnumerator()
	if s.cfg.Serial.MockMode {
		enumerator = serial.NewMockEnumerator(s.cfg.Serial.MockPorts)
	}
	s.manager = serial.NewManager(opener)

	s.hub = websocket.NewHub(&s.cfg.WebSocket)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	s.services = service.NewServices(database.GetDB(), s.cfg, s.manager, enumerator, s.hub)
	s.services.Motor.LoadState(s.ctx)

	gin.SetMode(ginMode(s.cfg.Server.Mode))
	api.Version = Version
	router := api.NewRouter(api.Options{
		DB:             database.GetDB(),
		Services:       s.services,
		WebSocket:      websocket.NewHandler(s.hub, s.services.Serial, s.cfg.Server.AllowedOrigins),
		WebSocketPath:  s.cfg.WebSocket.Path,
		StaticDir:      s.cfg.Server.StaticDir,
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
	})

	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...", zap.String("driver", s.cfg.Database.Driver))

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(database.GetDB()); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}
	return nil
}

// startBackgroundTasks 定期清理过期操作记录
func (s *Server) startBackgroundTasks() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		s.cleanupHistory()
		for {
			select {
			case <-ticker.C:
				s.cleanupHistory()
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Server) cleanupHistory() {
	if _, err := s.services.History.Cleanup(s.ctx); err != nil {
		s.logger.Warn("清理操作记录失败", zap.Error(err))
	}
}

// WaitForShutdown 等待退出信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭
//
// 顺序: 停止HTTP -> 停止后台任务 -> 关闭串口 -> 落盘操作记录 -> 关闭数据库 -> 同步日志
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
		firstErr = err
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.logger.Warn("等待后台任务超时")
		if firstErr == nil {
			firstErr = errors.New(errors.ErrTimeout, "关闭超时")
		}
	}

	s.closeComponents()

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}
	return firstErr
}

func (s *Server) closeComponents() {
	if s.manager != nil {
		s.manager.Close()
	}
	if s.services != nil {
		s.services.Close()
	}
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
	s.logger.Info("所有组件已关闭")
}

// reloadConfig 只有日志级别支持热更新
func (s *Server) reloadConfig(newCfg *config.Config) {
	if newCfg.Log.Level != logger.Level() {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("日志级别已更新", zap.String("level", newCfg.Log.Level))
	}
}

// ginMode 把运行模式映射为gin模式
func ginMode(mode string) string {
	switch mode {
	case "production", gin.ReleaseMode:
		return gin.ReleaseMode
	case gin.TestMode:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func printVersion() {
	fmt.Printf("串口控制台服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func printHelp() {
	fmt.Println("串口控制台服务")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  serial-console [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  SERIAL_CONSOLE_SERVER_PORT     监听端口")
	fmt.Println("  SERIAL_CONSOLE_SERIAL_DRIVER   串口驱动 (bugst/tarm)")
	fmt.Println("  SERIAL_CONSOLE_SERIAL_MOCK_MODE 使用内存设备")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  serial-console -config=config/config.yaml")
	fmt.Println("  serial-console -version")
}

func printStartInfo(cfg *config.Config) {
	fmt.Println("═══════════════════════════════════════════════")
	fmt.Printf("  串口控制台 %s\n", Version)
	fmt.Printf("  模式: %s | PID: %d\n", cfg.Server.Mode, os.Getpid())
	fmt.Printf("  配置文件: %s\n", config.ConfigFile())
	fmt.Printf("  HTTP: http://%s  WebSocket: %s\n", cfg.Server.Addr(), cfg.WebSocket.Path)
	fmt.Println("═══════════════════════════════════════════════")
}
