package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/service"
)

// SerialHandler 串口操作接口
type SerialHandler struct {
	serial service.SerialService
}

// NewSerialHandler 创建串口操作处理器
func NewSerialHandler(serial service.SerialService) *SerialHandler {
	return &SerialHandler{serial: serial}
}

// ConnectRequest 连接请求
type ConnectRequest struct {
	PortName string `json:"port_name"`
}

// SendCommandRequest 发送命令请求
type SendCommandRequest struct {
	Command string `json:"command"`
}

// RegisterRoutes 注册路由
func (h *SerialHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ports", h.ListPorts)
	rg.GET("/ports/details", h.ListPortDetails)

	conn := rg.Group("/connection")
	{
		conn.GET("", h.GetConnection)
		conn.POST("", h.Connect)
		conn.DELETE("", h.Disconnect)
	}

	rg.POST("/commands", h.SendCommand)
}

// ListPorts 列出可用串口
func (h *SerialHandler) ListPorts(c *gin.Context) {
	ports, err := h.serial.ListPorts(callerContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if ports == nil {
		ports = []string{}
	}
	respondOK(c, ports)
}

// ListPortDetails 列出可用串口及USB信息
func (h *SerialHandler) ListPortDetails(c *gin.Context) {
	ports, err := h.serial.ListPortDetails(callerContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, ports)
}

// GetConnection 当前连接状态
func (h *SerialHandler) GetConnection(c *gin.Context) {
	respondOK(c, h.serial.Status())
}

// Connect 打开串口，替换已有连接
func (h *SerialHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.serial.Connect(callerContext(c), req.PortName); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.serial.Status())
}

// Disconnect 关闭当前连接，未连接时同样成功
func (h *SerialHandler) Disconnect(c *gin.Context) {
	h.serial.Disconnect(callerContext(c))
	respondOK(c, h.serial.Status())
}

// SendCommand 发送一行命令
func (h *SerialHandler) SendCommand(c *gin.Context) {
	var req SendCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.serial.SendCommand(callerContext(c), req.Command); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
