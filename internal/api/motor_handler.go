package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/service"
)

// MotorHandler 电机控制器接口
type MotorHandler struct {
	motor *service.MotorService
}

// NewMotorHandler 创建电机控制处理器
func NewMotorHandler(motor *service.MotorService) *MotorHandler {
	return &MotorHandler{motor: motor}
}

// PWMRequest PWM设置请求
type PWMRequest struct {
	Value *int `json:"value" binding:"required"`
}

// CANIDRequest CAN ID设置请求
type CANIDRequest struct {
	ID *int `json:"id" binding:"required"`
}

// RegisterRoutes 注册路由
func (h *MotorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	motor := rg.Group("/motor")
	{
		motor.GET("/state", h.GetState)
		motor.POST("/connect", h.Connect)
		motor.POST("/disconnect", h.Disconnect)
		motor.POST("/pwm-mode", h.PWMMode)
		motor.POST("/start", h.Start)
		motor.POST("/stop", h.Stop)
		motor.POST("/zero", h.ZeroAll)
		motor.PUT("/pwm/:channel", h.SetPWM)
		motor.PUT("/can-id", h.SetCANID)
	}
}

// GetState 控制器状态
func (h *MotorHandler) GetState(c *gin.Context) {
	respondOK(c, h.motor.State())
}

// Connect 连接并切换到PWM模式
func (h *MotorHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.motor.Connect(callerContext(c), req.PortName); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.motor.State())
}

// Disconnect 停止电机后断开
func (h *MotorHandler) Disconnect(c *gin.Context) {
	h.motor.Disconnect(callerContext(c))
	respondOK(c, h.motor.State())
}

func (h *MotorHandler) PWMMode(c *gin.Context) {
	h.simple(c, h.motor.PWMMode)
}

func (h *MotorHandler) Start(c *gin.Context) {
	h.simple(c, h.motor.Start)
}

func (h *MotorHandler) Stop(c *gin.Context) {
	h.simple(c, h.motor.Stop)
}

func (h *MotorHandler) ZeroAll(c *gin.Context) {
	h.simple(c, h.motor.ZeroAll)
}

func (h *MotorHandler) simple(c *gin.Context, op func(ctx context.Context) error) {
	if err := op(callerContext(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.motor.State())
}

// SetPWM 设置单通道PWM，超出范围的值被截断
func (h *MotorHandler) SetPWM(c *gin.Context) {
	channel, err := strconv.Atoi(c.Param("channel"))
	if err != nil {
		respondError(c, errors.Newf(errors.ErrInvalidParam, "channel %q", c.Param("channel")))
		return
	}
	var req PWMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	applied, err := h.motor.SetPWM(callerContext(c), channel, *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"channel": channel, "value": applied})
}

// SetCANID 设置CAN ID
func (h *MotorHandler) SetCANID(c *gin.Context) {
	var req CANIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.motor.SetCANID(callerContext(c), *req.ID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.motor.State())
}
