package websocket

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/service"
)

// 可调用的命令
const (
	CmdListPorts      = "list_ports"
	CmdConnectPort    = "connect_port"
	CmdDisconnectPort = "disconnect_port"
	CmdSendCommand    = "send_command"
	CmdStatus         = "status"
)

// Request 客户端调用请求
type Request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Reply 调用结果，id原样返回
type Reply struct {
	Type  string          `json:"type"`
	ID    json.RawMessage `json:"id,omitempty"`
	OK    bool            `json:"ok"`
	Data  interface{}     `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  int             `json:"code,omitempty"`
}

type connectArgs struct {
	PortName  string `json:"port_name"`
	PortNameC string `json:"portName"`
}

func (a connectArgs) port() string {
	if a.PortName != "" {
		return a.PortName
	}
	return a.PortNameC
}

type sendArgs struct {
	Command string `json:"command"`
}

// Invoker 把调用请求分发到串口服务
type Invoker struct {
	serial service.SerialService
}

// NewInvoker 创建调用分发器
func NewInvoker(serial service.SerialService) *Invoker {
	return &Invoker{serial: serial}
}

// Handle 处理一条请求，返回编码后的响应
func (inv *Invoker) Handle(ctx context.Context, message []byte) []byte {
	logger.LogWebSocketMessage("receive", "invoke", string(message))

	var req Request
	var reply *Reply
	if err := json.Unmarshal(message, &req); err != nil {
		reply = errorReply(nil, errors.Wrap(err, errors.ErrMessageFormat))
	} else {
		reply = inv.dispatch(ctx, &req)
	}

	data, err := json.Marshal(reply)
	if err != nil {
		data, _ = json.Marshal(errorReply(req.ID, errors.Wrap(err, errors.ErrUnknown)))
	}
	return data
}

func (inv *Invoker) dispatch(ctx context.Context, req *Request) *Reply {
	switch req.Cmd {
	case CmdListPorts:
		ports, err := inv.serial.ListPorts(ctx)
		if err != nil {
			return errorReply(req.ID, err)
		}
		if ports == nil {
			ports = []string{}
		}
		return okReply(req.ID, ports)

	case CmdConnectPort:
		var args connectArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorReply(req.ID, err)
		}
		if err := inv.serial.Connect(ctx, args.port()); err != nil {
			return errorReply(req.ID, err)
		}
		return okReply(req.ID, inv.serial.Status())

	case CmdDisconnectPort:
		inv.serial.Disconnect(ctx)
		return okReply(req.ID, nil)

	case CmdSendCommand:
		var args sendArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorReply(req.ID, err)
		}
		if err := inv.serial.SendCommand(ctx, args.Command); err != nil {
			return errorReply(req.ID, err)
		}
		return okReply(req.ID, nil)

	case CmdStatus:
		return okReply(req.ID, inv.serial.Status())

	case "":
		return errorReply(req.ID, errors.New(errors.ErrMessageFormat, "cmd is required"))

	default:
		return errorReply(req.ID, errors.Newf(errors.ErrNotImplemented, "unknown cmd %q", req.Cmd))
	}
}

// decodeArgs 参数缺省时按空对象处理
func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrInvalidParam, "args")
	}
	return nil
}

func okReply(id json.RawMessage, data interface{}) *Reply {
	return &Reply{Type: "result", ID: id, OK: true, Data: data}
}

func errorReply(id json.RawMessage, err error) *Reply {
	appErr := errors.AsAppError(err)
	return &Reply{
		Type:  "result",
		ID:    id,
		OK:    false,
		Error: err.Error(),
		Code:  int(appErr.Code),
	}
}
