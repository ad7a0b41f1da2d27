package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/database"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/serial"
	"github.com/wfunc/serial-console/internal/service"
	"github.com/wfunc/serial-console/internal/utils"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *errors.AppError `json:"error"`
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Serial: config.SerialConfig{
			EnableMotorInit:  true,
			StopOnDisconnect: true,
		},
		History: config.HistoryConfig{Enabled: true, RetentionDays: 30},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		},
	}
}

func do(engine http.Handler, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

// APITestSuite HTTP接口测试套件
type APITestSuite struct {
	suite.Suite
	opener   *serial.MockOpener
	services *service.Services
	engine   *gin.Engine
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := newTestDB(s.T())
	s.opener = serial.NewMockOpener("COM3", "COM5")
	s.services = service.NewServices(db, testConfig(),
		serial.NewManager(s.opener),
		serial.NewMockEnumerator([]string{"COM3", "COM5"}),
		nil,
	)
	s.engine = NewRouter(Options{DB: db, Services: s.services}).GetEngine()
}

func (s *APITestSuite) TearDownTest() {
	s.services.Close()
}

func (s *APITestSuite) TestHealth() {
	w, _ := do(s.engine, "GET", "/health", nil)
	s.Equal(http.StatusOK, w.Code)

	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("healthy", body["status"])
	s.Equal("ok", body["database"])
}

func (s *APITestSuite) TestCrossOriginRejected() {
	w, env := do(s.engine, "POST", "/api/v1/connection", map[string]string{"port_name": "COM3"},
		"Origin", "https://evil.example")
	s.Equal(http.StatusForbidden, w.Code)
	s.Require().NotNil(env.Error)
	s.Equal(errors.ErrPermissionDenied, env.Error.Code)
	s.Empty(s.opener.Opened())

	// text/plain 不触发浏览器预检
	w, _ = do(s.engine, "POST", "/api/v1/connection", `{"port_name":"COM3"}`, "Content-Type", "text/plain")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.opener.Opened())

	w, _ = do(s.engine, "POST", "/api/v1/motor/start", nil, "Origin", "https://evil.example")
	s.Equal(http.StatusForbidden, w.Code)

	// 只读接口不受影响
	w, _ = do(s.engine, "GET", "/api/v1/connection", nil, "Origin", "https://evil.example")
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestOpenAPI() {
	w, _ := do(s.engine, "GET", "/openapi", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Type"), "yaml")
	s.Contains(w.Body.String(), "/api/v1/connection")

	w, _ = do(s.engine, "GET", "/docs/redoc", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `spec-url="/openapi"`)
}

func (s *APITestSuite) TestListPorts() {
	w, env := do(s.engine, "GET", "/api/v1/ports", nil)
	s.Equal(http.StatusOK, w.Code)
	s.True(env.Success)

	var ports []string
	s.Require().NoError(json.Unmarshal(env.Data, &ports))
	s.Equal([]string{"COM3", "COM5"}, ports)

	w, env = do(s.engine, "GET", "/api/v1/ports/details", nil)
	s.Equal(http.StatusOK, w.Code)
	var details []serial.PortInfo
	s.Require().NoError(json.Unmarshal(env.Data, &details))
	s.Len(details, 2)
}

func (s *APITestSuite) TestConnectionLifecycle() {
	w, env := do(s.engine, "POST", "/api/v1/connection", map[string]string{"port_name": "COM3"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var status serial.Status
	s.Require().NoError(json.Unmarshal(env.Data, &status))
	s.True(status.Connected)
	s.Equal("COM3", status.Port)

	w, _ = do(s.engine, "POST", "/api/v1/commands", map[string]string{"command": "PING"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal([][]byte{[]byte("PING\n")}, s.opener.Last().Writes())

	w, env = do(s.engine, "GET", "/api/v1/connection", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &status))
	s.True(status.Connected)

	w, env = do(s.engine, "DELETE", "/api/v1/connection", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &status))
	s.False(status.Connected)
	s.True(s.opener.Last().Closed())

	// 未连接时断开同样成功
	w, _ = do(s.engine, "DELETE", "/api/v1/connection", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestErrors() {
	w, env := do(s.engine, "POST", "/api/v1/commands", map[string]string{"command": "PING"})
	s.Equal(http.StatusConflict, w.Code)
	s.False(env.Success)
	s.Require().NotNil(env.Error)
	s.Equal(errors.ErrSerialNotConnected, env.Error.Code)
	s.Empty(env.Error.Stack)

	w, env = do(s.engine, "POST", "/api/v1/connection", map[string]string{"port_name": "COM9"})
	s.Equal(http.StatusBadGateway, w.Code)
	s.Equal(errors.ErrSerialPortOpen, env.Error.Code)

	w, env = do(s.engine, "POST", "/api/v1/connection", "{broken")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(errors.ErrInvalidParam, env.Error.Code)

	w, env = do(s.engine, "GET", "/api/v1/nothing", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(errors.ErrNotFound, env.Error.Code)
}

func (s *APITestSuite) TestMotor() {
	w, _ := do(s.engine, "POST", "/api/v1/motor/connect", map[string]string{"port_name": "COM3"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, env := do(s.engine, "PUT", "/api/v1/motor/pwm/2", map[string]int{"value": 40000})
	s.Equal(http.StatusOK, w.Code)
	var applied struct {
		Channel int `json:"channel"`
		Value   int `json:"value"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &applied))
	s.Equal(2, applied.Channel)
	s.Equal(service.MaxPWM, applied.Value)

	w, _ = do(s.engine, "PUT", "/api/v1/motor/pwm/7", map[string]int{"value": 1})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = do(s.engine, "PUT", "/api/v1/motor/pwm/1", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = do(s.engine, "PUT", "/api/v1/motor/can-id", map[string]int{"id": 5})
	s.Equal(http.StatusOK, w.Code)

	w, _ = do(s.engine, "POST", "/api/v1/motor/start", nil)
	s.Equal(http.StatusOK, w.Code)

	w, env = do(s.engine, "GET", "/api/v1/motor/state", nil)
	s.Equal(http.StatusOK, w.Code)
	var state service.MotorState
	s.Require().NoError(json.Unmarshal(env.Data, &state))
	s.True(state.Running)
	s.Require().NotNil(state.CANID)
	s.Equal(5, *state.CANID)
	s.Equal(service.MaxPWM, state.PWM[2])

	var sent []string
	for _, b := range s.opener.Last().Writes() {
		sent = append(sent, string(b))
	}
	s.Equal([]string{"md\n", "p2:32000\n", "c5\n", "i\n"}, sent)
}

func (s *APITestSuite) TestSettings() {
	w, _ := do(s.engine, "PUT", "/api/v1/settings/theme", `{"dark":true}`)
	s.Equal(http.StatusOK, w.Code)

	w, env := do(s.engine, "GET", "/api/v1/settings/theme", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"dark":true}`, string(env.Data))

	w, _ = do(s.engine, "PUT", "/api/v1/settings/theme", `not json`)
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = do(s.engine, "GET", "/api/v1/settings/missing", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, env = do(s.engine, "GET", "/api/v1/settings", nil)
	s.Equal(http.StatusOK, w.Code)
	var all map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(env.Data, &all))
	s.Contains(all, "theme")

	w, _ = do(s.engine, "DELETE", "/api/v1/settings/theme", nil)
	s.Equal(http.StatusOK, w.Code)
	w, _ = do(s.engine, "GET", "/api/v1/settings/theme", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestHistory() {
	do(s.engine, "POST", "/api/v1/connection", map[string]string{"port_name": "COM3"})
	do(s.engine, "POST", "/api/v1/commands", map[string]string{"command": "PING"}, "X-Request-ID", "req-42")

	w, env := do(s.engine, "GET", "/api/v1/history?operation=send_command", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Items []models.CommandLog `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Require().Len(page.Items, 1)
	s.Equal("PING", page.Items[0].Command)
	s.Equal(models.SourceHTTP, page.Items[0].Source)
	s.Equal("req-42", page.Items[0].RequestID)
	s.True(page.Items[0].Success)

	w, _ = do(s.engine, "GET", "/api/v1/history?success=maybe", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, env = do(s.engine, "GET", "/api/v1/history/latest?limit=10", nil)
	s.Equal(http.StatusOK, w.Code)
	var latest []models.CommandLog
	s.Require().NoError(json.Unmarshal(env.Data, &latest))
	s.Len(latest, 2)

	w, _ = do(s.engine, "POST", "/api/v1/history/cleanup", nil)
	s.Equal(http.StatusOK, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestAuthEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Security.Enabled = true
	cfg.Security.PasswordHash = hash

	db := newTestDB(t)
	services := service.NewServices(db, cfg,
		serial.NewManager(serial.NewMockOpener("COM3")),
		serial.NewMockEnumerator([]string{"COM3"}),
		nil,
	)
	defer services.Close()

	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	engine := NewRouter(Options{DB: db, Services: services, WebSocket: ws, WebSocketPath: "/ws"}).GetEngine()

	w, _ := do(engine, "GET", "/api/v1/ports", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(engine, "GET", "/ws", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(engine, "POST", "/api/v1/auth/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := do(engine, "POST", "/api/v1/auth/login", map[string]string{"password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login service.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.AccessToken)

	w, _ = do(engine, "GET", "/api/v1/ports", nil, "Authorization", "Bearer "+login.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// 浏览器WebSocket握手只能用查询参数
	w, _ = do(engine, "GET", "/ws?token="+login.AccessToken, nil)
	assert.Equal(t, http.StatusTeapot, w.Code)

	// 健康检查不需要认证
	w, _ = do(engine, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
