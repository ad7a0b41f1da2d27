package service

import (
	"context"
	stderrors "errors"

	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/utils"
	"go.uber.org/zap"
)

const operatorName = "operator"

type authService struct {
	enabled      bool
	passwordHash string
	jwtManager   *utils.JWTManager
	log          *zap.Logger
}

// NewAuthService 创建访问控制服务
//
// 单操作员模式：密码哈希来自配置，不存数据库。
func NewAuthService(cfg *config.SecurityConfig, jwtManager *utils.JWTManager) AuthService {
	return &authService{
		enabled:      cfg.Enabled,
		passwordHash: cfg.PasswordHash,
		jwtManager:   jwtManager,
		log:          logger.GetModuleLogger("api"),
	}
}

func (s *authService) Enabled() bool {
	return s.enabled
}

// Login 校验密码并签发访问令牌
func (s *authService) Login(ctx context.Context, password string) (*LoginResponse, error) {
	if !s.enabled {
		return nil, errors.New(errors.ErrNotImplemented, "authentication is disabled")
	}

	ok, err := utils.VerifyPassword(password, s.passwordHash)
	if err != nil {
		s.log.Error("密码哈希格式错误", zap.Error(err))
		return nil, errors.Wrap(err, errors.ErrConfigValidate, "security.password_hash")
	}
	if !ok {
		s.log.Warn("登录失败：密码错误")
		return nil, errors.New(errors.ErrAuthentication, "invalid password")
	}

	token, expiresAt, err := s.jwtManager.Generate(operatorName)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "sign token")
	}
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *authService) ValidateToken(token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.Validate(token)
	switch {
	case err == nil:
		return claims, nil
	case stderrors.Is(err, utils.ErrExpiredToken):
		return nil, errors.New(errors.ErrTokenExpired)
	default:
		return nil, errors.New(errors.ErrTokenInvalid)
	}
}
