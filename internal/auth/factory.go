package auth

import (
	"errors"
	"fmt"

	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// ErrInvalidAuthType 不支持的认证类型
var ErrInvalidAuthType = errors.New("invalid auth type")

// New 根据配置创建认证器，未配置认证时返回无认证实现
func New(cfg *config.AuthConfig) (Authenticator, error) {
	if cfg == nil {
		return NewNoneAuthenticator(), nil
	}

	switch cfg.Type {
	case constants.AuthTypeNone, "":
		return NewNoneAuthenticator(), nil
	case constants.AuthTypeBearer:
		return NewBearerAuthenticator(cfg.Token)
	case constants.AuthTypeBasic:
		return NewBasicAuthenticator(cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAuthType, cfg.Type)
	}
}
