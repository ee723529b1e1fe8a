package server

import (
	"errors"

	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// 服务器相关错误定义
var (
	// 服务器状态错误
	ErrServerAlreadyStarted = errors.New(constants.ErrMsgServerAlreadyStarted)
	ErrServerNotStarted     = errors.New(constants.ErrMsgServerNotStarted)
	ErrServerIsNotRunning   = errors.New(constants.ErrMsgServerNotRunning)

	// 服务状态错误
	ErrServiceAlreadyStarted = errors.New(constants.ErrMsgServiceAlreadyStarted)
	ErrServiceNotStarted     = errors.New(constants.ErrMsgServiceNotStarted)
	ErrServiceIsNotRunning   = errors.New(constants.ErrMsgServiceNotRunning)

	// 请求错误
	ErrNilRequest          = errors.New(constants.ErrMsgNilRequest)
	ErrInvalidCheckRequest = errors.New(constants.ErrMsgInvalidCheckRequest)
	ErrStoreUnavailable    = errors.New(constants.ErrMsgStoreUnavailable)
	ErrBreakerOpen         = errors.New(constants.ErrMsgBreakerOpen)
)
