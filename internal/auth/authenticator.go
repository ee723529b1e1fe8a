// Package auth 为出站通知请求附加认证信息
package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// 认证相关错误定义
var (
	ErrNilRequest    = errors.New(constants.ErrMsgNilRequest)
	ErrEmptyToken    = errors.New("bearer token cannot be empty")
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Authenticator 代表认证器接口
type Authenticator interface {
	// Apply 将认证信息写入请求头部
	Apply(req *http.Request) error

	// Type 获取认证器类型
	Type() string
}

type noneAuthenticator struct{}

// NewNoneAuthenticator 创建不附加任何认证信息的认证器
func NewNoneAuthenticator() Authenticator {
	return noneAuthenticator{}
}

func (noneAuthenticator) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	return nil
}

func (noneAuthenticator) Type() string {
	return constants.AuthTypeNone
}

// bearerAuthenticator 代表Bearer Token认证实现
type bearerAuthenticator struct {
	header string // 预先拼接好的 Authorization 值
}

// NewBearerAuthenticator 创建Bearer Token认证器
func NewBearerAuthenticator(token string) (Authenticator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &bearerAuthenticator{header: constants.BearerPrefix + token}, nil
}

func (a *bearerAuthenticator) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	req.Header.Set(constants.HeaderAuthorization, a.header)
	return nil
}

func (a *bearerAuthenticator) Type() string {
	return constants.AuthTypeBearer
}

// basicAuthenticator 代表Basic Auth认证实现
type basicAuthenticator struct {
	header string
}

// NewBasicAuthenticator 创建Basic Auth认证器
func NewBasicAuthenticator(username, password string) (Authenticator, error) {
	username, password = strings.TrimSpace(username), strings.TrimSpace(password)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &basicAuthenticator{header: constants.BasicPrefix + credentials}, nil
}

func (a *basicAuthenticator) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	req.Header.Set(constants.HeaderAuthorization, a.header)
	return nil
}

func (a *basicAuthenticator) Type() string {
	return constants.AuthTypeBasic
}
