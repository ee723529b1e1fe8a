// Package headers 按配置修改出站通知请求的头部
package headers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// 头部操作相关错误定义
var (
	ErrInvalidOperation = errors.New("invalid header operation")
	ErrEmptyHeaderKey   = errors.New("header key cannot be empty")
	ErrNilHeader        = errors.New("header cannot be nil")
)

// Apply 按顺序执行头部操作，遇到第一个错误即返回
func Apply(h http.Header, ops []config.HeaderOpConfig) error {
	if h == nil {
		return ErrNilHeader
	}
	for i, op := range ops {
		if err := ApplyOne(h, op); err != nil {
			return fmt.Errorf("header operation %d: %w", i, err)
		}
	}
	return nil
}

// ApplyOne 执行单个头部操作
// insert 仅在头部不存在时写入，replace 总是覆盖，remove 删除。
func ApplyOne(h http.Header, op config.HeaderOpConfig) error {
	if h == nil {
		return ErrNilHeader
	}

	key := strings.TrimSpace(op.Key)
	if key == "" {
		return ErrEmptyHeaderKey
	}

	switch strings.ToLower(op.Op) {
	case constants.HeaderOpInsert:
		if h.Get(key) == "" {
			h.Set(key, op.Value)
		}
	case constants.HeaderOpReplace:
		h.Set(key, op.Value)
	case constants.HeaderOpRemove:
		h.Del(key)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOperation, op.Op)
	}
	return nil
}
