package ratelimit

import (
	"encoding/binary"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// KeyPrefix 计数键前缀
const KeyPrefix = "rate_limit:"

// DefaultKey 生成默认计数键：rate_limit:<path>:<8位十六进制摘要>
// 摘要由客户端地址与客户端签名组合计算，不保存原始签名。
func DefaultKey(req *Request) string {
	return KeyPrefix + req.Path + ":" + hash8(req.ClientAddress+":"+req.Signature)
}

// hash8 返回 xxhash64 摘要的前 8 个十六进制字符
func hash8(s string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64String(s))
	return hex.EncodeToString(buf[:4])
}

// ClientIP 从HTTP请求中获取客户端真实IP地址
func ClientIP(req *http.Request) string {
	// 优先检查X-Forwarded-For头部
	if xff := req.Header.Get(constants.HeaderXForwardedFor); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	// 检查X-Real-IP头部
	if xri := strings.TrimSpace(req.Header.Get(constants.HeaderXRealIP)); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	// 使用RemoteAddr
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return host
}

// parseFirstIP 返回 X-Forwarded-For 中第一个有效的IP地址
func parseFirstIP(xff string) string {
	for _, part := range strings.Split(xff, ",") {
		candidate := strings.TrimSpace(part)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	return ""
}
