package client

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shengyanli1982/ratewarden/internal/config"
)

// 通知流量很小，连接池只保留少量空闲连接
const (
	maxIdleConns        = 4
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// newTransport 创建通知请求使用的传输层
// 配置了代理时使用该代理，否则遵循环境变量中的代理设置。
func newTransport(cfg *config.WebhookConfig) (*http.Transport, error) {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if cfg.Proxy != nil && cfg.Proxy.URL != "" {
		proxyURL, err := url.Parse(cfg.Proxy.URL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return transport, nil
}
