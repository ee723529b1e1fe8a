package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Route 代表路径前缀到限流器名称的映射
type Route struct {
	Prefix  string `json:"prefix"`
	Profile string `json:"profile"`
}

// Manager 管理按名称注册的限流器，并按最长路径前缀为请求选择限流器
type Manager struct {
	limiters       map[string]*Limiter
	names          []string
	routes         []Route
	defaultProfile string
}

// NewManager 创建限流器管理器
// 路由和默认配置引用的限流器必须已注册。
func NewManager(defaultProfile string, routes []Route, limiters ...*Limiter) (*Manager, error) {
	m := &Manager{
		limiters:       make(map[string]*Limiter, len(limiters)),
		defaultProfile: defaultProfile,
	}
	for _, l := range limiters {
		if _, exists := m.limiters[l.Name()]; exists {
			return nil, fmt.Errorf("duplicate limiter '%s'", l.Name())
		}
		m.limiters[l.Name()] = l
		m.names = append(m.names, l.Name())
	}

	for _, r := range routes {
		if _, ok := m.limiters[r.Profile]; !ok {
			return nil, fmt.Errorf("route '%s': %w '%s'", r.Prefix, ErrUnknownProfile, r.Profile)
		}
	}
	if _, ok := m.limiters[defaultProfile]; !ok {
		return nil, fmt.Errorf("default: %w '%s'", ErrUnknownProfile, defaultProfile)
	}

	// 前缀越长越优先
	m.routes = append([]Route(nil), routes...)
	sort.SliceStable(m.routes, func(i, j int) bool {
		return len(m.routes[i].Prefix) > len(m.routes[j].Prefix)
	})

	return m, nil
}

// Limiter 按名称查找限流器
func (m *Manager) Limiter(name string) (*Limiter, bool) {
	l, ok := m.limiters[name]
	return l, ok
}

// Resolve 返回路径匹配的限流器，未匹配时返回默认限流器
func (m *Manager) Resolve(path string) *Limiter {
	for _, r := range m.routes {
		if strings.HasPrefix(path, r.Prefix) {
			return m.limiters[r.Profile]
		}
	}
	return m.limiters[m.defaultProfile]
}

// Check 按路径选择限流器并判定
func (m *Manager) Check(ctx context.Context, req *Request) Decision {
	return m.Resolve(req.Path).Check(ctx, req)
}

// CheckProfile 使用指定限流器判定，profile 为空时按路径选择
func (m *Manager) CheckProfile(ctx context.Context, profile string, req *Request) (Decision, error) {
	if profile == "" {
		return m.Check(ctx, req), nil
	}
	l, ok := m.limiters[profile]
	if !ok {
		return Decision{}, fmt.Errorf("%w '%s'", ErrUnknownProfile, profile)
	}
	return l.Check(ctx, req), nil
}

// Profiles 按注册顺序返回所有限流器描述
func (m *Manager) Profiles() []ProfileInfo {
	infos := make([]ProfileInfo, 0, len(m.names))
	for _, name := range m.names {
		infos = append(infos, m.limiters[name].Info())
	}
	return infos
}

// Routes 返回按匹配优先级排序的路由
func (m *Manager) Routes() []Route {
	return append([]Route(nil), m.routes...)
}

func (m *Manager) DefaultProfile() string {
	return m.defaultProfile
}
