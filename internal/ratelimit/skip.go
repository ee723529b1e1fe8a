package ratelimit

import (
	"fmt"
	"net/netip"
	"strings"
)

// NewSkipRule 根据客户端地址（IP 或 CIDR）与路径前缀构建免限流判断
// 两个列表都为空时返回 nil。
func NewSkipRule(addresses, paths []string) (SkipFunc, error) {
	if len(addresses) == 0 && len(paths) == 0 {
		return nil, nil
	}

	prefixes := make([]netip.Prefix, 0, len(addresses))
	for _, raw := range addresses {
		if addr, err := netip.ParseAddr(raw); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid skip address '%s': %w", raw, err)
		}
		// 客户端地址按 IPv4 比较，IPv4 映射形式的网段需同样还原
		if prefix.Addr().Is4In6() && prefix.Bits() >= 96 {
			prefix = netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits()-96)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	pathPrefixes := append([]string(nil), paths...)

	return func(req *Request) bool {
		for _, p := range pathPrefixes {
			if strings.HasPrefix(req.Path, p) {
				return true
			}
		}
		if len(prefixes) == 0 {
			return false
		}
		addr, err := netip.ParseAddr(req.ClientAddress)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, prefix := range prefixes {
			if prefix.Contains(addr) {
				return true
			}
		}
		return false
	}, nil
}
