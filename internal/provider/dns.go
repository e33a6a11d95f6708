package provider

import (
	"context"
	"strings"
	"time"
)

// DefaultTimeout 提供商API调用的默认超时时间
const DefaultTimeout = 30 * time.Second

// DefaultTTL 创建验证记录的默认TTL（秒）
const DefaultTTL = 600

// DNSProvider DNS提供商接口，每个受支持的DNS服务商实现一次
type DNSProvider interface {
	// Name 返回提供商名称
	Name() string

	// AddDNSRecord 在域名下发布DNS-01验证TXT记录
	// domain: 待验证域名（通配符前缀已剥离）
	// apiKey: 凭证，多段凭证用冒号拼接（如 key:secret）
	// token: 质询令牌，发布在 _acme-challenge.<domain> 下
	// actor: 操作者标识，用于审计日志
	// 返回提供商分配的Zone/记录ID，空字符串表示失败
	// 对同一令牌的重复调用必须幂等，已存在同值记录不视为错误
	AddDNSRecord(ctx context.Context, domain, apiKey, token, actor string) (string, error)
}

// SplitCredential 拆分冒号拼接的多段凭证
// 段数不足时用空字符串补齐
func SplitCredential(apiKey string, n int) []string {
	parts := strings.SplitN(apiKey, ":", n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	return parts
}

// TTLOrDefault 返回绑定配置的TTL，未配置时使用默认值
func TTLOrDefault(ttl int) int {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
