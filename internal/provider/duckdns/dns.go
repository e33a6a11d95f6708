package duckdns

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://www.duckdns.org"

// DNSProvider DuckDNS提供商
// DuckDNS只支持 <name>.duckdns.org 子域名，整个域名共用一条TXT记录
type DNSProvider struct {
	baseURL string
	client  *http.Client
}

// NewDNSProvider 创建DuckDNS提供商
// DuckDNS API不支持自定义TTL
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: provider.DefaultTimeout},
	}
}

// NewDNSProviderWithBaseURL 创建指定API地址的提供商（测试用）
func NewDNSProviderWithBaseURL(baseURL string, ttl int) *DNSProvider {
	p := NewDNSProvider(ttl)
	p.baseURL = baseURL
	return p
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "duckdns"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: API Token
// 重复调用覆盖同一条TXT记录，天然幂等
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	base := domain.NormalizeWildcard(dom)
	name := subName(base)

	log.Printf("[DuckDNS] 更新TXT记录: %s -> %s (操作者: %s)", base, token, actor)

	params := url.Values{}
	params.Set("domains", name)
	params.Set("token", apiKey)
	params.Set("txt", token)
	params.Set("verbose", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/update?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("更新TXT记录失败: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "OK") {
		return "", fmt.Errorf("更新TXT记录失败: 响应 %s", strings.TrimSpace(string(body)))
	}

	// DuckDNS无Zone概念，用子域名名称作为标识返回
	log.Printf("[DuckDNS] 记录已更新")
	return name, nil
}

// subName 提取 <name>.duckdns.org 中的name部分
func subName(base string) string {
	name := strings.TrimSuffix(base, ".duckdns.org")
	if idx := strings.LastIndex(name, "."); idx != -1 {
		name = name[idx+1:]
	}
	return name
}
