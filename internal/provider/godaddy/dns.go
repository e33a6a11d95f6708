package godaddy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://api.godaddy.com"

// DNSProvider GoDaddy DNS提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

// dnsRecord GoDaddy记录结构
type dnsRecord struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl,omitempty"`
}

// NewDNSProvider 创建GoDaddy DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{
		baseURL: defaultBaseURL,
		ttl:     provider.TTLOrDefault(ttl),
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
	return "godaddy"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: apiKey:apiSecret
// PUT 覆盖同名记录，天然幂等
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[GoDaddy] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	body, err := json.Marshal([]dnsRecord{
		{Type: "TXT", Name: sub, Data: token, TTL: p.ttl},
	})
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("/v1/domains/%s/records/TXT/%s", zone, sub)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.baseURL+uri, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "sso-key "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("添加DNS记录失败: 状态码 %d, 响应 %s", resp.StatusCode, string(respBody))
	}

	log.Printf("[GoDaddy] 记录已添加")
	return zone, nil
}
