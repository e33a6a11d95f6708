package gandi

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

const defaultBaseURL = "https://api.gandi.net/v5/livedns"

// DNSProvider Gandi LiveDNS提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

type rrset struct {
	TTL    int      `json:"rrset_ttl"`
	Values []string `json:"rrset_values"`
}

// NewDNSProvider 创建Gandi DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	ttl = provider.TTLOrDefault(ttl)
	// LiveDNS要求TTL不低于300秒
	if ttl < 300 {
		ttl = 300
	}
	return &DNSProvider{
		baseURL: defaultBaseURL,
		ttl:     ttl,
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
	return "gandi"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: API Key
// PUT 覆盖同名记录集，天然幂等
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[Gandi] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	body, err := json.Marshal(rrset{TTL: p.ttl, Values: []string{token}})
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("/domains/%s/records/%s/TXT", zone, sub)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.baseURL+uri, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Apikey "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("添加DNS记录失败: 状态码 %d, 响应 %s", resp.StatusCode, string(respBody))
	}

	log.Printf("[Gandi] 记录已添加")
	return zone, nil
}
