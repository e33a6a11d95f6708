package cloudns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://api.cloudns.net"

// DNSProvider ClouDNS.net提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

type addResponse struct {
	Status            string `json:"status"`
	StatusDescription string `json:"statusDescription"`
	Data              struct {
		ID int `json:"id"`
	} `json:"data"`
}

// NewDNSProvider 创建ClouDNS提供商
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
	return "cloudnsnet"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: authID:authPassword
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 2)

	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[ClouDNS] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	params := url.Values{}
	params.Set("auth-id", parts[0])
	params.Set("auth-password", parts[1])
	params.Set("domain-name", zone)
	params.Set("record-type", "TXT")
	params.Set("host", sub)
	params.Set("record", token)
	params.Set("ttl", strconv.Itoa(p.ttl))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/dns/add-record.json?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result addResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if result.Status != "Success" {
		return "", fmt.Errorf("添加DNS记录失败: %s", result.StatusDescription)
	}

	log.Printf("[ClouDNS] 记录已添加，ID: %d", result.Data.ID)
	return strconv.Itoa(result.Data.ID), nil
}
