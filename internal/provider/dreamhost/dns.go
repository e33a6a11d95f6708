package dreamhost

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://api.dreamhost.com"

// DNSProvider DreamHost DNS提供商
type DNSProvider struct {
	baseURL string
	client  *http.Client
}

type apiResponse struct {
	Result string `json:"result"`
	Data   string `json:"data"`
}

// NewDNSProvider 创建DreamHost DNS提供商
// DreamHost API不支持自定义TTL
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
	return "dreamhost"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: API Key
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	fqdn := domain.ChallengeRecordName(dom)

	log.Printf("[DreamHost] 添加验证记录: %s -> %s (操作者: %s)", fqdn, token, actor)

	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("cmd", "dns-add_record")
	params.Set("record", fqdn)
	params.Set("type", "TXT")
	params.Set("value", token)
	params.Set("comment", "certkeeper DNS-01")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if result.Result != "success" {
		// 同值记录已存在视为幂等成功
		if result.Data == "record_already_exists_not_editable" || result.Data == "record_already_exists_remove_first" {
			log.Printf("[DreamHost] 同值记录已存在，跳过创建")
			return fqdn, nil
		}
		return "", fmt.Errorf("添加DNS记录失败: %s", result.Data)
	}

	// DreamHost API无记录ID，用记录域名作为标识返回
	log.Printf("[DreamHost] 记录已添加")
	return fqdn, nil
}
