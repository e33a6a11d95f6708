package vultr

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

const defaultBaseURL = "https://api.vultr.com/v2"

// DNSProvider Vultr DNS提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

type record struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl,omitempty"`
}

type recordList struct {
	Records []record `json:"records"`
}

type createResponse struct {
	Record record `json:"record"`
}

// NewDNSProvider 创建Vultr DNS提供商
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
	return "vultr"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: API Key
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[Vultr] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	// Vultr要求TXT值带引号
	data := fmt.Sprintf("%q", token)

	// 先检查是否已存在同值记录（幂等）
	existingID, err := p.findRecord(ctx, apiKey, zone, sub, data)
	if err != nil {
		log.Printf("[Vultr] 检查现有记录失败: %v", err)
	}
	if existingID != "" {
		log.Printf("[Vultr] 同值记录已存在，跳过创建")
		return existingID, nil
	}

	body, err := json.Marshal(record{Type: "TXT", Name: sub, Data: data, TTL: p.ttl})
	if err != nil {
		return "", err
	}

	resp, err := p.makeRequest(ctx, apiKey, http.MethodPost, "/domains/"+zone+"/records", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("添加DNS记录失败: 状态码 %d, 响应 %s", resp.StatusCode, string(respBody))
	}

	var result createResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	log.Printf("[Vultr] 记录已添加，ID: %s", result.Record.ID)
	return result.Record.ID, nil
}

// findRecord 查找指定名称和值的TXT记录
func (p *DNSProvider) findRecord(ctx context.Context, apiKey, zone, sub, data string) (string, error) {
	resp, err := p.makeRequest(ctx, apiKey, http.MethodGet, "/domains/"+zone+"/records", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("查询记录失败: 状态码 %d", resp.StatusCode)
	}

	var result recordList
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	for _, r := range result.Records {
		if r.Type == "TXT" && r.Name == sub && r.Data == data {
			return r.ID, nil
		}
	}

	return "", nil
}

func (p *DNSProvider) makeRequest(ctx context.Context, apiKey, method, uri string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+uri, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	return p.client.Do(req)
}
