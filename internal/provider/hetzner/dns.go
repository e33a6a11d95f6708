package hetzner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://dns.hetzner.com/api/v1"

// DNSProvider Hetzner DNS提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

type zoneList struct {
	Zones []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"zones"`
}

type recordList struct {
	Records []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"records"`
}

type createRecord struct {
	ZoneID string `json:"zone_id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	TTL    int    `json:"ttl"`
}

// NewDNSProvider 创建Hetzner DNS提供商
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
	return "hetzner"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: API Token
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[Hetzner] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	zoneID, err := p.findZoneID(ctx, apiKey, zone)
	if err != nil {
		return "", err
	}

	// 先检查是否已存在同值记录（幂等）
	exists, err := p.recordExists(ctx, apiKey, zoneID, sub, token)
	if err != nil {
		log.Printf("[Hetzner] 检查现有记录失败: %v", err)
	}
	if exists {
		log.Printf("[Hetzner] 同值记录已存在，跳过创建")
		return zoneID, nil
	}

	body, err := json.Marshal(createRecord{
		ZoneID: zoneID,
		Type:   "TXT",
		Name:   sub,
		Value:  token,
		TTL:    p.ttl,
	})
	if err != nil {
		return "", err
	}

	resp, err := p.makeRequest(ctx, apiKey, http.MethodPost, "/records", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("添加DNS记录失败: 状态码 %d, 响应 %s", resp.StatusCode, string(respBody))
	}

	log.Printf("[Hetzner] 记录已添加，Zone: %s", zoneID)
	return zoneID, nil
}

// findZoneID 按域名查找Zone ID
func (p *DNSProvider) findZoneID(ctx context.Context, apiKey, zone string) (string, error) {
	resp, err := p.makeRequest(ctx, apiKey, http.MethodGet, "/zones?name="+url.QueryEscape(zone), nil)
	if err != nil {
		return "", fmt.Errorf("查询Zone失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("查询Zone失败: 状态码 %d", resp.StatusCode)
	}

	var zones zoneList
	if err := json.NewDecoder(resp.Body).Decode(&zones); err != nil {
		return "", fmt.Errorf("解析Zone列表失败: %w", err)
	}

	for _, z := range zones.Zones {
		if z.Name == zone {
			return z.ID, nil
		}
	}

	return "", fmt.Errorf("未找到域名 %s 的Zone", zone)
}

// recordExists 检查同名同值的TXT记录是否已存在
func (p *DNSProvider) recordExists(ctx context.Context, apiKey, zoneID, sub, value string) (bool, error) {
	resp, err := p.makeRequest(ctx, apiKey, http.MethodGet, "/records?zone_id="+url.QueryEscape(zoneID), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("查询记录失败: 状态码 %d", resp.StatusCode)
	}

	var records recordList
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return false, err
	}

	for _, r := range records.Records {
		if r.Type == "TXT" && r.Name == sub && r.Value == value {
			return true, nil
		}
	}

	return false, nil
}

func (p *DNSProvider) makeRequest(ctx context.Context, apiKey, method, uri string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+uri, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Auth-API-Token", apiKey)
	req.Header.Set("Content-Type", "application/json")
	return p.client.Do(req)
}
