package linode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://api.linode.com/v4"

// DNSProvider Linode DNS提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

type domainList struct {
	Data []struct {
		ID     int    `json:"id"`
		Domain string `json:"domain"`
	} `json:"data"`
}

type recordList struct {
	Data []struct {
		ID     int    `json:"id"`
		Type   string `json:"type"`
		Name   string `json:"name"`
		Target string `json:"target"`
	} `json:"data"`
}

type createRecord struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Target string `json:"target"`
	TTLSec int    `json:"ttl_sec"`
}

type createResponse struct {
	ID int `json:"id"`
}

// NewDNSProvider 创建Linode DNS提供商
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
	return "linode"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: Personal Access Token
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[Linode] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	domainID, err := p.findDomainID(ctx, apiKey, zone)
	if err != nil {
		return "", err
	}

	// 先检查是否已存在同值记录（幂等）
	existingID, err := p.findRecord(ctx, apiKey, domainID, sub, token)
	if err != nil {
		log.Printf("[Linode] 检查现有记录失败: %v", err)
	}
	if existingID != 0 {
		log.Printf("[Linode] 同值记录已存在，跳过创建")
		return strconv.Itoa(existingID), nil
	}

	body, err := json.Marshal(createRecord{Type: "TXT", Name: sub, Target: token, TTLSec: p.ttl})
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("/domains/%d/records", domainID)
	resp, err := p.makeRequest(ctx, apiKey, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("添加DNS记录失败: 状态码 %d, 响应 %s", resp.StatusCode, string(respBody))
	}

	var result createResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	log.Printf("[Linode] 记录已添加，ID: %d", result.ID)
	return strconv.Itoa(result.ID), nil
}

// findDomainID 按域名查找Linode域名ID
func (p *DNSProvider) findDomainID(ctx context.Context, apiKey, zone string) (int, error) {
	resp, err := p.makeRequest(ctx, apiKey, http.MethodGet, "/domains", nil)
	if err != nil {
		return 0, fmt.Errorf("查询域名列表失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("查询域名列表失败: 状态码 %d", resp.StatusCode)
	}

	var result domainList
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	for _, d := range result.Data {
		if d.Domain == zone {
			return d.ID, nil
		}
	}

	return 0, fmt.Errorf("未找到域名 %s", zone)
}

// findRecord 查找指定名称和值的TXT记录
func (p *DNSProvider) findRecord(ctx context.Context, apiKey string, domainID int, sub, value string) (int, error) {
	resp, err := p.makeRequest(ctx, apiKey, http.MethodGet, fmt.Sprintf("/domains/%d/records", domainID), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("查询记录失败: 状态码 %d", resp.StatusCode)
	}

	var result recordList
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	for _, r := range result.Data {
		if r.Type == "TXT" && r.Name == sub && r.Target == value {
			return r.ID, nil
		}
	}

	return 0, nil
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
