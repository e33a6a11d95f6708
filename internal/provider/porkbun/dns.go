package porkbun

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

const defaultBaseURL = "https://api.porkbun.com/api/json/v3"

// DNSProvider Porkbun DNS提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
}

type createRequest struct {
	APIKey       string `json:"apikey"`
	SecretAPIKey string `json:"secretapikey"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	TTL          string `json:"ttl"`
}

type createResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

type retrieveRequest struct {
	APIKey       string `json:"apikey"`
	SecretAPIKey string `json:"secretapikey"`
}

type retrieveResponse struct {
	Status  string `json:"status"`
	Records []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	} `json:"records"`
}

// NewDNSProvider 创建Porkbun DNS提供商
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
	return "porkbun"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: apiKey:secretAPIKey
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 2)

	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[Porkbun] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	// 先检查是否已存在同值记录（幂等）
	existingID, err := p.findRecord(ctx, parts[0], parts[1], zone, sub, token)
	if err != nil {
		log.Printf("[Porkbun] 检查现有记录失败: %v", err)
	}
	if existingID != "" {
		log.Printf("[Porkbun] 同值记录已存在，跳过创建")
		return existingID, nil
	}

	body, err := json.Marshal(createRequest{
		APIKey:       parts[0],
		SecretAPIKey: parts[1],
		Type:         "TXT",
		Name:         sub,
		Content:      token,
		TTL:          strconv.Itoa(p.ttl),
	})
	if err != nil {
		return "", err
	}

	resp, err := p.post(ctx, "/dns/create/"+zone, body)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var result createResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if result.Status != "SUCCESS" {
		return "", fmt.Errorf("添加DNS记录失败: 响应 %s", string(respBody))
	}

	log.Printf("[Porkbun] 记录已添加，ID: %d", result.ID)
	return strconv.FormatInt(result.ID, 10), nil
}

// findRecord 查找指定名称和值的TXT记录
func (p *DNSProvider) findRecord(ctx context.Context, key, secret, zone, sub, value string) (string, error) {
	body, err := json.Marshal(retrieveRequest{APIKey: key, SecretAPIKey: secret})
	if err != nil {
		return "", err
	}

	resp, err := p.post(ctx, fmt.Sprintf("/dns/retrieveByNameType/%s/TXT/%s", zone, sub), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if result.Status != "SUCCESS" {
		return "", nil
	}

	for _, record := range result.Records {
		if record.Content == value {
			return record.ID, nil
		}
	}

	return "", nil
}

func (p *DNSProvider) post(ctx context.Context, uri string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.client.Do(req)
}
