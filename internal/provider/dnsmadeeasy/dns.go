package dnsmadeeasy

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://api.dnsmadeeasy.com/V2.0"

// DNSProvider DNSMadeEasy提供商
type DNSProvider struct {
	baseURL string
	ttl     int
	client  *http.Client
	now     func() time.Time
}

type managedDomain struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type createRecord struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	TTL         int    `json:"ttl"`
	GtdLocation string `json:"gtdLocation"`
}

type createResponse struct {
	ID int `json:"id"`
}

// NewDNSProvider 创建DNSMadeEasy提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{
		baseURL: defaultBaseURL,
		ttl:     provider.TTLOrDefault(ttl),
		client:  &http.Client{Timeout: provider.DefaultTimeout},
		now:     time.Now,
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
	return "dnsmadeeasy"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: apiKey:secretKey
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 2)

	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[DNSMadeEasy] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	domainID, err := p.findDomainID(ctx, parts[0], parts[1], zone)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(createRecord{
		Type:        "TXT",
		Name:        sub,
		Value:       fmt.Sprintf("%q", token),
		TTL:         p.ttl,
		GtdLocation: "DEFAULT",
	})
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("/dns/managed/%d/records/", domainID)
	resp, err := p.makeRequest(ctx, parts[0], parts[1], http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}
	defer resp.Body.Close()

	// 同名同值记录已存在时API返回400，视为幂等成功
	if resp.StatusCode == http.StatusBadRequest {
		log.Printf("[DNSMadeEasy] 记录可能已存在，视为成功")
		return strconv.Itoa(domainID), nil
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("添加DNS记录失败: 状态码 %d, 响应 %s", resp.StatusCode, string(respBody))
	}

	var result createResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	log.Printf("[DNSMadeEasy] 记录已添加，ID: %d", result.ID)
	return strconv.Itoa(result.ID), nil
}

// findDomainID 按域名查找托管域名ID
func (p *DNSProvider) findDomainID(ctx context.Context, apiKey, secret, zone string) (int, error) {
	uri := "/dns/managed/name?domainname=" + url.QueryEscape(zone)
	resp, err := p.makeRequest(ctx, apiKey, secret, http.MethodGet, uri, nil)
	if err != nil {
		return 0, fmt.Errorf("查询托管域名失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("查询托管域名失败: 状态码 %d", resp.StatusCode)
	}

	var result managedDomain
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	if result.ID == 0 {
		return 0, fmt.Errorf("未找到托管域名 %s", zone)
	}

	return result.ID, nil
}

// makeRequest 发起带HMAC-SHA1签名头的API请求
func (p *DNSProvider) makeRequest(ctx context.Context, apiKey, secret, method, uri string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+uri, body)
	if err != nil {
		return nil, err
	}

	timestamp := p.now().UTC().Format(http.TimeFormat)
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(timestamp))

	req.Header.Set("x-dnsme-apiKey", apiKey)
	req.Header.Set("x-dnsme-requestDate", timestamp)
	req.Header.Set("x-dnsme-hmac", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Content-Type", "application/json")

	return p.client.Do(req)
}
