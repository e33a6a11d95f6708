package namecheap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultBaseURL = "https://api.namecheap.com/xml.response"

// DNSProvider Namecheap DNS提供商
// Namecheap的setHosts是全量覆盖接口，必须先读取全部记录再回写
type DNSProvider struct {
	baseURL  string
	ttl      int
	clientIP string
	client   *http.Client
}

type host struct {
	Name    string `xml:"Name,attr"`
	Type    string `xml:"Type,attr"`
	Address string `xml:"Address,attr"`
	TTL     string `xml:"TTL,attr"`
}

type apiResponse struct {
	Status string `xml:"Status,attr"`
	Errors struct {
		Error []string `xml:"Error"`
	} `xml:"Errors"`
	CommandResponse struct {
		Hosts []host `xml:"DomainDNSGetHostsResult>host"`
	} `xml:"CommandResponse"`
}

// NewDNSProvider 创建Namecheap DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{
		baseURL:  defaultBaseURL,
		ttl:      provider.TTLOrDefault(ttl),
		clientIP: "127.0.0.1",
		client:   &http.Client{Timeout: provider.DefaultTimeout},
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
	return "namecheap"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: apiUser:apiKey
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 2)

	fqdn := domain.ChallengeRecordName(dom)
	zone := domain.ExtractMainDomain(dom)
	sub := domain.ExtractSubDomain(fqdn, zone)

	sld, tld, err := splitZone(zone)
	if err != nil {
		return "", err
	}

	log.Printf("[Namecheap] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	hosts, err := p.getHosts(ctx, parts[0], parts[1], sld, tld)
	if err != nil {
		return "", err
	}

	// 覆盖同名TXT记录（幂等），其余记录保持不变
	updated := make([]host, 0, len(hosts)+1)
	for _, h := range hosts {
		if h.Type == "TXT" && h.Name == sub {
			if h.Address == token {
				log.Printf("[Namecheap] 同值记录已存在，跳过创建")
				return zone, nil
			}
			continue
		}
		updated = append(updated, h)
	}
	updated = append(updated, host{
		Name:    sub,
		Type:    "TXT",
		Address: token,
		TTL:     strconv.Itoa(p.ttl),
	})

	if err := p.setHosts(ctx, parts[0], parts[1], sld, tld, updated); err != nil {
		return "", err
	}

	log.Printf("[Namecheap] 记录已添加")
	return zone, nil
}

// getHosts 读取域名下的全部DNS记录
func (p *DNSProvider) getHosts(ctx context.Context, apiUser, apiKey, sld, tld string) ([]host, error) {
	params := p.baseParams(apiUser, apiKey, sld, tld)
	params.Set("Command", "namecheap.domains.dns.getHosts")

	result, err := p.call(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("读取DNS记录失败: %w", err)
	}

	return result.CommandResponse.Hosts, nil
}

// setHosts 全量回写域名下的DNS记录
func (p *DNSProvider) setHosts(ctx context.Context, apiUser, apiKey, sld, tld string, hosts []host) error {
	params := p.baseParams(apiUser, apiKey, sld, tld)
	params.Set("Command", "namecheap.domains.dns.setHosts")

	for i, h := range hosts {
		n := strconv.Itoa(i + 1)
		params.Set("HostName"+n, h.Name)
		params.Set("RecordType"+n, h.Type)
		params.Set("Address"+n, h.Address)
		params.Set("TTL"+n, h.TTL)
	}

	if _, err := p.call(ctx, params); err != nil {
		return fmt.Errorf("回写DNS记录失败: %w", err)
	}
	return nil
}

func (p *DNSProvider) baseParams(apiUser, apiKey, sld, tld string) url.Values {
	params := url.Values{}
	params.Set("ApiUser", apiUser)
	params.Set("ApiKey", apiKey)
	params.Set("UserName", apiUser)
	params.Set("ClientIp", p.clientIP)
	params.Set("SLD", sld)
	params.Set("TLD", tld)
	return params
}

func (p *DNSProvider) call(ctx context.Context, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result apiResponse
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析XML响应失败: %w", err)
	}

	if result.Status != "OK" {
		return nil, fmt.Errorf("API返回错误: %s", strings.Join(result.Errors.Error, "; "))
	}

	return &result, nil
}

// splitZone 拆分主域名为SLD和TLD
func splitZone(zone string) (string, string, error) {
	idx := strings.Index(zone, ".")
	if idx <= 0 {
		return "", "", fmt.Errorf("无效的域名: %s", zone)
	}
	return zone[:idx], zone[idx+1:], nil
}
