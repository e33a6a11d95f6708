package cloudflare

import (
	"context"
	"fmt"
	"log"
	"strings"

	cloudflare "github.com/cloudflare/cloudflare-go"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

// DNSProvider Cloudflare DNS提供商
type DNSProvider struct {
	ttl int
}

// NewDNSProvider 创建Cloudflare DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{ttl: provider.TTLOrDefault(ttl)}
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "cloudflare"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: API Token，或 email:globalAPIKey
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	api, err := newClient(apiKey)
	if err != nil {
		return "", fmt.Errorf("创建Cloudflare客户端失败: %w", err)
	}

	fqdn := domain.ChallengeRecordName(dom)
	mainDomain := domain.ExtractMainDomain(dom)

	log.Printf("[Cloudflare] 添加验证记录: %s -> %s (操作者: %s)", fqdn, token, actor)

	zoneID, err := api.ZoneIDByName(mainDomain)
	if err != nil {
		return "", fmt.Errorf("查询Zone失败: %w", err)
	}

	// 先检查是否已存在同值记录（幂等）
	existing, err := api.DNSRecords(ctx, zoneID, cloudflare.DNSRecord{
		Type: "TXT",
		Name: fqdn,
	})
	if err != nil {
		log.Printf("[Cloudflare] 检查现有记录失败: %v", err)
	}
	for _, record := range existing {
		if record.Content == token {
			log.Printf("[Cloudflare] 同值记录已存在，跳过创建")
			return zoneID, nil
		}
	}

	proxied := false
	_, err = api.CreateDNSRecord(ctx, zoneID, cloudflare.DNSRecord{
		Type:    "TXT",
		Name:    fqdn,
		Content: token,
		TTL:     p.ttl,
		Proxied: &proxied,
	})
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}

	log.Printf("[Cloudflare] 记录已添加，Zone: %s", zoneID)
	return zoneID, nil
}

// newClient 根据凭证格式创建客户端
func newClient(apiKey string) (*cloudflare.API, error) {
	if strings.Contains(apiKey, ":") {
		parts := provider.SplitCredential(apiKey, 2)
		return cloudflare.New(parts[1], parts[0])
	}
	return cloudflare.NewWithAPIToken(apiKey)
}
