package digitalocean

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

// DNSProvider DigitalOcean DNS提供商
type DNSProvider struct {
	ttl int
}

// NewDNSProvider 创建DigitalOcean DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{ttl: provider.TTLOrDefault(ttl)}
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "digitalocean"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: Personal Access Token
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	client := godo.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiKey},
	)))

	fqdn := domain.ChallengeRecordName(dom)
	zone := strings.TrimSuffix(domain.FindZoneByFqdn(fqdn), ".")
	sub := domain.ExtractSubDomain(fqdn, zone)

	log.Printf("[DigitalOcean] 添加验证记录: %s.%s -> %s (操作者: %s)", sub, zone, token, actor)

	// 先检查是否已存在同值记录（幂等）
	records, _, err := client.Domains.RecordsByTypeAndName(ctx, zone, "TXT", fqdn, &godo.ListOptions{})
	if err != nil {
		log.Printf("[DigitalOcean] 检查现有记录失败: %v", err)
	}
	for _, record := range records {
		if record.Data == token {
			log.Printf("[DigitalOcean] 同值记录已存在，跳过创建")
			return strconv.Itoa(record.ID), nil
		}
	}

	created, _, err := client.Domains.CreateRecord(ctx, zone, &godo.DomainRecordEditRequest{
		Type: "TXT",
		Name: sub,
		Data: token,
		TTL:  p.ttl,
	})
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}

	log.Printf("[DigitalOcean] 记录已添加，ID: %d", created.ID)
	return strconv.Itoa(created.ID), nil
}
