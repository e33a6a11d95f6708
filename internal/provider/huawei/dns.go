package huawei

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/basic"
	dns "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2"
	dnsModel "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/model"
	dnsRegion "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/region"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

// DNSProvider 华为云DNS提供商
type DNSProvider struct {
	ttl int
}

// NewDNSProvider 创建华为云DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{ttl: provider.TTLOrDefault(ttl)}
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "huawei"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: accessKey:secretKey[:region]
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 3)

	auth := basic.NewCredentialsBuilder().
		WithAk(parts[0]).
		WithSk(parts[1]).
		Build()

	region := parts[2]
	if region == "" {
		region = "cn-north-4"
	}

	regionObj, err := dnsRegion.SafeValueOf(region)
	if err != nil {
		return "", fmt.Errorf("无效的区域: %s", region)
	}

	client := dns.NewDnsClient(
		dns.DnsClientBuilder().
			WithRegion(regionObj).
			WithCredential(auth).
			Build())

	fqdn := domain.ChallengeRecordName(dom)
	mainDomain := domain.ExtractMainDomain(dom)

	log.Printf("[华为云DNS] 添加验证记录: %s -> %s (操作者: %s)", fqdn, token, actor)

	zoneID, err := p.getZoneID(client, mainDomain)
	if err != nil {
		return "", err
	}

	ttl := int32(p.ttl)
	recordName := fqdn + "."
	records := []string{fmt.Sprintf("%q", token)}

	request := &dnsModel.CreateRecordSetRequest{
		ZoneId: zoneID,
		Body: &dnsModel.CreateRecordSetRequestBody{
			Name:    recordName,
			Type:    "TXT",
			Ttl:     &ttl,
			Records: records,
		},
	}

	if _, err := client.CreateRecordSet(request); err != nil {
		// 同名记录集已存在视为幂等成功
		if strings.Contains(err.Error(), "exist") {
			log.Printf("[华为云DNS] 记录集已存在，跳过创建")
			return zoneID, nil
		}
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}

	log.Printf("[华为云DNS] 记录已添加，Zone: %s", zoneID)
	return zoneID, nil
}

// getZoneID 获取域名的Zone ID
func (p *DNSProvider) getZoneID(client *dns.DnsClient, mainDomain string) (string, error) {
	request := &dnsModel.ListPublicZonesRequest{}

	response, err := client.ListPublicZones(request)
	if err != nil {
		return "", fmt.Errorf("获取Zone列表失败: %w", err)
	}

	if response.Zones != nil {
		for _, zone := range *response.Zones {
			if zone.Name != nil {
				zoneName := strings.TrimSuffix(*zone.Name, ".")
				if zoneName == mainDomain && zone.Id != nil {
					return *zone.Id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("未找到域名 %s 的Zone", mainDomain)
}
