package aliyun

import (
	"context"
	"fmt"
	"log"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

// DNSProvider 阿里云DNS提供商
type DNSProvider struct {
	ttl int
}

// NewDNSProvider 创建阿里云DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{ttl: provider.TTLOrDefault(ttl)}
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "aliyun"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: accessKeyID:accessKeySecret[:region]
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 3)

	endpoint := "alidns.cn-hangzhou.aliyuncs.com"
	if parts[2] != "" {
		endpoint = fmt.Sprintf("alidns.%s.aliyuncs.com", parts[2])
	}

	client, err := alidns.NewClient(&openapi.Config{
		AccessKeyId:     tea.String(parts[0]),
		AccessKeySecret: tea.String(parts[1]),
		Endpoint:        tea.String(endpoint),
	})
	if err != nil {
		return "", fmt.Errorf("创建阿里云DNS客户端失败: %w", err)
	}

	fqdn := domain.ChallengeRecordName(dom)
	mainDomain := domain.ExtractMainDomain(dom)
	subDomain := domain.ExtractSubDomain(fqdn, mainDomain)

	log.Printf("[阿里云DNS] 添加验证记录: %s.%s -> %s (操作者: %s)", subDomain, mainDomain, token, actor)

	// 先检查是否已存在同名记录（幂等：存在则更新为新值）
	existing, err := p.findRecord(client, mainDomain, subDomain)
	if err != nil {
		log.Printf("[阿里云DNS] 检查现有记录失败: %v", err)
	}

	if existing != nil {
		if tea.StringValue(existing.Value) == token {
			log.Printf("[阿里云DNS] 同值记录已存在，跳过创建")
			return tea.StringValue(existing.RecordId), nil
		}

		updateRequest := &alidns.UpdateDomainRecordRequest{
			RecordId: existing.RecordId,
			RR:       tea.String(subDomain),
			Type:     tea.String("TXT"),
			Value:    tea.String(token),
			TTL:      tea.Int64(int64(p.ttl)),
		}
		if _, err := client.UpdateDomainRecord(updateRequest); err != nil {
			return "", fmt.Errorf("更新DNS记录失败: %w", err)
		}
		log.Printf("[阿里云DNS] 记录已更新")
		return tea.StringValue(existing.RecordId), nil
	}

	addRequest := &alidns.AddDomainRecordRequest{
		DomainName: tea.String(mainDomain),
		RR:         tea.String(subDomain),
		Type:       tea.String("TXT"),
		Value:      tea.String(token),
		TTL:        tea.Int64(int64(p.ttl)),
	}

	response, err := client.AddDomainRecord(addRequest)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}

	recordID := ""
	if response.Body != nil {
		recordID = tea.StringValue(response.Body.RecordId)
	}

	log.Printf("[阿里云DNS] 记录已添加，ID: %s", recordID)
	return recordID, nil
}

// findRecord 查找指定RR的TXT记录
func (p *DNSProvider) findRecord(client *alidns.Client, mainDomain, subDomain string) (*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord, error) {
	request := &alidns.DescribeDomainRecordsRequest{
		DomainName: tea.String(mainDomain),
		RRKeyWord:  tea.String(subDomain),
		Type:       tea.String("TXT"),
	}

	response, err := client.DescribeDomainRecords(request)
	if err != nil {
		return nil, fmt.Errorf("查询DNS记录失败: %w", err)
	}

	if response.Body != nil && response.Body.DomainRecords != nil {
		for _, record := range response.Body.DomainRecords.Record {
			if tea.StringValue(record.RR) == subDomain && tea.StringValue(record.Type) == "TXT" {
				return record, nil
			}
		}
	}

	return nil, nil
}
