package tencent

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

// DNSProvider 腾讯云DNS提供商 (DNSPod)
type DNSProvider struct {
	ttl int
}

// NewDNSProvider 创建腾讯云DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{ttl: provider.TTLOrDefault(ttl)}
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "tencentcloud"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: secretID:secretKey
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 2)

	credential := common.NewCredential(parts[0], parts[1])
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "dnspod.tencentcloudapi.com"

	client, err := dnspod.NewClient(credential, "", cpf)
	if err != nil {
		return "", fmt.Errorf("创建腾讯云DNSPod客户端失败: %w", err)
	}

	fqdn := domain.ChallengeRecordName(dom)
	mainDomain := domain.ExtractMainDomain(dom)
	subDomain := domain.ExtractSubDomain(fqdn, mainDomain)

	log.Printf("[腾讯云DNS] 添加验证记录: %s.%s -> %s (操作者: %s)", subDomain, mainDomain, token, actor)

	// 先检查是否已存在同名记录（幂等：存在则更新为新值）
	existingID, existingValue, err := p.findRecord(client, mainDomain, subDomain)
	if err != nil {
		log.Printf("[腾讯云DNS] 检查现有记录失败: %v", err)
	}

	if existingID != 0 {
		if existingValue == token {
			log.Printf("[腾讯云DNS] 同值记录已存在，跳过创建")
			return strconv.FormatUint(existingID, 10), nil
		}

		modifyRequest := dnspod.NewModifyRecordRequest()
		modifyRequest.Domain = common.StringPtr(mainDomain)
		modifyRequest.RecordId = common.Uint64Ptr(existingID)
		modifyRequest.SubDomain = common.StringPtr(subDomain)
		modifyRequest.RecordType = common.StringPtr("TXT")
		modifyRequest.RecordLine = common.StringPtr("默认")
		modifyRequest.Value = common.StringPtr(token)
		modifyRequest.TTL = common.Uint64Ptr(uint64(p.ttl))

		if _, err := client.ModifyRecord(modifyRequest); err != nil {
			return "", fmt.Errorf("更新DNS记录失败: %w", err)
		}
		log.Printf("[腾讯云DNS] 记录已更新")
		return strconv.FormatUint(existingID, 10), nil
	}

	request := dnspod.NewCreateRecordRequest()
	request.Domain = common.StringPtr(mainDomain)
	request.SubDomain = common.StringPtr(subDomain)
	request.RecordType = common.StringPtr("TXT")
	request.RecordLine = common.StringPtr("默认")
	request.Value = common.StringPtr(token)
	request.TTL = common.Uint64Ptr(uint64(p.ttl))

	response, err := client.CreateRecord(request)
	if err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}

	recordID := ""
	if response.Response != nil && response.Response.RecordId != nil {
		recordID = strconv.FormatUint(*response.Response.RecordId, 10)
	}

	log.Printf("[腾讯云DNS] 记录已添加，ID: %s", recordID)
	return recordID, nil
}

// findRecord 查找指定子域名的TXT记录，返回记录ID和当前值
func (p *DNSProvider) findRecord(client *dnspod.Client, mainDomain, subDomain string) (uint64, string, error) {
	request := dnspod.NewDescribeRecordListRequest()
	request.Domain = common.StringPtr(mainDomain)
	request.Subdomain = common.StringPtr(subDomain)
	request.RecordType = common.StringPtr("TXT")

	response, err := client.DescribeRecordList(request)
	if err != nil {
		return 0, "", fmt.Errorf("查询DNS记录失败: %w", err)
	}

	if response.Response != nil {
		for _, record := range response.Response.RecordList {
			if record.Name != nil && *record.Name == subDomain {
				var value string
				if record.Value != nil {
					value = *record.Value
				}
				return *record.RecordId, value, nil
			}
		}
	}

	return 0, "", nil
}
