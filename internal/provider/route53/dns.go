package route53

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/route53"

	"certkeeper/internal/domain"
	"certkeeper/internal/provider"
)

const defaultRegion = "us-east-1"

// DNSProvider AWS Route53 DNS提供商
type DNSProvider struct {
	ttl int
}

// NewDNSProvider 创建Route53 DNS提供商
func NewDNSProvider(ttl int) *DNSProvider {
	return &DNSProvider{ttl: provider.TTLOrDefault(ttl)}
}

// Name 返回提供商名称
func (p *DNSProvider) Name() string {
	return "awsroute53"
}

// AddDNSRecord 发布DNS-01验证TXT记录
// 凭证格式: accessKeyID:secretAccessKey[:region]
func (p *DNSProvider) AddDNSRecord(ctx context.Context, dom, apiKey, token, actor string) (string, error) {
	parts := provider.SplitCredential(apiKey, 3)
	region := parts[2]
	if region == "" {
		region = defaultRegion
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(parts[0], parts[1], ""),
	})
	if err != nil {
		return "", fmt.Errorf("创建AWS会话失败: %w", err)
	}
	client := route53.New(sess)

	fqdn := domain.ChallengeRecordName(dom)
	mainDomain := domain.ExtractMainDomain(dom)

	log.Printf("[Route53] 添加验证记录: %s -> %s (操作者: %s)", fqdn, token, actor)

	zoneID, err := p.findHostedZone(ctx, client, mainDomain)
	if err != nil {
		return "", err
	}

	// UPSERT 本身幂等，同名记录直接覆盖为新值
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &route53.ChangeBatch{
			Comment: aws.String("certkeeper DNS-01 验证记录"),
			Changes: []*route53.Change{
				{
					Action: aws.String(route53.ChangeActionUpsert),
					ResourceRecordSet: &route53.ResourceRecordSet{
						Name: aws.String(fqdn),
						Type: aws.String(route53.RRTypeTxt),
						TTL:  aws.Int64(int64(p.ttl)),
						ResourceRecords: []*route53.ResourceRecord{
							{Value: aws.String(fmt.Sprintf("%q", token))},
						},
					},
				},
			},
		},
	}

	if _, err := client.ChangeResourceRecordSetsWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("添加DNS记录失败: %w", err)
	}

	log.Printf("[Route53] 记录已添加，Zone: %s", zoneID)
	return zoneID, nil
}

// findHostedZone 按域名查找托管Zone的ID
func (p *DNSProvider) findHostedZone(ctx context.Context, client *route53.Route53, mainDomain string) (string, error) {
	output, err := client.ListHostedZonesByNameWithContext(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(mainDomain),
	})
	if err != nil {
		return "", fmt.Errorf("查询托管Zone失败: %w", err)
	}

	for _, zone := range output.HostedZones {
		if strings.TrimSuffix(aws.StringValue(zone.Name), ".") == mainDomain {
			return strings.TrimPrefix(aws.StringValue(zone.Id), "/hostedzone/"), nil
		}
	}

	return "", fmt.Errorf("未找到域名 %s 的托管Zone", mainDomain)
}
