package provider

import "strings"

// Type 提供商类型标签（闭合枚举，扩展方式：新增适配器+标签）
type Type string

const (
	TypeUnknown      Type = ""
	TypeCloudflare   Type = "cloudflare"
	TypeDigitalOcean Type = "digitalocean"
	TypeAWSRoute53   Type = "awsroute53"
	TypeHetzner      Type = "hetzner"
	TypeNamecheap    Type = "namecheap"
	TypeGoDaddy      Type = "godaddy"
	TypeDNSMadeEasy  Type = "dnsmadeeasy"
	TypePorkbun      Type = "porkbun"
	TypeGandi        Type = "gandi"
	TypeClouDNS      Type = "cloudnsnet"
	TypeDreamHost    Type = "dreamhost"
	TypeVultr        Type = "vultr"
	TypeLinode       Type = "linode"
	TypeDuckDNS      Type = "duckdns"
	TypeAliyun       Type = "aliyun"
	TypeTencentCloud Type = "tencentcloud"
	TypeHuawei       Type = "huawei"
)

// AllTypes 全部受支持的提供商类型
var AllTypes = []Type{
	TypeCloudflare, TypeDigitalOcean, TypeAWSRoute53, TypeHetzner,
	TypeNamecheap, TypeGoDaddy, TypeDNSMadeEasy, TypePorkbun,
	TypeGandi, TypeClouDNS, TypeDreamHost, TypeVultr,
	TypeLinode, TypeDuckDNS, TypeAliyun, TypeTencentCloud, TypeHuawei,
}

// ParseType 解析提供商类型标签，无法识别时返回 TypeUnknown
// 未知标签不报错，由调用方解析为no-op适配器
func ParseType(tag string) Type {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	// 兼容常见别名写法
	switch normalized {
	case "aws", "route53", "awsroute53":
		return TypeAWSRoute53
	case "cloudns", "cloudnsnet", "cloudns.net":
		return TypeClouDNS
	case "tencent", "tencentcloud", "dnspod":
		return TypeTencentCloud
	}

	for _, t := range AllTypes {
		if normalized == string(t) {
			return t
		}
	}
	return TypeUnknown
}
