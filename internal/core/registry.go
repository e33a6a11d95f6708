package core

import (
	"sync"

	"certkeeper/internal/model"
	"certkeeper/internal/provider"
	"certkeeper/internal/provider/aliyun"
	"certkeeper/internal/provider/cloudflare"
	"certkeeper/internal/provider/cloudns"
	"certkeeper/internal/provider/digitalocean"
	"certkeeper/internal/provider/dnsmadeeasy"
	"certkeeper/internal/provider/dreamhost"
	"certkeeper/internal/provider/duckdns"
	"certkeeper/internal/provider/gandi"
	"certkeeper/internal/provider/godaddy"
	"certkeeper/internal/provider/hetzner"
	"certkeeper/internal/provider/huawei"
	"certkeeper/internal/provider/linode"
	"certkeeper/internal/provider/namecheap"
	"certkeeper/internal/provider/porkbun"
	"certkeeper/internal/provider/route53"
	"certkeeper/internal/provider/tencent"
	"certkeeper/internal/provider/vultr"
)

// Registry 提供商注册表
// 将绑定的提供商标签解析为具体适配器，新增提供商只需新增适配器和枚举项
type Registry struct {
	mu sync.Mutex

	// 缓存已创建的适配器实例，按绑定ID区分（TTL可能不同）
	cache map[string]provider.DNSProvider
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[string]provider.DNSProvider),
	}
}

// Resolve 根据绑定解析DNS提供商适配器
// 无法识别的标签解析为no-op适配器（静默失败，不会崩溃）
func (r *Registry) Resolve(binding *model.DNSProviderBinding) provider.DNSProvider {
	r.mu.Lock()
	defer r.mu.Unlock()

	cacheKey := binding.ID + "/" + binding.ProviderType
	if p, ok := r.cache[cacheKey]; ok {
		return p
	}

	p := newAdapter(provider.ParseType(binding.ProviderType), binding)
	r.cache[cacheKey] = p
	return p
}

// newAdapter 创建指定类型的适配器实例
func newAdapter(t provider.Type, binding *model.DNSProviderBinding) provider.DNSProvider {
	switch t {
	case provider.TypeCloudflare:
		return cloudflare.NewDNSProvider(binding.TTL)
	case provider.TypeDigitalOcean:
		return digitalocean.NewDNSProvider(binding.TTL)
	case provider.TypeAWSRoute53:
		return route53.NewDNSProvider(binding.TTL)
	case provider.TypeHetzner:
		return hetzner.NewDNSProvider(binding.TTL)
	case provider.TypeNamecheap:
		return namecheap.NewDNSProvider(binding.TTL)
	case provider.TypeGoDaddy:
		return godaddy.NewDNSProvider(binding.TTL)
	case provider.TypeDNSMadeEasy:
		return dnsmadeeasy.NewDNSProvider(binding.TTL)
	case provider.TypePorkbun:
		return porkbun.NewDNSProvider(binding.TTL)
	case provider.TypeGandi:
		return gandi.NewDNSProvider(binding.TTL)
	case provider.TypeClouDNS:
		return cloudns.NewDNSProvider(binding.TTL)
	case provider.TypeDreamHost:
		return dreamhost.NewDNSProvider(binding.TTL)
	case provider.TypeVultr:
		return vultr.NewDNSProvider(binding.TTL)
	case provider.TypeLinode:
		return linode.NewDNSProvider(binding.TTL)
	case provider.TypeDuckDNS:
		return duckdns.NewDNSProvider(binding.TTL)
	case provider.TypeAliyun:
		return aliyun.NewDNSProvider(binding.TTL)
	case provider.TypeTencentCloud:
		return tencent.NewDNSProvider(binding.TTL)
	case provider.TypeHuawei:
		return huawei.NewDNSProvider(binding.TTL)
	default:
		return &provider.NoopProvider{Tag: binding.ProviderType}
	}
}
