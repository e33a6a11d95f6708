package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certkeeper/internal/model"
	"certkeeper/internal/provider"
)

func TestRegistryResolvesAllKnownTags(t *testing.T) {
	r := NewRegistry()

	for _, typ := range provider.AllTypes {
		binding := &model.DNSProviderBinding{
			ID:           "b-" + string(typ),
			ProviderType: string(typ),
			APIKey:       "k",
		}
		p := r.Resolve(binding)
		require.NotNil(t, p, "类型 %s 未解析出适配器", typ)
		assert.NotEmpty(t, p.Name())
		// 已知标签不允许落到no-op
		_, isNoop := p.(*provider.NoopProvider)
		assert.False(t, isNoop, "类型 %s 解析成了no-op", typ)
	}
}

func TestRegistryUnknownTagIsNoop(t *testing.T) {
	r := NewRegistry()
	binding := &model.DNSProviderBinding{ID: "b-1", ProviderType: "made-up-dns", APIKey: "k"}

	p := r.Resolve(binding)
	noop, ok := p.(*provider.NoopProvider)
	require.True(t, ok)
	assert.Equal(t, "made-up-dns", noop.Tag)

	// no-op静默返回空Zone ID，不报错
	zoneID, err := p.AddDNSRecord(context.Background(), "example.com", "k", "token", "u-1")
	require.NoError(t, err)
	assert.Empty(t, zoneID)
}

func TestRegistryCachesPerBinding(t *testing.T) {
	r := NewRegistry()
	b1 := &model.DNSProviderBinding{ID: "b-1", ProviderType: "cloudflare", APIKey: "k"}
	b2 := &model.DNSProviderBinding{ID: "b-2", ProviderType: "cloudflare", APIKey: "k2"}

	// 同一绑定复用同一实例
	assert.Same(t, r.Resolve(b1), r.Resolve(b1))
	// 不同绑定（TTL可能不同）各自有实例
	assert.NotSame(t, r.Resolve(b1), r.Resolve(b2))
}

func TestParseTypeAliases(t *testing.T) {
	assert.Equal(t, provider.TypeAWSRoute53, provider.ParseType("aws"))
	assert.Equal(t, provider.TypeAWSRoute53, provider.ParseType("route53"))
	assert.Equal(t, provider.TypeClouDNS, provider.ParseType("cloudns"))
	assert.Equal(t, provider.TypeTencentCloud, provider.ParseType("dnspod"))
	assert.Equal(t, provider.TypeCloudflare, provider.ParseType("CloudFlare"))
	assert.Equal(t, provider.TypeUnknown, provider.ParseType("nope"))
}
