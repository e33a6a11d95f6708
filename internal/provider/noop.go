package provider

import (
	"context"
	"log"
)

// NoopProvider 未知提供商标签的占位适配器
// 始终返回空Zone ID，表现为静默失败而非崩溃
type NoopProvider struct {
	Tag string // 原始的无法识别的标签
}

// Name 返回提供商名称
func (p *NoopProvider) Name() string {
	return "noop"
}

// AddDNSRecord 不执行任何操作，返回空Zone ID
func (p *NoopProvider) AddDNSRecord(ctx context.Context, domain, apiKey, token, actor string) (string, error) {
	log.Printf("[noop] 未知的提供商标签 %q，跳过域名 %s 的DNS记录发布", p.Tag, domain)
	return "", nil
}
