package core

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"certkeeper/internal/domain"
	"certkeeper/internal/model"
)

// ChallengeOrchestrator 质询编排器
// 驱动单个域名的DNS-01质询走完验证状态机
type ChallengeOrchestrator struct {
	registry *Registry
}

// NewChallengeOrchestrator 创建质询编排器
func NewChallengeOrchestrator(registry *Registry) *ChallengeOrchestrator {
	return &ChallengeOrchestrator{registry: registry}
}

// CreateChallenge 为域名创建一条待验证的质询
func (o *ChallengeOrchestrator) CreateChallenge(dom, userID, orderID string) (*model.Challenge, error) {
	if strings.TrimSpace(dom) == "" {
		return nil, &model.ValidationError{Field: "domain", Reason: "不能为空"}
	}

	return &model.Challenge{
		ID:      uuid.NewString(),
		OrderID: orderID,
		UserID:  userID,
		Domain:  dom,
		Token:   uuid.NewString(),
		Status:  model.StatusPending,
	}, nil
}

// PublishToken 通过绑定的DNS提供商发布质询令牌
// 成功后质询推进到 validating；提供商调用失败或未返回Zone ID时
// 质询保持 pending，返回 ProviderError
func (o *ChallengeOrchestrator) PublishToken(ctx context.Context, ch *model.Challenge, binding *model.DNSProviderBinding) error {
	adapter := o.registry.Resolve(binding)

	// 通配符域名剥离 *. 前缀后再调用DNS API
	target := domain.NormalizeWildcard(ch.Domain)

	zoneID, err := adapter.AddDNSRecord(ctx, target, binding.APIKey, ch.Token, ch.UserID)
	if err != nil {
		return &model.ProviderError{Provider: binding.ProviderType, Err: err}
	}

	if zoneID == "" {
		// 提供商未返回Zone ID视为空串失败，质询停留在 pending
		log.Printf("提供商 %s 未返回Zone ID，域名 %s 的质询保持待处理", binding.ProviderType, ch.Domain)
		return &model.ProviderError{Provider: binding.ProviderType, Response: "空Zone ID"}
	}

	ch.ZoneID = zoneID
	ch.ProviderID = binding.ID
	o.advance(ch, model.StatusDNSRecordCreated)
	// Zone ID非空，直接进入等待验证阶段
	o.advance(ch, model.StatusValidating)
	return nil
}

// MarkValid 将质询标记为验证通过，已处于终态时为幂等空操作
func (o *ChallengeOrchestrator) MarkValid(ch *model.Challenge) {
	if ch.Status.IsTerminal() {
		return
	}
	o.advance(ch, model.StatusValid)
}

// MarkInvalid 将质询标记为验证失败，已处于终态时为幂等空操作
func (o *ChallengeOrchestrator) MarkInvalid(ch *model.Challenge) {
	if ch.Status.IsTerminal() {
		return
	}
	o.advance(ch, model.StatusInvalid)
}

// advance 按状态机推进质询状态，非法迁移直接忽略并记录日志
func (o *ChallengeOrchestrator) advance(ch *model.Challenge, next model.ChallengeStatus) {
	if !ch.Status.CanTransitionTo(next) {
		log.Printf("忽略非法状态迁移: 质询 %s %s -> %s", ch.ID, ch.Status, next)
		return
	}
	ch.Status = next
}
