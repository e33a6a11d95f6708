package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"certkeeper/internal/domain"
	"certkeeper/internal/model"
	"certkeeper/internal/storage"
)

// BindingResolver 按用户和提供商绑定ID解析DNS凭证绑定
type BindingResolver func(userID, providerID string) (*model.DNSProviderBinding, error)

// ConfirmFunc 外部验证机构的确认回调
// 返回nil表示令牌已对外可见，质询可标记为验证通过
type ConfirmFunc func(ctx context.Context, ch *model.Challenge) error

// DefaultConfirm 默认确认实现：查询公共DNS检查TXT记录是否已传播
func DefaultConfirm(ctx context.Context, ch *model.Challenge) error {
	fqdn := domain.ChallengeRecordName(ch.Domain)

	deadline := time.Now().Add(2 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		found, err := domain.CheckTXTRecord(fqdn, ch.Token)
		if err != nil {
			log.Printf("检查TXT传播失败: %v", err)
		}
		if found {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("等待TXT记录传播超时: %s", fqdn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

// RenewalExecutor 续期执行器
// 对到期记录重跑全部域名的质询流程，成功后替换质询列表并推进过期时间
type RenewalExecutor struct {
	store        storage.RecordStore
	orchestrator *ChallengeOrchestrator
	bindings     BindingResolver
	confirm      ConfirmFunc
	validity     time.Duration // 新证书有效期
	now          func() time.Time

	// 同一订单同一时刻至多一个续期在执行，并发请求合并为一次
	group singleflight.Group
}

// NewRenewalExecutor 创建续期执行器
func NewRenewalExecutor(store storage.RecordStore, orchestrator *ChallengeOrchestrator, bindings BindingResolver, confirm ConfirmFunc, validity time.Duration) *RenewalExecutor {
	if confirm == nil {
		confirm = DefaultConfirm
	}
	return &RenewalExecutor{
		store:        store,
		orchestrator: orchestrator,
		bindings:     bindings,
		confirm:      confirm,
		validity:     validity,
		now:          time.Now,
	}
}

// Renew 续期一条证书记录
// 成功: successfulRenewals+1，过期时间推进一个有效期，质询列表整体替换
// 失败: 仅 failedRenewals+1，原证书的过期时间和指纹保持不变
func (e *RenewalExecutor) Renew(ctx context.Context, record *model.CertificateRecord) (model.RenewalOutcome, error) {
	result, err, _ := e.group.Do(record.OrderID, func() (interface{}, error) {
		return e.renew(ctx, record)
	})

	outcome, ok := result.(model.RenewalOutcome)
	if !ok {
		outcome = model.RenewalFailed
	}
	return outcome, err
}

func (e *RenewalExecutor) renew(ctx context.Context, record *model.CertificateRecord) (model.RenewalOutcome, error) {
	log.Printf("========== 开始续期订单: %s (域名: %v) ==========", record.OrderID, record.Domains())

	challenges, err := e.RunChallenges(ctx, record)
	if err != nil {
		return e.recordFailure(record, err)
	}

	// 全部质询验证通过，推进记录
	now := e.now()
	fresh := record.Clone()
	fresh.Challenges = challenges
	fresh.SuccessfulRenewals++
	fresh.ExpiryDate = now.Add(e.validity)

	if err := e.store.InsertOrUpdateCertRecord(fresh); err != nil {
		return model.RenewalFailed, fmt.Errorf("保存续期结果失败: %w", err)
	}

	log.Printf("订单 %s 续期成功，新过期时间: %s", record.OrderID, fresh.ExpiryDate.Format("2006-01-02"))
	return model.RenewalSuccess, nil
}

// RunChallenges 对记录下的每个域名执行DNS-01质询
// 全部域名验证通过时返回新的质询列表，任一域名失败则整体失败
func (e *RenewalExecutor) RunChallenges(ctx context.Context, record *model.CertificateRecord) ([]model.Challenge, error) {
	challenges := make([]model.Challenge, 0, len(record.Challenges))

	for _, prev := range record.Challenges {
		binding, err := e.bindings(record.UserID, prev.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("解析域名 %s 的DNS凭证失败: %w", prev.Domain, err)
		}

		ch, err := e.orchestrator.CreateChallenge(prev.Domain, record.UserID, record.OrderID)
		if err != nil {
			return nil, err
		}

		if err := e.orchestrator.PublishToken(ctx, ch, binding); err != nil {
			e.orchestrator.MarkInvalid(ch)
			return nil, fmt.Errorf("发布域名 %s 的质询令牌失败: %w", prev.Domain, err)
		}

		if err := e.confirm(ctx, ch); err != nil {
			e.orchestrator.MarkInvalid(ch)
			return nil, fmt.Errorf("域名 %s 验证未通过: %w", prev.Domain, err)
		}

		e.orchestrator.MarkValid(ch)
		challenges = append(challenges, *ch)
	}

	return challenges, nil
}

// recordFailure 记录续期失败，原证书内容保持不变
func (e *RenewalExecutor) recordFailure(record *model.CertificateRecord, cause error) (model.RenewalOutcome, error) {
	log.Printf("订单 %s 续期失败: %v", record.OrderID, cause)

	fresh := record.Clone()
	fresh.FailedRenewals++

	if err := e.store.InsertOrUpdateCertRecord(fresh); err != nil {
		log.Printf("保存失败计数失败: %v", err)
	}

	return model.RenewalFailed, cause
}
