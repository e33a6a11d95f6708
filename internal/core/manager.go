package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"certkeeper/internal/config"
	"certkeeper/internal/model"
	"certkeeper/internal/notification"
	"certkeeper/internal/storage"
)

// Manager 证书生命周期管理器
// 组装注册表、编排器、调度器和续期执行器，对外提供操作入口
type Manager struct {
	config       *config.Config
	registry     *Registry
	orchestrator *ChallengeOrchestrator
	store        storage.RecordStore
	certFiles    *storage.CertFileStore
	renewer      *RenewalExecutor
	scheduler    *ExpiryScheduler
	notifier     *notification.WebhookNotifier
	executor     *Executor
	validator    *Validator
}

// NewManager 创建管理器
func NewManager(cfg *config.Config) (*Manager, error) {
	registry := NewRegistry()
	orchestrator := NewChallengeOrchestrator(registry)
	store := storage.NewFileRecordStore(cfg.StorePath)
	notifier := notification.NewWebhookNotifier(cfg.Webhook)

	resolver := func(userID, providerID string) (*model.DNSProviderBinding, error) {
		binding, err := cfg.FindBinding(userID, providerID)
		if err != nil {
			return nil, err
		}
		return &model.DNSProviderBinding{
			ID:           binding.ID,
			UserID:       binding.UserID,
			Name:         binding.Name,
			ProviderType: binding.Provider,
			APIKey:       binding.APIKey,
			TTL:          binding.TTL,
		}, nil
	}

	validity := time.Duration(cfg.ValidityDays) * 24 * time.Hour
	renewer := NewRenewalExecutor(store, orchestrator, resolver, nil, validity)

	scheduler := NewExpiryScheduler(store, renewer, notifier,
		time.Duration(cfg.NoticeDays)*24*time.Hour,
		time.Duration(cfg.ScanMinutes)*time.Minute)

	return &Manager{
		config:       cfg,
		registry:     registry,
		orchestrator: orchestrator,
		store:        store,
		certFiles:    storage.NewCertFileStore(cfg.OutputDir),
		renewer:      renewer,
		scheduler:    scheduler,
		notifier:     notifier,
		executor:     NewExecutor(),
		validator:    NewValidator(),
	}, nil
}

// Run 执行一次扫描（单次运行模式）
func (m *Manager) Run(ctx context.Context) error {
	log.Println("========== 开始检查证书 ==========")
	err := m.scheduler.Scan(ctx)
	log.Println("========== 检查完成 ==========")
	return err
}

// RunLoop 运行调度循环直到ctx取消（守护进程模式）
func (m *Manager) RunLoop(ctx context.Context) {
	m.scheduler.Run(ctx)
}

// Scheduler 返回到期调度器
func (m *Manager) Scheduler() *ExpiryScheduler {
	return m.scheduler
}

// Issue 为一组域名发起新的证书申请
// 创建带待处理质询的记录并立即执行全部域名的DNS-01验证
func (m *Manager) Issue(ctx context.Context, userID, email, bindingID string, domains []string, autoRenew bool) (*model.CertificateRecord, error) {
	if len(domains) == 0 {
		return nil, &model.ValidationError{Field: "domains", Reason: "不能为空"}
	}

	now := time.Now()
	record := &model.CertificateRecord{
		UserID:        userID,
		OrderID:       uuid.NewString(),
		Email:         email,
		SavePath:      m.config.OutputDir,
		AutoRenew:     autoRenew,
		ChallengeType: "dns-01",
		CreationDate:  now,
		ExpiryDate:    now.Add(time.Duration(m.config.ValidityDays) * 24 * time.Hour),
	}

	for _, dom := range domains {
		ch, err := m.orchestrator.CreateChallenge(dom, userID, record.OrderID)
		if err != nil {
			return nil, err
		}
		ch.ProviderID = bindingID
		record.Challenges = append(record.Challenges, *ch)
	}

	// 先持久化待处理状态，再执行验证
	if err := m.store.InsertOrUpdateCertRecord(record); err != nil {
		return nil, err
	}

	challenges, err := m.renewer.RunChallenges(ctx, record)
	if err != nil {
		record.FailedRenewals++
		if saveErr := m.store.InsertOrUpdateCertRecord(record); saveErr != nil {
			log.Printf("保存失败计数失败: %v", saveErr)
		}
		return nil, fmt.Errorf("域名验证失败: %w", err)
	}

	record.Challenges = challenges
	if err := m.store.InsertOrUpdateCertRecord(record); err != nil {
		return nil, err
	}

	m.runPostCommand(record)

	log.Printf("订单 %s 申请完成，共 %d 个域名", record.OrderID, len(domains))
	return record, nil
}

// RenewOrder 显式续期指定订单，不受autoRenew开关限制
func (m *Manager) RenewOrder(ctx context.Context, orderID string) (model.RenewalOutcome, error) {
	record, err := m.store.GetCertRecord(orderID)
	if err != nil {
		return model.RenewalFailed, err
	}
	if record == nil {
		return model.RenewalFailed, fmt.Errorf("订单 %s 不存在", orderID)
	}

	outcome, err := m.renewer.Renew(ctx, record)
	if outcome == model.RenewalSuccess {
		m.runPostCommand(record)
	}
	return outcome, err
}

// MarkChallengeValid 外部验证机构确认质询通过的入口
// 已处于终态的质询为幂等空操作
func (m *Manager) MarkChallengeValid(challengeID string) error {
	return m.markChallenge(challengeID, true)
}

// MarkChallengeInvalid 外部验证机构拒绝质询的入口
// 质询进入终态并累加所属记录的失败计数
func (m *Manager) MarkChallengeInvalid(challengeID string) error {
	return m.markChallenge(challengeID, false)
}

func (m *Manager) markChallenge(challengeID string, valid bool) error {
	records, err := m.store.GetAllCertRecords()
	if err != nil {
		return err
	}

	for _, record := range records {
		for i := range record.Challenges {
			ch := &record.Challenges[i]
			if ch.ID != challengeID {
				continue
			}

			if ch.Status.IsTerminal() {
				return nil
			}

			if valid {
				m.orchestrator.MarkValid(ch)
			} else {
				m.orchestrator.MarkInvalid(ch)
				record.FailedRenewals++
			}

			return m.store.InsertOrUpdateCertRecord(record)
		}
	}

	return fmt.Errorf("质询 %s 不存在", challengeID)
}

// CheckDomain 探测线上证书的有效期（运维辅助命令）
func (m *Manager) CheckDomain(domain string) error {
	expiry, domains, err := m.validator.CheckCertExpiry(domain)
	if err != nil {
		return err
	}

	daysRemaining := int(time.Until(expiry).Hours() / 24)
	log.Printf("域名 %s 的线上证书将在 %d 天后过期 (%s)", domain, daysRemaining, expiry.Format("2006-01-02"))
	log.Printf("证书覆盖的域名: %v", domains)
	if !m.validator.Covers(domains, domain) {
		log.Printf("警告: 线上证书未覆盖域名 %s", domain)
	}
	return nil
}

// SaveCertificate 将签发机构返回的证书内容写入订单主域名的输出目录
func (m *Manager) SaveCertificate(orderID string, cert *storage.Certificate) error {
	record, err := m.store.GetCertRecord(orderID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("订单 %s 不存在", orderID)
	}

	domains := record.Domains()
	if len(domains) == 0 {
		return &model.ValidationError{Field: "domains", Reason: "订单没有域名"}
	}

	return m.certFiles.SaveCertificate(domains[0], cert, record.UseSeparateFiles)
}

// runPostCommand 执行续期成功后的后置命令
func (m *Manager) runPostCommand(record *model.CertificateRecord) {
	if m.config.PostCommand == "" {
		return
	}

	domains := record.Domains()
	if len(domains) == 0 {
		return
	}
	primary := domains[0]

	vars := m.executor.BuildVars(
		primary,
		m.certFiles.GetCertDir(primary),
		m.certFiles.GetCertPath(primary),
		m.certFiles.GetKeyPath(primary),
		m.certFiles.GetFullchainPath(primary),
	)
	if err := m.executor.RunPostCommand(m.config.PostCommand, vars); err != nil {
		log.Printf("执行后置命令失败: %v", err)
	}
}
