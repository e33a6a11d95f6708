package core

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"certkeeper/internal/model"
	"certkeeper/internal/notification"
	"certkeeper/internal/storage"
)

// Snapshot 某次扫描产生的到期分类视图，整体原子发布，读取方不会看到局部更新
type Snapshot struct {
	ScannedAt    time.Time
	ExpiringSoon []*model.CertificateRecord // now <= expiryDate <= now+noticePeriod
	Expired      []*model.CertificateRecord // expiryDate < now
}

// ExpiryScheduler 到期调度器
// 周期性扫描全量记录，分类出已过期和即将过期的证书并触发自动续期
// 自身不保存记录数据，每次扫描都从权威存储重新计算
type ExpiryScheduler struct {
	store        storage.RecordStore
	renewer      *RenewalExecutor
	notifier     *notification.WebhookNotifier
	noticePeriod time.Duration
	interval     time.Duration
	now          func() time.Time

	snapshot atomic.Value // *Snapshot
}

// NewExpiryScheduler 创建到期调度器
func NewExpiryScheduler(store storage.RecordStore, renewer *RenewalExecutor, notifier *notification.WebhookNotifier, noticePeriod, interval time.Duration) *ExpiryScheduler {
	s := &ExpiryScheduler{
		store:        store,
		renewer:      renewer,
		notifier:     notifier,
		noticePeriod: noticePeriod,
		interval:     interval,
		now:          time.Now,
	}
	s.snapshot.Store(&Snapshot{})
	return s
}

// Snapshot 返回最近一次扫描的分类视图
func (s *ExpiryScheduler) Snapshot() *Snapshot {
	return s.snapshot.Load().(*Snapshot)
}

// Run 运行调度循环：启动时立即扫描一次，此后按固定间隔重扫
// ctx取消后在一个tick间隔内退出
func (s *ExpiryScheduler) Run(ctx context.Context) {
	log.Printf("到期调度器已启动，提醒窗口: %v，扫描间隔: %v", s.noticePeriod, s.interval)

	if err := s.Scan(ctx); err != nil {
		log.Printf("扫描出错: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("到期调度器正在退出...")
			return
		case <-ticker.C:
			log.Printf("开始定时扫描...")
			// 扫描失败只记录日志，下一个tick继续
			if err := s.Scan(ctx); err != nil {
				log.Printf("扫描出错: %v", err)
			}
		}
	}
}

// Scan 执行一次扫描：重新分类全量记录、发布快照、触发自动续期
func (s *ExpiryScheduler) Scan(ctx context.Context) error {
	records, err := s.store.GetAllCertRecords()
	if err != nil {
		return err
	}

	snapshot := s.Classify(records, s.now())
	s.snapshot.Store(snapshot)

	log.Printf("扫描完成: 共 %d 条记录，即将过期 %d 条，已过期 %d 条",
		len(records), len(snapshot.ExpiringSoon), len(snapshot.Expired))

	for _, record := range snapshot.ExpiringSoon {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.notify(ctx, notification.EventCertExpiring, record,
			"证书即将过期: "+record.ExpiryDate.Format("2006-01-02"))

		// 未开启自动续期的记录只能由外部显式触发续期
		if !record.AutoRenew {
			continue
		}

		outcome, err := s.renewer.Renew(ctx, record)
		if err != nil {
			log.Printf("续期订单 %s 失败: %v", record.OrderID, err)
		}
		switch outcome {
		case model.RenewalSuccess:
			s.notify(ctx, notification.EventCertRenewed, record, "证书续期成功")
		case model.RenewalFailed:
			s.notify(ctx, notification.EventCertFailed, record, "证书续期失败")
		}
	}

	return nil
}

// Classify 按过期时间将记录分类到各个桶，边界两端均为闭区间
func (s *ExpiryScheduler) Classify(records []*model.CertificateRecord, now time.Time) *Snapshot {
	snapshot := &Snapshot{ScannedAt: now}
	cutoff := now.Add(s.noticePeriod)

	for _, record := range records {
		expiry := record.ExpiryDate
		switch {
		case expiry.Before(now):
			snapshot.Expired = append(snapshot.Expired, record)
		case !expiry.After(cutoff):
			// now <= expiry <= now+noticePeriod
			snapshot.ExpiringSoon = append(snapshot.ExpiringSoon, record)
		}
	}

	return snapshot
}

// notify 发送事件通知，通知器未配置时为空操作
func (s *ExpiryScheduler) notify(ctx context.Context, event notification.EventType, record *model.CertificateRecord, message string) {
	if s.notifier == nil {
		return
	}

	primary := ""
	if domains := record.Domains(); len(domains) > 0 {
		primary = domains[0]
	}

	if err := s.notifier.Notify(ctx, event, primary, message, map[string]interface{}{
		"order_id":    record.OrderID,
		"expiry_date": record.ExpiryDate.Format(time.RFC3339),
	}); err != nil {
		log.Printf("发送通知失败: %v", err)
	}
}
