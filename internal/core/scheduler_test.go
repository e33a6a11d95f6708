package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certkeeper/internal/model"
)

func newTestScheduler(store *memStore, renewer *RenewalExecutor, noticePeriod time.Duration, now time.Time) *ExpiryScheduler {
	s := NewExpiryScheduler(store, renewer, nil, noticePeriod, time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestClassifyBoundaries(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	notice := 30 * 24 * time.Hour
	s := newTestScheduler(newMemStore(), nil, notice, now)

	records := []*model.CertificateRecord{
		{OrderID: "expired", ExpiryDate: now.Add(-time.Second)},
		{OrderID: "at-now", ExpiryDate: now},
		{OrderID: "inside", ExpiryDate: now.Add(15 * 24 * time.Hour)},
		{OrderID: "at-cutoff", ExpiryDate: now.Add(notice)},
		{OrderID: "beyond", ExpiryDate: now.Add(notice + time.Second)},
	}

	snapshot := s.Classify(records, now)

	// 窗口两端都是闭区间
	assert.Equal(t, []string{"expired"}, orderIDs(snapshot.Expired))
	assert.Equal(t, []string{"at-now", "inside", "at-cutoff"}, orderIDs(snapshot.ExpiringSoon))
}

func TestClassifyExpiredNeverExpiringSoon(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	s := newTestScheduler(newMemStore(), nil, 30*24*time.Hour, now)

	records := []*model.CertificateRecord{
		{OrderID: "long-expired", ExpiryDate: now.Add(-365 * 24 * time.Hour)},
		{OrderID: "just-expired", ExpiryDate: now.Add(-time.Nanosecond)},
	}

	snapshot := s.Classify(records, now)
	assert.Len(t, snapshot.Expired, 2)
	assert.Empty(t, snapshot.ExpiringSoon)
}

func TestScanRenewsOnlyAutoRenew(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(10 * 24 * time.Hour)

	auto := testRecord("order-auto", soon, "auto.example.com")
	manual := testRecord("order-manual", soon, "manual.example.com")
	manual.AutoRenew = false
	healthy := testRecord("order-healthy", now.Add(80*24*time.Hour), "healthy.example.com")

	store := newMemStore(auto, manual, healthy)
	stub := &stubProvider{zoneID: "zone-1"}
	renewer := newTestRenewer(store, stub, func(ctx context.Context, ch *model.Challenge) error { return nil },
		90*24*time.Hour, now)
	s := newTestScheduler(store, renewer, 30*24*time.Hour, now)

	require.NoError(t, s.Scan(context.Background()))

	// 只有开启自动续期的到期记录被续期
	assert.Equal(t, 1, store.mustGet(t, "order-auto").SuccessfulRenewals)
	assert.Equal(t, 0, store.mustGet(t, "order-manual").SuccessfulRenewals)
	assert.Equal(t, 0, store.mustGet(t, "order-healthy").SuccessfulRenewals)
}

func TestScanPublishesSnapshot(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	expiring := testRecord("order-1", now.Add(5*24*time.Hour), "a.example.com")
	expiring.AutoRenew = false
	expired := testRecord("order-2", now.Add(-24*time.Hour), "b.example.com")

	store := newMemStore(expiring, expired)
	s := newTestScheduler(store, nil, 30*24*time.Hour, now)

	// 初始快照为空
	assert.Empty(t, s.Snapshot().ExpiringSoon)
	assert.Empty(t, s.Snapshot().Expired)

	require.NoError(t, s.Scan(context.Background()))

	snapshot := s.Snapshot()
	assert.Equal(t, now, snapshot.ScannedAt)
	assert.Equal(t, []string{"order-1"}, orderIDs(snapshot.ExpiringSoon))
	assert.Equal(t, []string{"order-2"}, orderIDs(snapshot.Expired))
}

func TestScanFailedRenewalDoesNotStopScan(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(10 * 24 * time.Hour)

	first := testRecord("order-a", soon, "a.example.com")
	second := testRecord("order-b", soon, "b.example.com")

	store := newMemStore(first, second)
	stub := &stubProvider{zoneID: "zone-1"}
	confirm := func(ctx context.Context, ch *model.Challenge) error {
		if ch.Domain == "a.example.com" {
			return context.DeadlineExceeded
		}
		return nil
	}
	renewer := newTestRenewer(store, stub, confirm, 90*24*time.Hour, now)
	s := newTestScheduler(store, renewer, 30*24*time.Hour, now)

	require.NoError(t, s.Scan(context.Background()))

	// 一条失败不影响其他记录继续续期
	assert.Equal(t, 1, store.mustGet(t, "order-a").FailedRenewals)
	assert.Equal(t, 1, store.mustGet(t, "order-b").SuccessfulRenewals)
}

// flakyStore 前failures次全量读取失败的存储
type flakyStore struct {
	*memStore
	mu       sync.Mutex
	failures int
	reads    int
}

func (s *flakyStore) GetAllCertRecords() ([]*model.CertificateRecord, error) {
	s.mu.Lock()
	s.reads++
	fail := s.reads <= s.failures
	s.mu.Unlock()

	if fail {
		return nil, &model.StoreError{Op: "读取", Err: errors.New("存储暂时不可用")}
	}
	return s.memStore.GetAllCertRecords()
}

func TestRunRecoversFromScanFailures(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	record := testRecord("order-1", now.Add(10*24*time.Hour), "example.com")

	store := &flakyStore{memStore: newMemStore(record), failures: 2}
	stub := &stubProvider{zoneID: "zone-1"}
	renewer := newTestRenewer(store.memStore, stub, func(ctx context.Context, ch *model.Challenge) error { return nil },
		90*24*time.Hour, now)

	s := NewExpiryScheduler(store, renewer, nil, 30*24*time.Hour, 20*time.Millisecond)
	s.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// 前两次扫描失败只记录日志，后续tick照常扫描并完成续期
	require.Eventually(t, func() bool {
		saved := store.mustGet(t, "order-1")
		return saved.SuccessfulRenewals == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("取消后调度循环未退出")
	}
}

func TestRunExitsOnCancel(t *testing.T) {
	s := NewExpiryScheduler(newMemStore(), nil, nil, 30*24*time.Hour, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	// 一个tick间隔内必须观察到取消并退出
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("取消后调度循环未退出")
	}
}

func orderIDs(records []*model.CertificateRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.OrderID)
	}
	return ids
}
