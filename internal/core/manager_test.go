package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certkeeper/internal/config"
	"certkeeper/internal/model"
	"certkeeper/internal/storage"
)

func newTestManager(t *testing.T, stub *stubProvider) *Manager {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Bindings: []config.BindingConfig{
			{ID: "b-1", UserID: "u-1", Provider: "cloudflare", APIKey: "k", Default: true},
		},
		StorePath:    filepath.Join(dir, "records.json"),
		OutputDir:    filepath.Join(dir, "certs"),
		NoticeDays:   30,
		ScanMinutes:  5,
		ValidityDays: 90,
	}

	m, err := NewManager(cfg)
	require.NoError(t, err)

	// 绑定解析到可编程的stub适配器，确认回调直接放行
	m.registry.cache["b-1/cloudflare"] = stub
	m.renewer.confirm = func(ctx context.Context, ch *model.Challenge) error { return nil }
	return m
}

func TestManagerIssue(t *testing.T) {
	stub := &stubProvider{zoneID: "zone-1"}
	m := newTestManager(t, stub)

	record, err := m.Issue(context.Background(), "u-1", "admin@example.com", "b-1",
		[]string{"example.com", "*.example.com"}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, record.OrderID)
	assert.True(t, record.AutoRenew)
	require.Len(t, record.Challenges, 2)
	for _, ch := range record.Challenges {
		assert.Equal(t, model.StatusValid, ch.Status)
	}

	saved, err := m.store.GetCertRecord(record.OrderID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, []string{"example.com", "*.example.com"}, saved.Domains())
}

func TestManagerIssueEmptyDomains(t *testing.T) {
	m := newTestManager(t, &stubProvider{zoneID: "zone-1"})

	_, err := m.Issue(context.Background(), "u-1", "admin@example.com", "b-1", nil, true)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestManagerRenewOrder(t *testing.T) {
	stub := &stubProvider{zoneID: "zone-1"}
	m := newTestManager(t, stub)

	// 手动续期不受autoRenew开关限制
	record := testRecord("order-1", time.Now().Add(80*24*time.Hour), "example.com")
	record.AutoRenew = false
	record.Challenges[0].ProviderID = "b-1"
	require.NoError(t, m.store.InsertOrUpdateCertRecord(record))

	outcome, err := m.RenewOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, model.RenewalSuccess, outcome)

	saved, err := m.store.GetCertRecord("order-1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.SuccessfulRenewals)
}

func TestManagerRenewOrderMissing(t *testing.T) {
	m := newTestManager(t, &stubProvider{zoneID: "zone-1"})

	outcome, err := m.RenewOrder(context.Background(), "no-such-order")
	require.Error(t, err)
	assert.Equal(t, model.RenewalFailed, outcome)
}

func TestManagerMarkChallenge(t *testing.T) {
	m := newTestManager(t, &stubProvider{zoneID: "zone-1"})

	record := testRecord("order-1", time.Now().Add(24*time.Hour), "example.com")
	record.Challenges[0].Status = model.StatusValidating
	require.NoError(t, m.store.InsertOrUpdateCertRecord(record))
	challengeID := record.Challenges[0].ID

	require.NoError(t, m.MarkChallengeValid(challengeID))
	saved, err := m.store.GetCertRecord("order-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusValid, saved.Challenges[0].Status)
	assert.Equal(t, 0, saved.FailedRenewals)

	// 终态幂等：重复标记不再改动记录
	require.NoError(t, m.MarkChallengeInvalid(challengeID))
	saved, err = m.store.GetCertRecord("order-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusValid, saved.Challenges[0].Status)
	assert.Equal(t, 0, saved.FailedRenewals)

	assert.Error(t, m.MarkChallengeValid("no-such-challenge"))
}

func TestManagerSaveCertificate(t *testing.T) {
	m := newTestManager(t, &stubProvider{zoneID: "zone-1"})

	record := testRecord("order-1", time.Now().Add(80*24*time.Hour), "example.com")
	record.UseSeparateFiles = true
	require.NoError(t, m.store.InsertOrUpdateCertRecord(record))

	cert := &storage.Certificate{Certificate: "CERT\n", PrivateKey: "KEY\n", Chain: "CHAIN\n"}
	require.NoError(t, m.SaveCertificate("order-1", cert))

	// 证书写入订单主域名的输出目录
	data, err := os.ReadFile(m.certFiles.GetCertPath("example.com"))
	require.NoError(t, err)
	assert.Equal(t, "CERT\n", string(data))

	key, err := os.ReadFile(m.certFiles.GetKeyPath("example.com"))
	require.NoError(t, err)
	assert.Equal(t, "KEY\n", string(key))
}

func TestManagerSaveCertificateMissingOrder(t *testing.T) {
	m := newTestManager(t, &stubProvider{zoneID: "zone-1"})

	err := m.SaveCertificate("no-such-order", &storage.Certificate{Certificate: "CERT\n"})
	require.Error(t, err)
}

func TestManagerMarkChallengeInvalidCountsFailure(t *testing.T) {
	m := newTestManager(t, &stubProvider{zoneID: "zone-1"})

	record := testRecord("order-1", time.Now().Add(24*time.Hour), "example.com")
	record.Challenges[0].Status = model.StatusValidating
	require.NoError(t, m.store.InsertOrUpdateCertRecord(record))

	require.NoError(t, m.MarkChallengeInvalid(record.Challenges[0].ID))

	saved, err := m.store.GetCertRecord("order-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInvalid, saved.Challenges[0].Status)
	assert.Equal(t, 1, saved.FailedRenewals)
}
