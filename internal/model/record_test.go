package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChallengeStatusTransitions(t *testing.T) {
	// 正常推进路径
	assert.True(t, StatusPending.CanTransitionTo(StatusDNSRecordCreated))
	assert.True(t, StatusDNSRecordCreated.CanTransitionTo(StatusValidating))
	assert.True(t, StatusValidating.CanTransitionTo(StatusValid))

	// 任意非终态都可以直接失败
	assert.True(t, StatusPending.CanTransitionTo(StatusInvalid))
	assert.True(t, StatusDNSRecordCreated.CanTransitionTo(StatusInvalid))
	assert.True(t, StatusValidating.CanTransitionTo(StatusInvalid))

	// 不允许跳级或回退
	assert.False(t, StatusPending.CanTransitionTo(StatusValidating))
	assert.False(t, StatusPending.CanTransitionTo(StatusValid))
	assert.False(t, StatusValidating.CanTransitionTo(StatusPending))
	assert.False(t, StatusValidating.CanTransitionTo(StatusDNSRecordCreated))

	// 终态不可离开
	assert.False(t, StatusValid.CanTransitionTo(StatusInvalid))
	assert.False(t, StatusValid.CanTransitionTo(StatusValidating))
	assert.False(t, StatusInvalid.CanTransitionTo(StatusValid))
	assert.False(t, StatusInvalid.CanTransitionTo(StatusInvalid))
}

func TestChallengeStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusValid.IsTerminal())
	assert.True(t, StatusInvalid.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusDNSRecordCreated.IsTerminal())
	assert.False(t, StatusValidating.IsTerminal())
}

func TestCertificateRecordDomains(t *testing.T) {
	record := &CertificateRecord{
		Challenges: []Challenge{
			{Domain: "example.com"},
			{Domain: "*.example.com"},
		},
	}
	assert.Equal(t, []string{"example.com", "*.example.com"}, record.Domains())
	assert.Empty(t, (&CertificateRecord{}).Domains())
}

func TestCertificateRecordClone(t *testing.T) {
	record := &CertificateRecord{
		OrderID: "order-1",
		Challenges: []Challenge{
			{ID: "ch-1", Domain: "example.com", Status: StatusPending},
		},
	}

	clone := record.Clone()
	clone.Challenges[0].Status = StatusValid
	clone.SuccessfulRenewals = 7

	// 修改克隆不影响原记录
	assert.Equal(t, StatusPending, record.Challenges[0].Status)
	assert.Equal(t, 0, record.SuccessfulRenewals)
}
