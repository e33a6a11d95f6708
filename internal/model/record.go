package model

import "time"

// ChallengeStatus DNS-01 质询状态
type ChallengeStatus string

const (
	StatusPending          ChallengeStatus = "pending"            // 初始状态，尚未发布DNS记录
	StatusDNSRecordCreated ChallengeStatus = "dns_record_created" // DNS记录已创建
	StatusValidating       ChallengeStatus = "validating"         // 等待外部机构验证
	StatusValid            ChallengeStatus = "valid"              // 验证通过（终态）
	StatusInvalid          ChallengeStatus = "invalid"            // 验证失败（终态）
)

// IsTerminal 判断是否为终态
func (s ChallengeStatus) IsTerminal() bool {
	return s == StatusValid || s == StatusInvalid
}

// rank 状态在状态机中的序号，用于保证状态单调推进
func (s ChallengeStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusDNSRecordCreated:
		return 1
	case StatusValidating:
		return 2
	case StatusValid, StatusInvalid:
		return 3
	}
	return -1
}

// CanTransitionTo 判断状态机是否允许从当前状态迁移到 next
// 唯一允许的"回退"是任意状态 -> invalid
func (s ChallengeStatus) CanTransitionTo(next ChallengeStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusInvalid {
		return true
	}
	return next.rank() == s.rank()+1
}

// Challenge 单个域名在一个订单中的DNS-01质询
type Challenge struct {
	ID         string          `json:"id" yaml:"id"`
	OrderID    string          `json:"order_id" yaml:"order_id"`
	UserID     string          `json:"user_id" yaml:"user_id"`
	Domain     string          `json:"domain" yaml:"domain"`
	Token      string          `json:"token" yaml:"token"`             // DNS质询令牌（TXT记录值）
	AuthzURL   string          `json:"authz_url" yaml:"authz_url"`     // 授权URL
	ProviderID string          `json:"provider_id" yaml:"provider_id"` // 引用的DNS提供商绑定ID
	ZoneID     string          `json:"zone_id" yaml:"zone_id"`         // 提供商返回的Zone/记录ID
	Status     ChallengeStatus `json:"status" yaml:"status"`
}

// CertificateRecord 一张已签发或申请中的证书记录
type CertificateRecord struct {
	UserID             string      `json:"user_id" yaml:"user_id"`
	OrderID            string      `json:"order_id" yaml:"order_id"` // 全局唯一，创建后不可变
	Email              string      `json:"email" yaml:"email"`
	SavePath           string      `json:"save_path" yaml:"save_path"`
	UseSeparateFiles   bool        `json:"use_separate_files" yaml:"use_separate_files"` // 证书/私钥分文件保存
	SaveForRenewal     bool        `json:"save_for_renewal" yaml:"save_for_renewal"`     // 保留续期材料
	AutoRenew          bool        `json:"auto_renew" yaml:"auto_renew"`
	FailedRenewals     int         `json:"failed_renewals" yaml:"failed_renewals"`
	SuccessfulRenewals int         `json:"successful_renewals" yaml:"successful_renewals"`
	Signer             string      `json:"signer" yaml:"signer"`
	AccountID          string      `json:"account_id" yaml:"account_id"`
	OrderURL           string      `json:"order_url" yaml:"order_url"`
	ChallengeType      string      `json:"challenge_type" yaml:"challenge_type"`
	Thumbprint         string      `json:"thumbprint" yaml:"thumbprint"`
	Challenges         []Challenge `json:"challenges" yaml:"challenges"`
	CreationDate       time.Time   `json:"creation_date" yaml:"creation_date"`
	ExpiryDate         time.Time   `json:"expiry_date" yaml:"expiry_date"`
}

// Domains 返回记录下所有质询的域名列表
func (r *CertificateRecord) Domains() []string {
	domains := make([]string, 0, len(r.Challenges))
	for _, c := range r.Challenges {
		domains = append(domains, c.Domain)
	}
	return domains
}

// Clone 深拷贝记录（质询列表独立），避免快照读取方看到局部更新
func (r *CertificateRecord) Clone() *CertificateRecord {
	clone := *r
	clone.Challenges = make([]Challenge, len(r.Challenges))
	copy(clone.Challenges, r.Challenges)
	return &clone
}

// DNSProviderBinding 用户与某个DNS提供商的凭证绑定
type DNSProviderBinding struct {
	ID           string `json:"id" yaml:"id"`
	UserID       string `json:"user_id" yaml:"user_id"`
	Name         string `json:"name" yaml:"name"`                   // 展示名称
	ProviderType string `json:"provider_type" yaml:"provider_type"` // 提供商类型标签
	APIKey       string `json:"api_key" yaml:"api_key"`             // 多段凭证用冒号拼接，如 key:secret
	TTL          int    `json:"ttl" yaml:"ttl"`                     // 创建记录的TTL（秒）
}

// RenewalOutcome 续期结果
type RenewalOutcome string

const (
	RenewalSuccess RenewalOutcome = "success"
	RenewalFailed  RenewalOutcome = "failed"
)
