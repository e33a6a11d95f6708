package core

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	domainpkg "certkeeper/internal/domain"
)

// Validator 线上证书探测器
// 连接目标域名的443端口读取实际部署的证书
type Validator struct {
	dialTimeout time.Duration
}

// NewValidator 创建探测器
func NewValidator() *Validator {
	return &Validator{dialTimeout: 10 * time.Second}
}

// CheckCertExpiry 探测线上证书，返回过期时间和证书覆盖的域名列表
func (v *Validator) CheckCertExpiry(domain string) (time.Time, []string, error) {
	dialer := &net.Dialer{Timeout: v.dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(domain, "443"), &tls.Config{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("连接 %s 失败: %w", domain, err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return time.Time{}, nil, fmt.Errorf("域名 %s 未返回证书", domain)
	}

	leaf := certs[0]
	var domains []string
	if leaf.Subject.CommonName != "" {
		domains = append(domains, leaf.Subject.CommonName)
	}
	domains = append(domains, leaf.DNSNames...)

	return leaf.NotAfter, domains, nil
}

// Covers 判断线上证书是否覆盖目标域名
func (v *Validator) Covers(certDomains []string, target string) bool {
	for _, certDomain := range certDomains {
		if domainpkg.MatchDomain(certDomain, target) {
			return true
		}
	}
	return false
}
