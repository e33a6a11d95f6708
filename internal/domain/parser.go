package domain

import "strings"

// NormalizeWildcard 去除通配符前缀
// 例如: *.example.com -> example.com，验证记录仍发布在基础域名下
func NormalizeWildcard(domain string) string {
	return strings.TrimPrefix(domain, "*.")
}

// IsWildcard 判断是否为通配符域名
func IsWildcard(domain string) bool {
	return strings.HasPrefix(domain, "*.")
}

// ChallengeRecordName 计算DNS-01验证记录的完整域名
// 例如: *.www.example.com -> _acme-challenge.www.example.com
func ChallengeRecordName(domain string) string {
	return "_acme-challenge." + NormalizeWildcard(domain)
}

// ExtractMainDomain 从完整域名提取主域名
// 例如: www.example.com -> example.com, sub.test.example.com -> example.com
func ExtractMainDomain(domain string) string {
	domain = NormalizeWildcard(domain)
	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "." + parts[len(parts)-1]
	}
	return domain
}

// ExtractSubDomain 提取子域名部分（用于DNS记录的RR值）
// 例如: _acme-challenge.www.example.com 中提取 _acme-challenge.www
func ExtractSubDomain(fullRecord, mainDomain string) string {
	if strings.HasSuffix(fullRecord, "."+mainDomain) {
		return strings.TrimSuffix(fullRecord, "."+mainDomain)
	}
	return fullRecord
}

// IsSubDomain 检查是否为子域名
func IsSubDomain(domain, mainDomain string) bool {
	return strings.HasSuffix(domain, "."+mainDomain) || domain == mainDomain
}

// MatchDomain 检查域名是否匹配（支持通配符）
func MatchDomain(certDomain, targetDomain string) bool {
	// 完全匹配
	if certDomain == targetDomain {
		return true
	}

	// 通配符只覆盖一层子域名，不覆盖基础域名本身
	if IsWildcard(certDomain) {
		base := NormalizeWildcard(certDomain)
		rest, ok := strings.CutSuffix(targetDomain, "."+base)
		if !ok {
			return false
		}
		return rest != "" && !strings.Contains(rest, ".")
	}

	return false
}
