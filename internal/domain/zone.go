package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// RecursiveNameservers 用于Zone探测和TXT传播检查的递归DNS服务器
var RecursiveNameservers = []string{"8.8.8.8:53", "1.1.1.1:53"}

var (
	zoneCache   = map[string]string{}
	zoneCacheMu sync.Mutex
)

// FindZoneByFqdn 通过逐级查询SOA记录确定fqdn所属的权威Zone
// 例如: _acme-challenge.www.example.com. -> example.com.
// 查询失败时回退到按域名结构提取主域名
func FindZoneByFqdn(fqdn string) string {
	if !strings.HasSuffix(fqdn, ".") {
		fqdn = fqdn + "."
	}

	zoneCacheMu.Lock()
	if zone, ok := zoneCache[fqdn]; ok {
		zoneCacheMu.Unlock()
		return zone
	}
	zoneCacheMu.Unlock()

	labelIndexes := dns.Split(fqdn)
	for _, index := range labelIndexes {
		begin := fqdn[index:]
		in, err := dnsQuery(begin, dns.TypeSOA)
		if err != nil {
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			continue
		}
		for _, ans := range in.Answer {
			if soa, ok := ans.(*dns.SOA); ok {
				zone := soa.Hdr.Name
				zoneCacheMu.Lock()
				zoneCache[fqdn] = zone
				zoneCacheMu.Unlock()
				return zone
			}
		}
	}

	// 回退：按域名结构取主域名
	return ExtractMainDomain(strings.TrimSuffix(fqdn, ".")) + "."
}

// CheckTXTRecord 检查fqdn下是否能查询到期望值的TXT记录
func CheckTXTRecord(fqdn, expected string) (bool, error) {
	if !strings.HasSuffix(fqdn, ".") {
		fqdn = fqdn + "."
	}

	in, err := dnsQuery(fqdn, dns.TypeTXT)
	if err != nil {
		return false, fmt.Errorf("查询TXT记录失败: %w", err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return false, fmt.Errorf("查询TXT记录返回 %s", dns.RcodeToString[in.Rcode])
	}

	for _, ans := range in.Answer {
		if txt, ok := ans.(*dns.TXT); ok {
			for _, value := range txt.Txt {
				if value == expected {
					return true, nil
				}
			}
		}
	}

	return false, nil
}

// dnsQuery 依次向递归DNS服务器发起查询，返回第一个成功的响应
func dnsQuery(fqdn string, rtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, rtype)
	m.RecursionDesired = true

	client := &dns.Client{Timeout: 10 * time.Second}

	var lastErr error
	for _, ns := range RecursiveNameservers {
		in, _, err := client.Exchange(m, ns)
		if err != nil {
			lastErr = err
			continue
		}
		return in, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("没有可用的DNS服务器")
	}
	return nil, lastErr
}
