package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Certificate 证书内容
type Certificate struct {
	Certificate string // 证书内容 (PEM格式)
	PrivateKey  string // 私钥 (PEM格式)
	Chain       string // 证书链 (可选)
}

// CertFileStore 证书文件存储
type CertFileStore struct {
	baseDir string
}

// NewCertFileStore 创建证书文件存储
func NewCertFileStore(baseDir string) *CertFileStore {
	return &CertFileStore{baseDir: baseDir}
}

// SaveCertificate 保存证书到文件
// separateFiles 为真时分别写 cert.pem/key.pem/fullchain.pem，
// 否则写入单个 bundle.pem（证书+私钥合并）
func (s *CertFileStore) SaveCertificate(domain string, cert *Certificate, separateFiles bool) error {
	outputDir := filepath.Join(s.baseDir, domain)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	chain := cert.Chain
	if chain == "" {
		chain = cert.Certificate
	}

	if !separateFiles {
		bundlePath := filepath.Join(outputDir, "bundle.pem")
		bundle := chain
		if cert.PrivateKey != "" {
			bundle += cert.PrivateKey
		}
		if err := os.WriteFile(bundlePath, []byte(bundle), 0600); err != nil {
			return fmt.Errorf("保存证书失败: %w", err)
		}
		log.Printf("  - 证书文件: %s", bundlePath)
		log.Printf("证书已保存到: %s", outputDir)
		return nil
	}

	certPath := filepath.Join(outputDir, "cert.pem")
	if err := os.WriteFile(certPath, []byte(cert.Certificate), 0644); err != nil {
		return fmt.Errorf("保存证书失败: %w", err)
	}
	log.Printf("  - 证书文件: %s", certPath)

	if cert.PrivateKey != "" {
		keyPath := filepath.Join(outputDir, "key.pem")
		if err := os.WriteFile(keyPath, []byte(cert.PrivateKey), 0600); err != nil {
			return fmt.Errorf("保存私钥失败: %w", err)
		}
		log.Printf("  - 私钥文件: %s", keyPath)
	} else {
		log.Printf("  - 警告: 私钥不可用")
	}

	fullchainPath := filepath.Join(outputDir, "fullchain.pem")
	if err := os.WriteFile(fullchainPath, []byte(chain), 0644); err != nil {
		log.Printf("  - 保存证书链失败: %v", err)
	} else {
		log.Printf("  - 证书链文件: %s", fullchainPath)
	}

	log.Printf("证书已保存到: %s", outputDir)
	return nil
}

// GetCertDir 获取证书目录
func (s *CertFileStore) GetCertDir(domain string) string {
	return filepath.Join(s.baseDir, domain)
}

// GetCertPath 获取证书路径
func (s *CertFileStore) GetCertPath(domain string) string {
	return filepath.Join(s.baseDir, domain, "cert.pem")
}

// GetKeyPath 获取私钥路径
func (s *CertFileStore) GetKeyPath(domain string) string {
	return filepath.Join(s.baseDir, domain, "key.pem")
}

// GetFullchainPath 获取完整证书链路径
func (s *CertFileStore) GetFullchainPath(domain string) string {
	return filepath.Join(s.baseDir, domain, "fullchain.pem")
}
