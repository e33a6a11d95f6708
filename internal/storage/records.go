package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"certkeeper/internal/model"
)

// RecordStore 证书记录存储接口
// 核心只依赖读全量、按订单读取和单条写入三个操作
type RecordStore interface {
	// GetAllCertRecords 返回全部证书记录（按订单ID排序）
	GetAllCertRecords() ([]*model.CertificateRecord, error)

	// GetCertRecord 按订单ID读取单条记录，不存在时返回nil
	GetCertRecord(orderID string) (*model.CertificateRecord, error)

	// InsertOrUpdateCertRecord 按订单ID插入或整条覆盖记录
	InsertOrUpdateCertRecord(record *model.CertificateRecord) error
}

// FileRecordStore 基于JSON文件的证书记录存储
// 单条upsert，不做全量覆盖，避免并发续期互相丢失更新
type FileRecordStore struct {
	mu   sync.Mutex
	path string
}

// NewFileRecordStore 创建文件存储
func NewFileRecordStore(path string) *FileRecordStore {
	return &FileRecordStore{path: path}
}

// GetAllCertRecords 返回全部证书记录
func (s *FileRecordStore) GetAllCertRecords() ([]*model.CertificateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// GetCertRecord 按订单ID读取单条记录
func (s *FileRecordStore) GetCertRecord(orderID string) (*model.CertificateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.OrderID == orderID {
			return record, nil
		}
	}
	return nil, nil
}

// InsertOrUpdateCertRecord 按订单ID插入或整条覆盖记录
func (s *FileRecordStore) InsertOrUpdateCertRecord(record *model.CertificateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range records {
		if existing.OrderID == record.OrderID {
			records[i] = record.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record.Clone())
	}

	return s.save(records)
}

// load 读取并解析记录文件，文件不存在时返回空列表
func (s *FileRecordStore) load() ([]*model.CertificateRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.StoreError{Op: "读取", Err: err}
	}

	var records []*model.CertificateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &model.StoreError{Op: "解析", Err: err}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].OrderID < records[j].OrderID
	})
	return records, nil
}

// save 先写临时文件再原子重命名，避免写入中断损坏记录文件
func (s *FileRecordStore) save(records []*model.CertificateRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &model.StoreError{Op: "序列化", Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &model.StoreError{Op: "创建目录", Err: err}
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &model.StoreError{Op: "写入", Err: fmt.Errorf("写临时文件失败: %w", err)}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &model.StoreError{Op: "写入", Err: fmt.Errorf("重命名失败: %w", err)}
	}

	return nil
}
