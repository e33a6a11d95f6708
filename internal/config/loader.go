package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	if config.StorePath == "" {
		config.StorePath = "./records.json"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./certs"
	}
	if config.NoticeDays == 0 {
		config.NoticeDays = 30
	}
	if config.ScanMinutes == 0 {
		config.ScanMinutes = 5
	}
	if config.ValidityDays == 0 {
		config.ValidityDays = 90
	}

	// 验证配置
	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate 验证配置
func validate(config *Config) error {
	if config.NoticeDays < 0 {
		return fmt.Errorf("notice_days 不能为负数")
	}
	if config.ScanMinutes < 0 {
		return fmt.Errorf("scan_minutes 不能为负数")
	}
	if config.ValidityDays <= 0 {
		return fmt.Errorf("validity_days 必须大于 0")
	}

	seen := make(map[string]bool)
	for _, binding := range config.Bindings {
		if binding.ID == "" {
			return fmt.Errorf("绑定缺少 id")
		}
		if seen[binding.ID] {
			return fmt.Errorf("绑定 %s: id 重复", binding.ID)
		}
		seen[binding.ID] = true

		if binding.UserID == "" {
			return fmt.Errorf("绑定 %s: 缺少 user_id", binding.ID)
		}
		if binding.Provider == "" {
			return fmt.Errorf("绑定 %s: 缺少 provider", binding.ID)
		}
		if binding.APIKey == "" {
			return fmt.Errorf("绑定 %s: 凭证不完整", binding.ID)
		}
	}

	return nil
}

// FindBinding 按用户和绑定ID查找凭证绑定
// bindingID 为空时回退到该用户的默认绑定（或其唯一绑定）
func (c *Config) FindBinding(userID, bindingID string) (*BindingConfig, error) {
	var fallback *BindingConfig

	for i := range c.Bindings {
		binding := &c.Bindings[i]
		if binding.UserID != userID {
			continue
		}
		if bindingID != "" && binding.ID == bindingID {
			return binding, nil
		}
		if binding.Default || fallback == nil {
			fallback = binding
		}
	}

	if bindingID != "" {
		return nil, fmt.Errorf("用户 %s 不存在绑定 %s", userID, bindingID)
	}
	if fallback == nil {
		return nil, fmt.Errorf("用户 %s 未配置任何DNS凭证绑定", userID)
	}
	return fallback, nil
}
