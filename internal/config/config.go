package config

// Config 配置结构
type Config struct {
	// DNS提供商凭证绑定
	Bindings []BindingConfig `yaml:"bindings"`

	// 全局配置
	StorePath    string `yaml:"store_path"`    // 证书记录存储文件
	OutputDir    string `yaml:"output_dir"`    // 证书文件输出目录
	NoticeDays   int    `yaml:"notice_days"`   // 到期提醒窗口（天）
	ScanMinutes  int    `yaml:"scan_minutes"`  // 扫描间隔（分钟）
	ValidityDays int    `yaml:"validity_days"` // 新证书有效期（天）
	PostCommand  string `yaml:"post_command"`  // 续期成功后的全局后置命令

	// Webhook 通知配置
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`
}

// BindingConfig DNS提供商凭证绑定配置
type BindingConfig struct {
	ID       string `yaml:"id"`
	UserID   string `yaml:"user_id"`
	Name     string `yaml:"name,omitempty"`    // 展示名称
	Provider string `yaml:"provider"`          // 提供商类型标签
	APIKey   string `yaml:"api_key"`           // 多段凭证用冒号拼接，如 key:secret
	TTL      int    `yaml:"ttl,omitempty"`     // 创建记录的TTL（秒）
	Default  bool   `yaml:"default,omitempty"` // 是否为该用户的默认绑定
}

// WebhookConfig Webhook 通知配置
type WebhookConfig struct {
	Enabled      bool              `yaml:"enabled"`                 // 是否启用
	URL          string            `yaml:"url"`                     // Webhook URL
	Headers      map[string]string `yaml:"headers,omitempty"`       // 自定义请求头
	Events       []string          `yaml:"events,omitempty"`        // 订阅的事件类型
	Timeout      int               `yaml:"timeout,omitempty"`       // 请求超时时间（秒），默认30
	Retries      int               `yaml:"retries,omitempty"`       // 重试次数，默认3
	BodyTemplate string            `yaml:"body_template,omitempty"` // 请求体模板（JSON格式）
}
