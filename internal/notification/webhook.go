package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"text/template"
	"time"

	"certkeeper/internal/config"
)

// EventType 事件类型
type EventType string

const (
	EventCertExpiring EventType = "cert_expiring" // 证书即将过期
	EventCertRenewed  EventType = "cert_renewed"  // 证书续期成功
	EventCertFailed   EventType = "cert_failed"   // 证书续期失败
)

// EventData 事件数据
type EventData struct {
	Event     string                 `json:"event"`          // 事件类型
	Domain    string                 `json:"domain"`         // 域名
	Timestamp string                 `json:"timestamp"`      // 时间戳
	Message   string                 `json:"message"`        // 消息
	Data      map[string]interface{} `json:"data,omitempty"` // 额外数据
}

// WebhookNotifier Webhook 通知器
type WebhookNotifier struct {
	config *config.WebhookConfig
	client *http.Client
}

// NewWebhookNotifier 创建 Webhook 通知器
func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &WebhookNotifier{
		config: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ShouldNotify 检查是否应该发送该事件的通知
func (w *WebhookNotifier) ShouldNotify(eventType EventType) bool {
	if w == nil || w.config == nil || !w.config.Enabled {
		return false
	}

	// 如果没有配置事件列表，则发送所有事件
	if len(w.config.Events) == 0 {
		return true
	}

	eventStr := string(eventType)
	for _, e := range w.config.Events {
		if e == eventStr {
			return true
		}
	}

	return false
}

// Notify 发送通知
func (w *WebhookNotifier) Notify(ctx context.Context, eventType EventType, domain, message string, data map[string]interface{}) error {
	if w == nil || w.config == nil || !w.config.Enabled {
		return nil
	}

	if !w.ShouldNotify(eventType) {
		return nil
	}

	eventData := EventData{
		Event:     string(eventType),
		Domain:    domain,
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   message,
		Data:      data,
	}

	var body []byte
	var err error

	if w.config.BodyTemplate != "" {
		body, err = w.renderTemplate(eventData)
	} else {
		body, err = json.Marshal(eventData)
	}
	if err != nil {
		return fmt.Errorf("构建通知内容失败: %w", err)
	}

	retries := w.config.Retries
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * 2 * time.Second):
			}
		}

		if err := w.send(ctx, body); err != nil {
			lastErr = err
			log.Printf("发送Webhook通知失败 (第%d次): %v", i+1, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("发送Webhook通知失败: %w", lastErr)
}

// renderTemplate 按配置的模板渲染请求体
func (w *WebhookNotifier) renderTemplate(data EventData) ([]byte, error) {
	tmpl, err := template.New("webhook").Parse(w.config.BodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("解析模板失败: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("渲染模板失败: %w", err)
	}
	return buf.Bytes(), nil
}

// send 发送单次HTTP请求
func (w *WebhookNotifier) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("状态码 %d", resp.StatusCode)
	}

	return nil
}
