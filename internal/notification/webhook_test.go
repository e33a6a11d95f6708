package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certkeeper/internal/config"
)

func TestNotifierDisabled(t *testing.T) {
	assert.Nil(t, NewWebhookNotifier(nil))
	assert.Nil(t, NewWebhookNotifier(&config.WebhookConfig{Enabled: false}))

	// nil通知器上的调用是安全的空操作
	var w *WebhookNotifier
	assert.False(t, w.ShouldNotify(EventCertExpiring))
	assert.NoError(t, w.Notify(context.Background(), EventCertExpiring, "example.com", "msg", nil))
}

func TestNotifySendsPayload(t *testing.T) {
	var received EventData
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, "secret", req.Header.Get("X-Auth"))
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWebhookNotifier(&config.WebhookConfig{
		Enabled: true,
		URL:     server.URL,
		Headers: map[string]string{"X-Auth": "secret"},
	})
	require.NotNil(t, w)

	err := w.Notify(context.Background(), EventCertRenewed, "example.com", "证书续期成功",
		map[string]interface{}{"order_id": "order-1"})
	require.NoError(t, err)

	assert.Equal(t, "cert_renewed", received.Event)
	assert.Equal(t, "example.com", received.Domain)
	assert.Equal(t, "证书续期成功", received.Message)
	assert.Equal(t, "order-1", received.Data["order_id"])
}

func TestNotifyEventFilter(t *testing.T) {
	w := NewWebhookNotifier(&config.WebhookConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Events:  []string{"cert_failed"},
	})
	require.NotNil(t, w)

	assert.True(t, w.ShouldNotify(EventCertFailed))
	assert.False(t, w.ShouldNotify(EventCertRenewed))

	// 被过滤的事件不会发起请求
	assert.NoError(t, w.Notify(context.Background(), EventCertRenewed, "example.com", "msg", nil))
}

func TestNotifyRetriesOnFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if calls.Add(1) < 2 {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWebhookNotifier(&config.WebhookConfig{
		Enabled: true,
		URL:     server.URL,
		Retries: 3,
	})

	err := w.Notify(context.Background(), EventCertExpiring, "example.com", "msg", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotifyBodyTemplate(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := NewWebhookNotifier(&config.WebhookConfig{
		Enabled:      true,
		URL:          server.URL,
		BodyTemplate: `{"text":"{{.Domain}}: {{.Message}}"}`,
	})

	require.NoError(t, w.Notify(context.Background(), EventCertExpiring, "example.com", "即将过期", nil))
	assert.Equal(t, `{"text":"example.com: 即将过期"}`, body)
}
