package duckdns

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDNSRecord(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		gotQuery = map[string]string{
			"domains": q.Get("domains"),
			"token":   q.Get("token"),
			"txt":     q.Get("txt"),
		}
		rw.Write([]byte("OK\nTXT updated"))
	}))
	defer server.Close()

	p := NewDNSProviderWithBaseURL(server.URL, 0)
	zoneID, err := p.AddDNSRecord(context.Background(), "mybox.duckdns.org", "duck-token", "tok-123", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "mybox", zoneID)

	assert.Equal(t, "mybox", gotQuery["domains"])
	assert.Equal(t, "duck-token", gotQuery["token"])
	assert.Equal(t, "tok-123", gotQuery["txt"])
}

func TestAddDNSRecordRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte("KO"))
	}))
	defer server.Close()

	p := NewDNSProviderWithBaseURL(server.URL, 0)
	zoneID, err := p.AddDNSRecord(context.Background(), "mybox.duckdns.org", "bad-token", "tok-123", "u-1")
	require.Error(t, err)
	assert.Empty(t, zoneID)
}

func TestSubName(t *testing.T) {
	assert.Equal(t, "mybox", subName("mybox.duckdns.org"))
	assert.Equal(t, "mybox", subName("www.mybox.duckdns.org"))
	assert.Equal(t, "bare", subName("bare"))
}
