package namecheap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getHostsResponse = `<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK">
  <Errors/>
  <CommandResponse>
    <DomainDNSGetHostsResult>
      <host Name="@" Type="A" Address="1.2.3.4" TTL="1800"/>
      <host Name="www" Type="CNAME" Address="example.com." TTL="1800"/>
    </DomainDNSGetHostsResult>
  </CommandResponse>
</ApiResponse>`

const setHostsResponse = `<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK"><Errors/><CommandResponse/></ApiResponse>`

func TestAddDNSRecord(t *testing.T) {
	var setParams map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseForm())
		switch req.PostForm.Get("Command") {
		case "namecheap.domains.dns.getHosts":
			assert.Equal(t, "apiuser", req.PostForm.Get("ApiUser"))
			assert.Equal(t, "apikey", req.PostForm.Get("ApiKey"))
			assert.Equal(t, "example", req.PostForm.Get("SLD"))
			assert.Equal(t, "com", req.PostForm.Get("TLD"))
			rw.Write([]byte(getHostsResponse))
		case "namecheap.domains.dns.setHosts":
			setParams = req.PostForm
			rw.Write([]byte(setHostsResponse))
		default:
			t.Errorf("未知命令: %s", req.PostForm.Get("Command"))
		}
	}))
	defer server.Close()

	p := NewDNSProviderWithBaseURL(server.URL, 600)
	zoneID, err := p.AddDNSRecord(context.Background(), "example.com", "apiuser:apikey", "tok-123", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", zoneID)

	// 原有记录全部保留，新TXT记录追加在末尾
	require.NotNil(t, setParams)
	assert.Equal(t, "@", setParams["HostName1"][0])
	assert.Equal(t, "A", setParams["RecordType1"][0])
	assert.Equal(t, "www", setParams["HostName2"][0])
	assert.Equal(t, "_acme-challenge", setParams["HostName3"][0])
	assert.Equal(t, "TXT", setParams["RecordType3"][0])
	assert.Equal(t, "tok-123", setParams["Address3"][0])
	assert.Equal(t, "600", setParams["TTL3"][0])
}

func TestAddDNSRecordIdempotent(t *testing.T) {
	existing := `<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="OK">
  <Errors/>
  <CommandResponse>
    <DomainDNSGetHostsResult>
      <host Name="_acme-challenge" Type="TXT" Address="tok-123" TTL="600"/>
    </DomainDNSGetHostsResult>
  </CommandResponse>
</ApiResponse>`

	setCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseForm())
		if req.PostForm.Get("Command") == "namecheap.domains.dns.setHosts" {
			setCalled = true
		}
		rw.Write([]byte(existing))
	}))
	defer server.Close()

	p := NewDNSProviderWithBaseURL(server.URL, 600)
	zoneID, err := p.AddDNSRecord(context.Background(), "example.com", "apiuser:apikey", "tok-123", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", zoneID)
	// 同值记录已存在时不触发全量回写
	assert.False(t, setCalled)
}

func TestAddDNSRecordAPIError(t *testing.T) {
	failed := `<?xml version="1.0" encoding="utf-8"?>
<ApiResponse Status="ERROR">
  <Errors><Error>API Key is invalid</Error></Errors>
</ApiResponse>`

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Write([]byte(failed))
	}))
	defer server.Close()

	p := NewDNSProviderWithBaseURL(server.URL, 0)
	_, err := p.AddDNSRecord(context.Background(), "example.com", "apiuser:badkey", "tok-123", "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API Key is invalid")
}

func TestSplitZone(t *testing.T) {
	sld, tld, err := splitZone("example.com")
	require.NoError(t, err)
	assert.Equal(t, "example", sld)
	assert.Equal(t, "com", tld)

	sld, tld, err = splitZone("example.co.uk")
	require.NoError(t, err)
	assert.Equal(t, "example", sld)
	assert.Equal(t, "co.uk", tld)

	_, _, err = splitZone("nodots")
	assert.Error(t, err)
}
