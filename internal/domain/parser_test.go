package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWildcard(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeWildcard("*.example.com"))
	assert.Equal(t, "example.com", NormalizeWildcard("example.com"))
	assert.Equal(t, "a.example.com", NormalizeWildcard("*.a.example.com"))
	// 只剥离最前面的一层通配符
	assert.Equal(t, "*.example.com", NormalizeWildcard("*.*.example.com"))
}

func TestIsWildcard(t *testing.T) {
	assert.True(t, IsWildcard("*.example.com"))
	assert.False(t, IsWildcard("example.com"))
	assert.False(t, IsWildcard("www.example.com"))
}

func TestChallengeRecordName(t *testing.T) {
	assert.Equal(t, "_acme-challenge.example.com", ChallengeRecordName("example.com"))
	assert.Equal(t, "_acme-challenge.www.example.com", ChallengeRecordName("www.example.com"))

	// 通配符域名和基础域名共用同一条验证记录
	assert.Equal(t, ChallengeRecordName("example.com"), ChallengeRecordName("*.example.com"))
}

func TestExtractMainDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractMainDomain("example.com"))
	assert.Equal(t, "example.com", ExtractMainDomain("www.example.com"))
	assert.Equal(t, "example.com", ExtractMainDomain("a.b.example.com"))
	assert.Equal(t, "example.com", ExtractMainDomain("*.example.com"))
}

func TestExtractSubDomain(t *testing.T) {
	assert.Equal(t, "_acme-challenge", ExtractSubDomain("_acme-challenge.example.com", "example.com"))
	assert.Equal(t, "_acme-challenge.www", ExtractSubDomain("_acme-challenge.www.example.com", "example.com"))
	// 记录名等于主域名时原样返回
	assert.Equal(t, "example.com", ExtractSubDomain("example.com", "example.com"))
}

func TestMatchDomain(t *testing.T) {
	assert.True(t, MatchDomain("example.com", "example.com"))
	assert.True(t, MatchDomain("*.example.com", "www.example.com"))
	assert.False(t, MatchDomain("*.example.com", "example.com"))
	assert.False(t, MatchDomain("*.example.com", "a.b.example.com"))
	assert.False(t, MatchDomain("example.com", "other.com"))
}
