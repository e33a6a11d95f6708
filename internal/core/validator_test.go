package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorCovers(t *testing.T) {
	v := NewValidator()

	certDomains := []string{"example.com", "*.example.com"}
	assert.True(t, v.Covers(certDomains, "example.com"))
	assert.True(t, v.Covers(certDomains, "www.example.com"))
	assert.False(t, v.Covers(certDomains, "a.b.example.com"))
	assert.False(t, v.Covers(certDomains, "other.com"))
	assert.False(t, v.Covers(nil, "example.com"))
}
