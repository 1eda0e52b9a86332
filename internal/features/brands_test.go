package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "ab", 1},
		{"amazon", "amazn", 1},
		{"paypal", "paypa1", 1},
		{"google", "g00gle", 2},
	}

	for _, tt := range tests {
		t.Run(tt.s1+" vs "+tt.s2, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshteinDistance(tt.s1, tt.s2))
		})
	}
}

func TestNormalizeHomographs(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"amaz0n", "amazon"},
		{"PayPa1", "paypal"},
		{"micr0s0ft", "microsoft"},
		{"rnicrosoft", "microsoft"},
		{"netvvork", "network"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHomographs(tt.input))
		})
	}
}

func TestSpoofedBrand(t *testing.T) {
	tests := []struct {
		domain   string
		expected string
	}{
		{"amaz0n-security.com", "amazon"},
		{"paypa1.com", "paypal"},
		{"amazn.com", "amazon"},
		{"amazon.com", ""},
		{"mail.amazon.com", ""},
		{"paypal.me", ""},
		{"example.com", ""},
		{"netflix.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.expected, spoofedBrand(tt.domain))
		})
	}
}

func TestIsBrandDomain(t *testing.T) {
	assert.True(t, isBrandDomain("paypal.com", "paypal"))
	assert.True(t, isBrandDomain("mail.paypal.com", "paypal"))
	assert.False(t, isBrandDomain("paypal.com.evil.example", "paypal"))
	assert.False(t, isBrandDomain("notpaypal.org", "paypal"))
}
