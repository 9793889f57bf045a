package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorCacheStartsAtPageZero(t *testing.T) {
	cache := NewCursorCache()

	token, ok := cache.Token(0)
	assert.True(t, ok)
	assert.Empty(t, token)

	_, ok = cache.Token(3)
	assert.False(t, ok)
}

func TestCursorCacheNearestBelow(t *testing.T) {
	cache := NewCursorCache()
	cache.Store(1, "tok-1")
	cache.Store(2, "tok-2")
	cache.Store(5, "tok-5")

	tests := []struct {
		target    int
		wantPage  int
		wantToken string
	}{
		{target: 0, wantPage: 0, wantToken: ""},
		{target: 1, wantPage: 1, wantToken: "tok-1"},
		{target: 2, wantPage: 2, wantToken: "tok-2"},
		{target: 3, wantPage: 2, wantToken: "tok-2"},
		{target: 4, wantPage: 2, wantToken: "tok-2"},
		{target: 5, wantPage: 5, wantToken: "tok-5"},
		{target: 9, wantPage: 5, wantToken: "tok-5"},
	}

	for _, tt := range tests {
		page, token := cache.NearestBelow(tt.target)
		assert.Equal(t, tt.wantPage, page, "target %d", tt.target)
		assert.Equal(t, tt.wantToken, token, "target %d", tt.target)
	}
}
