package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macrofactor/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	cache := NewCache(client, "macro")
	ctx := context.Background()

	// When Redis is disabled, cache operations are no-ops
	require.NoError(t, cache.Set(ctx, "key", []float64{1, 2}, 0))

	var result []float64
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, result)
}

func TestSeriesKey(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "fred",
			got:      SeriesKey("fred", "DGS10", "2014-12-31", "2025-06-30"),
			expected: "series:fred:DGS10:2014-12-31:2025-06-30",
		},
		{
			name:     "nasdaq column selector",
			got:      SeriesKey("nasdaq", "QDL/FON:067651:open_interest", "2020-01-01", ""),
			expected: "series:nasdaq:QDL/FON_067651_open_interest:2020-01-01:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
