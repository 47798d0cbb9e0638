package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		t.Setenv("EVENT_PARTITIONS", "")
		t.Setenv("EVENT_CONSUMER_PARTITIONS", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.EventPartitions)
		assert.Equal(t, []int{0}, cfg.EventConsumerPartitions)
		assert.Equal(t, "@every 10s", cfg.OutboxRelaySpec)
	})

	t.Run("Should read overrides", func(t *testing.T) {
		t.Setenv("EVENT_PARTITIONS", "4")
		t.Setenv("EVENT_CONSUMER_PARTITIONS", "1, 3,x")
		t.Setenv("EVENT_CLAIM_IDLE", "90s")
		t.Setenv("RECONCILE_ON_STARTUP", "false")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.EventPartitions)
		assert.Equal(t, []int{1, 3}, cfg.EventConsumerPartitions)
		assert.Equal(t, 90*time.Second, cfg.EventClaimIdle)
		assert.False(t, cfg.ReconcileOnStartup)
	})

	t.Run("Should fall back on invalid numbers", func(t *testing.T) {
		t.Setenv("EVENT_MAX_DELIVERIES", "lots")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.EventMaxDeliveries)
	})
}
