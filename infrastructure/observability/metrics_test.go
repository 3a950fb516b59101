package observability

import (
	"context"
	"testing"

	"leveler/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_NilIsSafe(t *testing.T) {
	var mp *MetricsProvider

	assert.NotPanics(t, func() {
		mp.RecordActivity("message")
		mp.RecordXPGrant("message", 10)
		mp.RecordLevelUp("message")
		mp.RecordLeaderChange()
		mp.RecordRoleFailure(RoleOperationAdd, "permission_denied")
		mp.RecordCheckDropped()
		mp.RecordNATSMessagePublished("level_up")
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_NoneExporterDoesNotRecord(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "none"

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))

	assert.False(t, mp.isEnabled())
	assert.NotPanics(t, func() {
		mp.RecordXPGrant("admin_add", 5)
		mp.RecordCheckDropped()
	})
}

func TestMetricsProvider_ConsoleExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "console"
	cfg.OTelExportIntervalMillis = 60000

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	assert.True(t, mp.isEnabled())
	assert.NotPanics(t, func() {
		mp.RecordActivity("reaction_add")
		mp.RecordXPGrant("reaction", 7)
		mp.RecordLevelUp("reaction")
		mp.RecordLeaderChange()
	})
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"

	err := NewMetricsProvider(cfg).Initialize(context.Background())
	assert.Error(t, err)
}
