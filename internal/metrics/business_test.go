package metrics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func TestNewBusinessMetrics(t *testing.T) {
	t.Run("Success_CreateBusinessMetrics", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)

		businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)
	})
}

func TestBusinessMetrics_RecordOperation(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulOperation", func(t *testing.T) {
		// Should not panic
		bm.RecordOperation(context.Background(), "secrets_group", "secret_create", "success")
	})

	t.Run("Success_RecordFailedOperation", func(t *testing.T) {
		// Should not panic
		bm.RecordOperation(context.Background(), "secrets_group", "secret_create", "error")
	})

	t.Run("Success_RecordMultipleDomains", func(t *testing.T) {
		bm.RecordOperation(context.Background(), "secrets_group", "secret_create", "success")
		bm.RecordOperation(context.Background(), "secrets_group", "secret_get_latest", "success")
		bm.RecordOperation(context.Background(), "secrets_group", "secret_delete", "error")
	})
}

func TestBusinessMetrics_RecordDuration(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulDuration", func(t *testing.T) {
		// Should not panic
		bm.RecordDuration(context.Background(), "secrets_group", "secret_create", 123*time.Millisecond, "success")
	})

	t.Run("Success_RecordFailedDuration", func(t *testing.T) {
		// Should not panic
		bm.RecordDuration(context.Background(), "secrets_group", "secret_create", 456*time.Millisecond, "error")
	})

	t.Run("Success_RecordMultipleDomains", func(t *testing.T) {
		bm.RecordDuration(context.Background(), "secrets_group", "secret_create", 100*time.Millisecond, "success")
		bm.RecordDuration(context.Background(), "secrets_group", "secret_get_latest", 200*time.Millisecond, "success")
		bm.RecordDuration(context.Background(), "secrets_group", "secret_delete", 300*time.Millisecond, "error")
	})
}

func TestBusinessMetrics_GroupAttributes(t *testing.T) {
	provider, err := NewProvider("group_test")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "group_test", GroupAttributes("eu-west-1", "payments")...)
	require.NoError(t, err)

	bm.RecordOperation(context.Background(), "secrets_group", "create", "success")
	bm.RecordDuration(context.Background(), "secrets_group", "create", 5*time.Millisecond, "success")

	var buf bytes.Buffer
	require.NoError(t, provider.WriteText(&buf))
	output := buf.String()

	assertBizMetricLine(t, output, `group_test_operations_total`,
		`secrets_group_name="payments".*secrets_group_region="eu-west-1"`, `1`)
	assertBizMetricLine(t, output, `group_test_operation_duration_seconds_count`,
		`secrets_group_name="payments".*secrets_group_region="eu-west-1"`, `1`)
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.NotNil(t, noOpMetrics)
	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)

	t.Run("NoOp_RecordOperationDoesNotPanic", func(t *testing.T) {
		// Should not panic or do anything
		noOpMetrics.RecordOperation(context.Background(), "secrets_group", "secret_create", "success")
		noOpMetrics.RecordOperation(context.Background(), "secrets_group", "secret_get_latest", "error")
	})

	t.Run("NoOp_RecordDurationDoesNotPanic", func(t *testing.T) {
		// Should not panic or do anything
		noOpMetrics.RecordDuration(
			context.Background(),
			"secrets_group",
			"secret_create",
			100*time.Millisecond,
			"success",
		)
		noOpMetrics.RecordDuration(context.Background(), "secrets_group", "secret_get_latest", 200*time.Millisecond, "error")
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	// Record various operations
	ctx := context.Background()

	// Record operation counts
	bm.RecordOperation(ctx, "secrets_group", "secret_create", "success")
	bm.RecordOperation(ctx, "secrets_group", "secret_create", "success")
	bm.RecordOperation(ctx, "secrets_group", "secret_create", "error")
	bm.RecordOperation(ctx, "secrets_group", "secret_get_latest", "success")
	bm.RecordOperation(ctx, "secrets_group", "secret_decrypt", "success")
	bm.RecordOperation(ctx, "secrets_group", "secret_delete", "success")

	// Record operation durations
	bm.RecordDuration(ctx, "secrets_group", "secret_create", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "secrets_group", "secret_create", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "secrets_group", "secret_create", 100*time.Millisecond, "error")
	bm.RecordDuration(ctx, "secrets_group", "secret_get_latest", 10*time.Millisecond, "success")
	bm.RecordDuration(ctx, "secrets_group", "secret_decrypt", 20*time.Millisecond, "success")
	bm.RecordDuration(ctx, "secrets_group", "secret_delete", 150*time.Millisecond, "success")

	// Metrics should be recorded without errors
	// Verify metrics in Prometheus registry
	var buf bytes.Buffer
	require.NoError(t, provider.WriteText(&buf))

	output := buf.String()

	// Check operation counts
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="secrets_group".*operation="secret_create".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="secrets_group".*operation="secret_create".*status="error"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="secrets_group".*operation="secret_get_latest".*status="success"`,
		`1`,
	)

	// Check durations (existence)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_count`,
		`domain="secrets_group".*operation="secret_create".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_sum`,
		`domain="secrets_group".*operation="secret_create".*status="success"`,
		``,
	)
}
