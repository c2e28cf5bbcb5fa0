// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/common/config"
	"research-assistant/internal/common/errors"
)

func testClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		GatewayAddress: "localhost:26500",
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 5000})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultRetryConfig, cfg.RetryConfig)
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg       string
		retryable bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"rpc error: code = InvalidArgument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableZeebeError(fmt.Errorf("%s", tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	c := testClient(0)

	timeout := c.mapZeebeError(fmt.Errorf("context deadline exceeded"), "complete", 0)
	assert.True(t, errors.HasCode(timeout, "TIMEOUT_ERROR"))

	unavailable := c.mapZeebeError(fmt.Errorf("connection refused"), "topology", 2)
	stdErr, ok := errors.As(unavailable)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeBrokerUnavailable, stdErr.Code)
	assert.Equal(t, "localhost:26500", stdErr.Metadata["brokerAddress"])
	assert.Contains(t, stdErr.Details, "after 3 attempts")

	other := c.mapZeebeError(fmt.Errorf("job not found"), "complete", 0)
	assert.True(t, errors.HasCode(other, errors.ErrCodeInternal))
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		result, err := testClient(3).ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			calls++
			if calls < 3 {
				return nil, fmt.Errorf("unavailable")
			}
			return "ok", nil
		}, "publish")

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		_, err := testClient(3).ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			calls++
			return nil, fmt.Errorf("invalid argument")
		}, "publish")

		assert.True(t, errors.HasCode(err, errors.ErrCodeInternal))
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := testClient(2).ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
			calls++
			return nil, fmt.Errorf("connection reset")
		}, "publish")

		assert.True(t, errors.HasCode(err, errors.ErrCodeBrokerUnavailable))
		assert.Equal(t, 3, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := testClient(5)
		c.config.RetryConfig.BaseDelay = time.Second
		c.config.RetryConfig.MaxDelay = time.Second

		_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
			cancel()
			return nil, fmt.Errorf("unavailable")
		}, "publish")

		assert.ErrorIs(t, err, context.Canceled)
	})
}
