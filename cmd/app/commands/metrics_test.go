package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
)

type MockMetricsPusher struct {
	mock.Mock
}

func (m *MockMetricsPusher) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	return m.Called(ctx, url, job, grouping).Error(0)
}

func TestPushMetrics(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	grouping := map[string]string{"region": "us-east-1", "group": "platform"}

	t.Run("success", func(t *testing.T) {
		pusher := &MockMetricsPusher{}
		pusher.On("Push", ctx, "http://pushgateway:9091", "secretsgroup", grouping).Return(nil)

		PushMetrics(ctx, pusher, logger, "http://pushgateway:9091", "secretsgroup", "us-east-1", "platform")
		pusher.AssertExpectations(t)
	})

	t.Run("failure-is-logged", func(t *testing.T) {
		pusher := &MockMetricsPusher{}
		pusher.On("Push", ctx, "http://pushgateway:9091", "secretsgroup", grouping).
			Return(errors.New("connection refused"))

		PushMetrics(ctx, pusher, logger, "http://pushgateway:9091", "secretsgroup", "us-east-1", "platform")
		pusher.AssertExpectations(t)
	})
}
