package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

func TestRateLimitService_Allow(t *testing.T) {
	svc := NewRateLimitService(repository.NewMemoryRateLimitRepository(), logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := svc.Allow(ctx, "messages:alice", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := svc.Allow(ctx, "messages:alice", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Allow(ctx, "messages:bob", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimitService_ZeroLimitDisables(t *testing.T) {
	svc := NewRateLimitService(repository.NewMemoryRateLimitRepository(), logger.Nop())

	for i := 0; i < 10; i++ {
		ok, err := svc.Allow(context.Background(), "any", 0, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
