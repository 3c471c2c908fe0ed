package push

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedisContainer starts a Redis container for guard tests.
func startRedisContainer(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port()),
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisGuardIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	client := startRedisContainer(ctx, t)
	guard := NewRedisGuard(client, time.Minute)

	t.Run("First delivery passes", func(t *testing.T) {
		first, err := guard.FirstDelivery(ctx, "evt-first")
		require.NoError(t, err)
		assert.True(t, first)
	})

	t.Run("Redelivery is recognized", func(t *testing.T) {
		first, err := guard.FirstDelivery(ctx, "evt-dup")
		require.NoError(t, err)
		assert.True(t, first)

		first, err = guard.FirstDelivery(ctx, "evt-dup")
		require.NoError(t, err)
		assert.False(t, first)
	})

	t.Run("Distinct events do not collide", func(t *testing.T) {
		firstA, err := guard.FirstDelivery(ctx, "evt-a")
		require.NoError(t, err)
		firstB, err2 := guard.FirstDelivery(ctx, "evt-b")
		require.NoError(t, err2)
		assert.True(t, firstA)
		assert.True(t, firstB)
	})

	t.Run("Marker expires after TTL", func(t *testing.T) {
		shortGuard := NewRedisGuard(client, time.Second)

		first, err := shortGuard.FirstDelivery(ctx, "evt-ttl")
		require.NoError(t, err)
		assert.True(t, first)

		time.Sleep(2 * time.Second)

		first, err = shortGuard.FirstDelivery(ctx, "evt-ttl")
		require.NoError(t, err)
		assert.True(t, first)
	})
}
