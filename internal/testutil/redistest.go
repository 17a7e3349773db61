package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisTest returns a client on an empty Redis database and a cleanup
// function. REDIS_URL selects an existing server; otherwise, with
// PGTEST_CONTAINER=1, a redis container is started. With neither the test
// is skipped.
func RedisTest(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	ctx := context.Background()

	redisURL := os.Getenv("REDIS_URL")
	stopContainer := func() {}
	if redisURL == "" {
		if os.Getenv("PGTEST_CONTAINER") != "1" {
			t.Skip("REDIS_URL not set and PGTEST_CONTAINER!=1, skipping integration test")
		}
		redisURL, stopContainer = startRedis(ctx, t)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		stopContainer()
		t.Fatalf("redistest: parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		stopContainer()
		t.Fatalf("redistest: connect: %v", err)
	}
	_ = client.FlushDB(ctx).Err()

	return client, func() {
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
		stopContainer()
	}
}

func startRedis(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("redistest: start redis container: %v", err)
	}
	stop := func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("redistest: terminate container: %v", err)
		}
	}

	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		stop()
		t.Fatalf("redistest: container endpoint: %v", err)
	}
	return "redis://" + endpoint + "/0", stop
}
