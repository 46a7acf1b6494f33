//go:build integration

package editor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())

	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	}

	return redisURL, cleanup
}

func TestService_AgainstRedis(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	client, err := world.NewClient(opts, "integration")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Ping(ctx))

	logger, _ := test.NewNullLogger()
	svc := New(client, Options{Logger: logrus.NewEntry(logger)})

	sub, err := client.SubscribeEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	desc := "The front door."
	entrance, err := svc.CreateRoom(ctx, RoomInput{Name: "Entrance", Desc: &desc})
	require.NoError(t, err)
	yard, err := svc.CreateRoom(ctx, RoomInput{Name: "Yard"})
	require.NoError(t, err)

	out, err := svc.CreateExit(ctx, ExitInput{Name: "out", SourceID: entrance.ID, DestinationID: yard.ID})
	require.NoError(t, err)
	_, err = svc.CreateExit(ctx, ExitInput{Name: "in", SourceID: yard.ID, DestinationID: entrance.ID})
	require.NoError(t, err)

	t.Run("graph", func(t *testing.T) {
		graph, err := svc.BuildGraph(ctx, entrance.ID, 2)
		require.NoError(t, err)
		assert.Len(t, graph.Rooms, 2)
		assert.Len(t, graph.Exits, 2)
	})

	t.Run("upsert keeps ordered attributes", func(t *testing.T) {
		var attrs attr.Map
		attrs.Set("lit", attr.Bool(true))
		view, err := svc.UpsertRoom(ctx, entrance.ID, RoomInput{Name: "Entrance", Attributes: attrs, Tags: map[string]string{"zone": "keep"}})
		require.NoError(t, err)
		assert.Equal(t, []string{world.DescAttribute, "lit", "zone"}, view.Attributes.Keys())
	})

	t.Run("walk by name", func(t *testing.T) {
		command, ok, err := svc.Commands().Resolve(ctx, entrance.ID, "OUT")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, out.ID, command.ExitID)
		assert.Equal(t, yard.ID, command.DestinationID)
	})

	t.Run("events published", func(t *testing.T) {
		select {
		case event := <-sub.Events():
			assert.Equal(t, world.EventRoomCreated, event.Kind)
			assert.Equal(t, entrance.ID, event.EntityID)
		case <-time.After(5 * time.Second):
			t.Fatal("no world event received")
		}
	})

	t.Run("delete room removes its exits", func(t *testing.T) {
		require.NoError(t, svc.DeleteRoom(ctx, entrance.ID))

		_, err := client.GetExit(ctx, out.ID)
		assert.True(t, world.IsNotFound(err))

		_, ok, err := svc.Commands().Resolve(ctx, entrance.ID, "out")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
