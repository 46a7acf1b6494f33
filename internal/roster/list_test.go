package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/warren/internal/filter"
	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T) *world.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := world.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func mustRoom(t *testing.T, client *world.Client, name, desc string) int {
	t.Helper()
	var attrs attr.Map
	if desc != "" {
		attrs.Set(world.DescAttribute, attr.String(desc))
	}
	room, err := client.CreateRoom(context.Background(), name, attrs)
	require.NoError(t, err)
	id, err := room.ID()
	require.NoError(t, err)
	return id
}

func TestListRooms(t *testing.T) {
	t.Run("empty world - default format", func(t *testing.T) {
		client := setupTestClient(t)

		var buf bytes.Buffer
		err := ListRooms(context.Background(), client, "test-instance", OutputFormatDefault, nil, &buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "No rooms found for instance 'test-instance'")
	})

	t.Run("empty world - JSONL format", func(t *testing.T) {
		client := setupTestClient(t)

		var buf bytes.Buffer
		err := ListRooms(context.Background(), client, "test-instance", OutputFormatJSONL, nil, &buf)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("table lists rooms with exit counts", func(t *testing.T) {
		client := setupTestClient(t)
		ctx := context.Background()
		hall := mustRoom(t, client, "Hall", "A draughty hall.\nPortraits line the walls.")
		cellar := mustRoom(t, client, "Cellar", "")
		_, err := client.CreateExit(ctx, "down", hall, cellar)
		require.NoError(t, err)
		_, err = client.CreateExit(ctx, "north", hall, hall)
		require.NoError(t, err)

		var buf bytes.Buffer
		err = ListRooms(ctx, client, "test-instance", OutputFormatDefault, nil, &buf)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "Rooms for instance 'test-instance'")
		assert.Contains(t, output, "Hall")
		assert.Contains(t, output, "A draughty hall.")
		assert.NotContains(t, output, "Portraits")
		assert.Contains(t, output, "2 rooms found")
		assert.Less(t, strings.Index(output, "Hall"), strings.Index(output, "Cellar"))
	})

	t.Run("JSONL emits one object per room", func(t *testing.T) {
		client := setupTestClient(t)
		ctx := context.Background()
		a := mustRoom(t, client, "A", "First.")
		b := mustRoom(t, client, "B", "")
		_, err := client.CreateExit(ctx, "east", a, b)
		require.NoError(t, err)

		var buf bytes.Buffer
		err = ListRooms(ctx, client, "test-instance", OutputFormatJSONL, nil, &buf)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		var first map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		assert.Equal(t, float64(a), first["id"])
		assert.Equal(t, "A", first["name"])
		assert.Equal(t, float64(1), first["exits"])
		assert.Equal(t, map[string]any{"desc": "First."}, first["attributes"])
	})

	t.Run("filters apply", func(t *testing.T) {
		client := setupTestClient(t)
		ctx := context.Background()
		mustRoom(t, client, "Wine Cellar", "")
		mustRoom(t, client, "Attic", "")

		var buf bytes.Buffer
		err := ListRooms(ctx, client, "test-instance", OutputFormatJSONL, &filter.Criteria{NameGlob: "*cellar"}, &buf)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], "Wine Cellar")
	})

	t.Run("unknown format", func(t *testing.T) {
		client := setupTestClient(t)
		err := ListRooms(context.Background(), client, "test-instance", OutputFormat("xml"), nil, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

type brokenExits struct {
	rooms []*world.Room
}

func (b brokenExits) ListRooms(ctx context.Context) ([]*world.Room, error) {
	return b.rooms, nil
}

func (b brokenExits) RoomExits(ctx context.Context, roomID int) ([]*world.Exit, error) {
	return nil, errors.New("exit index unavailable")
}

func TestListRooms_ExitLoadFailure(t *testing.T) {
	src := brokenExits{rooms: []*world.Room{{Ref: world.RefOf(3), Name: "Lonely"}}}

	var buf bytes.Buffer
	err := ListRooms(context.Background(), src, "test-instance", OutputFormatJSONL, nil, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"exits":-1`)
}

func TestListRooms_StoreFailure(t *testing.T) {
	client := setupTestClient(t)
	client.Close()

	err := ListRooms(context.Background(), client, "test-instance", OutputFormatDefault, nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to list rooms")
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("json")
	assert.Error(t, err)
}
