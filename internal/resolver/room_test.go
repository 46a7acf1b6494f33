package resolver

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFinder(t *testing.T, names ...string) (*world.Client, []int) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := world.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ids := make([]int, 0, len(names))
	for _, name := range names {
		room, err := client.CreateRoom(context.Background(), name, attr.Map{})
		require.NoError(t, err)
		id, err := room.ID()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return client, ids
}

func TestResolveRoom(t *testing.T) {
	client, ids := setupFinder(t, "Hall", "Hallway", "Cellar", "Cellar Stairs", "Attic", "attic")
	ctx := context.Background()

	t.Run("numeric id", func(t *testing.T) {
		id, err := ResolveRoom(ctx, client, itoa(ids[2]))
		require.NoError(t, err)
		assert.Equal(t, ids[2], id)
	})

	t.Run("unknown numeric id", func(t *testing.T) {
		_, err := ResolveRoom(ctx, client, "999")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("exact name beats prefix", func(t *testing.T) {
		id, err := ResolveRoom(ctx, client, "hall")
		require.NoError(t, err)
		assert.Equal(t, ids[0], id)
	})

	t.Run("unique prefix", func(t *testing.T) {
		id, err := ResolveRoom(ctx, client, "hallw")
		require.NoError(t, err)
		assert.Equal(t, ids[1], id)
	})

	t.Run("ambiguous exact", func(t *testing.T) {
		_, err := ResolveRoom(ctx, client, "ATTIC")
		require.True(t, IsAmbiguousError(err))

		msg := FormatAmbiguousError(err.(*AmbiguousError))
		assert.Contains(t, msg, "matches 2 rooms")
		assert.Contains(t, msg, "#"+itoa(ids[4])+" Attic")
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveRoom(ctx, client, "garden")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ResolveRoom(ctx, client, " ")
		assert.Error(t, err)
		assert.False(t, IsNotFoundError(err))
	})
}

func TestFormatAmbiguousError_Truncates(t *testing.T) {
	matches := make([]Match, 12)
	for i := range matches {
		matches[i] = Match{ID: i + 1, Name: "Room"}
	}
	msg := FormatAmbiguousError(&AmbiguousError{Query: "room", Matches: matches})
	assert.Contains(t, msg, "...and 2 more")
	assert.NotContains(t, msg, "#11 ")
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func TestResolveRoom_CaseFolding(t *testing.T) {
	client, ids := setupFinder(t, "Große Halle")

	id, err := ResolveRoom(context.Background(), client, "GROSSE")
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)
}
