package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestService creates a service backed by a miniredis world store.
func setupTestService(t *testing.T, opts Options) (*Service, *world.Client) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := world.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	if opts.Logger == nil {
		logger, _ := test.NewNullLogger()
		opts.Logger = logrus.NewEntry(logger)
	}
	return New(client, opts), client
}

func mustRoom(t *testing.T, store Store, name string) int {
	t.Helper()
	room, err := store.CreateRoom(context.Background(), name, attr.Map{})
	require.NoError(t, err)
	id, err := room.ID()
	require.NoError(t, err)
	return id
}

func mustExit(t *testing.T, store Store, name string, from, to int) int {
	t.Helper()
	exit, err := store.CreateExit(context.Background(), name, from, to)
	require.NoError(t, err)
	id, err := exit.ID()
	require.NoError(t, err)
	return id
}

// failingStore wraps a Store and fails selected writes.
type failingStore struct {
	Store
	saveErr error
	attrErr error
}

func (f *failingStore) SaveRoom(ctx context.Context, room *world.Room) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.SaveRoom(ctx, room)
}

func (f *failingStore) SetRoomAttribute(ctx context.Context, id int, key string, value attr.Value) error {
	if f.attrErr != nil {
		return f.attrErr
	}
	return f.Store.SetRoomAttribute(ctx, id, key, value)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, mode)

	mode, err = ParseMode("global")
	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, mode)

	_, err = ParseMode("sideways")
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	svc, _ := setupTestService(t, Options{})
	assert.Equal(t, ModeLocal, svc.Mode())
	assert.NotNil(t, svc.Commands())
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestAsKind(t *testing.T) {
	classified := world.NewError(world.KindNotFound, "get room #1", nil)
	assert.Same(t, classified, asKind(world.KindPersistence, "x", classified))

	plain := errors.New("disk full")
	err := asKind(world.KindPersistence, "save", plain)
	assert.ErrorIs(t, err, world.ErrPersistence)
	assert.ErrorIs(t, err, plain)
}
