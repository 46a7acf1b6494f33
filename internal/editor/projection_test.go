package editor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRoom(t *testing.T) {
	svc, client := setupTestService(t, Options{})
	ctx := context.Background()

	hall := mustRoom(t, client, "Hall")
	yard := mustRoom(t, client, "Yard")
	exitID := mustExit(t, client, "out", hall, yard)

	stats := attr.NewMapping()
	stats.Set("hp", attr.Int(10))
	require.NoError(t, client.SetRoomAttribute(ctx, hall, "stats", stats))
	require.NoError(t, client.SetRoomAttribute(ctx, hall, "lit", attr.Bool(true)))

	view, err := svc.ProjectRoom(ctx, hall)
	require.NoError(t, err)
	assert.Equal(t, hall, view.ID)
	assert.Equal(t, "Hall", view.Name)
	assert.NotNil(t, view.Tags)

	wrapped, ok := view.Attributes.Get("stats")
	require.True(t, ok)
	tagged, ok := wrapped.(attr.Tagged)
	require.True(t, ok)
	assert.Equal(t, attr.TypeMapping, tagged.Type)

	lit, _ := view.Attributes.Get("lit")
	assert.Equal(t, attr.Bool(true), lit)

	require.Len(t, view.Exits, 1)
	assert.Equal(t, ExitView{
		ID:              exitID,
		Name:            "out",
		SourceName:      "Hall",
		SourceID:        hall,
		DestinationName: "Yard",
		DestinationID:   yard,
		Attributes:      attr.Serialize(attr.Map{}),
	}, view.Exits[0])

	body, err := json.Marshal(view)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": `+itoa(hall)+`,
		"attributes": {"stats": {"__type__": "_SaverDict", "data": {"hp": 10}}, "lit": true},
		"name": "Hall",
		"tags": {},
		"exits": [{
			"id": `+itoa(exitID)+`, "name": "out",
			"source_name": "Hall", "source_id": `+itoa(hall)+`,
			"destination_name": "Yard", "destination_id": `+itoa(yard)+`,
			"attributes": {}
		}]
	}`, string(body))
}

func TestProjectRoom_NotFound(t *testing.T) {
	svc, _ := setupTestService(t, Options{})
	_, err := svc.ProjectRoom(context.Background(), 404)
	assert.True(t, world.IsNotFound(err))
}

func TestProjectExits_Policies(t *testing.T) {
	svc, client := setupTestService(t, Options{})
	ctx := context.Background()

	hub := mustRoom(t, client, "Hub")
	a := mustRoom(t, client, "A")
	gone := mustRoom(t, client, "Gone")
	c := mustRoom(t, client, "C")
	mustExit(t, client, "a", hub, a)
	mustExit(t, client, "gone", hub, gone)
	mustExit(t, client, "c", hub, c)

	_, err := client.DeleteRoom(ctx, gone)
	require.NoError(t, err)

	room, err := client.GetRoom(ctx, hub)
	require.NoError(t, err)

	t.Run("best effort returns the prefix", func(t *testing.T) {
		views, err := svc.ProjectExits(ctx, room, BestEffort)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "a", views[0].Name)
	})

	t.Run("strict propagates", func(t *testing.T) {
		_, err := svc.ProjectExits(ctx, room, Strict)
		assert.True(t, world.IsNotFound(err))
	})

	t.Run("room projection uses best effort", func(t *testing.T) {
		view, err := svc.ProjectRoom(ctx, hub)
		require.NoError(t, err)
		assert.Len(t, view.Exits, 1)
	})

	t.Run("malformed room reference", func(t *testing.T) {
		broken := &world.Room{Ref: "hub", Name: "Hub"}
		views, err := svc.ProjectExits(ctx, broken, BestEffort)
		require.NoError(t, err)
		assert.Empty(t, views)

		_, err = svc.ProjectExits(ctx, broken, Strict)
		assert.ErrorIs(t, err, world.ErrSerialization)
	})
}

func TestProjectExit(t *testing.T) {
	svc, client := setupTestService(t, Options{})
	ctx := context.Background()

	a := mustRoom(t, client, "A")
	b := mustRoom(t, client, "B")
	exitID := mustExit(t, client, "east", a, b)

	view, err := svc.ProjectExit(ctx, exitID)
	require.NoError(t, err)
	assert.Equal(t, "A", view.SourceName)
	assert.Equal(t, "B", view.DestinationName)

	_, err = client.DeleteRoom(ctx, b)
	require.NoError(t, err)

	_, err = svc.ProjectExit(ctx, exitID)
	assert.True(t, world.IsNotFound(err))

	_, err = svc.ProjectExit(ctx, 9999)
	assert.True(t, world.IsNotFound(err))
}

func TestRoomNames(t *testing.T) {
	svc, client := setupTestService(t, Options{})
	ctx := context.Background()

	names, err := svc.RoomNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	a := mustRoom(t, client, "Attic")
	b := mustRoom(t, client, "Basement")

	names, err = svc.RoomNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RoomName{{ID: a, Name: "Attic"}, {ID: b, Name: "Basement"}}, names)
}
