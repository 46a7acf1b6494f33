package world

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the world graph.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new world client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: world instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// RedisClient exposes the underlying Redis client for scans and tests.
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// InstanceName returns the namespace this client writes to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

func (c *Client) nextID(ctx context.Context) (int, error) {
	id, err := c.rdb.Incr(ctx, NextIDKey(c.instanceName)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	return int(id), nil
}

// CreateRoom allocates an id and writes a new room with the given name and
// initial attributes. A blank name is reported as a creation failure.
func (c *Client) CreateRoom(ctx context.Context, name string, attributes attr.Map) (*Room, error) {
	op := fmt.Sprintf("create room %q", name)
	if err := ValidateName(name); err != nil {
		return nil, NewError(KindCreation, op, err)
	}

	id, err := c.nextID(ctx)
	if err != nil {
		return nil, NewError(KindCreation, op, err)
	}

	now := time.Now().UnixMilli()
	room := &Room{
		Ref:         RefOf(id),
		Name:        name,
		Tags:        map[string]string{},
		Attributes:  attributes.Clone(),
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}

	hash, err := RoomToHash(room)
	if err != nil {
		return nil, NewError(KindSerialization, op, err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, RoomKey(c.instanceName, id), hash)
		pipe.ZAdd(ctx, RoomIndexKey(c.instanceName), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return nil, NewError(KindCreation, op, fmt.Errorf("failed to write room to Redis: %w", err))
	}

	if err := c.publish(ctx, EventRoomCreated, id, name); err != nil {
		return nil, NewError(KindPersistence, op, err)
	}

	return room, nil
}

// GetRoom retrieves a room by id.
// Returns an error matching ErrNotFound if the room doesn't exist.
func (c *Client) GetRoom(ctx context.Context, id int) (*Room, error) {
	op := fmt.Sprintf("get room %s", RefOf(id))

	hashData, err := c.rdb.HGetAll(ctx, RoomKey(c.instanceName, id)).Result()
	if err != nil {
		return nil, NewError(KindPersistence, op, fmt.Errorf("failed to read room from Redis: %w", err))
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, NewError(KindNotFound, op, redis.Nil)
	}

	room, err := HashToRoom(hashData)
	if err != nil {
		return nil, NewError(KindSerialization, op, err)
	}

	return room, nil
}

// RoomExists checks if a room exists without fetching it.
func (c *Client) RoomExists(ctx context.Context, id int) (bool, error) {
	exists, err := c.rdb.Exists(ctx, RoomKey(c.instanceName, id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room existence: %w", err)
	}
	return exists > 0, nil
}

// ListRooms returns every room ordered by id.
func (c *Client) ListRooms(ctx context.Context) ([]*Room, error) {
	members, err := c.rdb.ZRange(ctx, RoomIndexKey(c.instanceName), 0, -1).Result()
	if err != nil {
		return nil, NewError(KindPersistence, "list rooms", fmt.Errorf("failed to read room index: %w", err))
	}

	rooms := make([]*Room, 0, len(members))
	for _, member := range members {
		id, err := strconv.Atoi(member)
		if err != nil {
			return nil, NewError(KindSerialization, "list rooms", fmt.Errorf("invalid room index member %q", member))
		}
		room, err := c.GetRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// SaveRoom replaces the stored room with the given state (full HSET replacement)
// and stamps UpdatedAtMs. The room must still exist; the write runs under
// WATCH so a concurrent delete is not undone.
func (c *Client) SaveRoom(ctx context.Context, room *Room) error {
	op := fmt.Sprintf("save room %s", room.Ref)
	if err := room.Validate(); err != nil {
		return NewError(KindValidation, op, err)
	}
	id, _ := room.ID()

	room.UpdatedAtMs = time.Now().UnixMilli()
	hash, err := RoomToHash(room)
	if err != nil {
		return NewError(KindSerialization, op, err)
	}

	roomKey := RoomKey(c.instanceName, id)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, roomKey).Result()
		if err != nil {
			return NewError(KindPersistence, op, fmt.Errorf("failed to check room existence: %w", err))
		}
		if exists == 0 {
			return NewError(KindNotFound, op, redis.Nil)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, roomKey, hash)
			pipe.ZAdd(ctx, RoomIndexKey(c.instanceName), redis.Z{Score: float64(id), Member: id})
			return nil
		})
		if err != nil {
			return NewError(KindPersistence, op, fmt.Errorf("failed to update room in Redis: %w", err))
		}
		return nil
	}, roomKey)
	if err != nil {
		return err
	}

	if err := c.publish(ctx, EventRoomUpdated, id, room.Name); err != nil {
		return NewError(KindPersistence, op, err)
	}
	return nil
}

// SetRoomAttribute stores a single attribute on a room as its own write.
// The read-modify-write runs under WATCH so a concurrent save is not lost
// silently; a conflicting write makes this call fail rather than retry.
func (c *Client) SetRoomAttribute(ctx context.Context, id int, key string, value attr.Value) error {
	op := fmt.Sprintf("set attribute %q on room %s", key, RefOf(id))
	roomKey := RoomKey(c.instanceName, id)

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, roomKey, "attributes").Result()
		if errors.Is(err, redis.Nil) {
			return NewError(KindNotFound, op, err)
		}
		if err != nil {
			return NewError(KindPersistence, op, err)
		}

		attributes, err := DecodeAttributes(raw)
		if err != nil {
			return NewError(KindSerialization, op, err)
		}
		attributes.Set(key, value)

		encoded, err := json.Marshal(attributes)
		if err != nil {
			return NewError(KindSerialization, op, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, roomKey, "attributes", string(encoded), "updated_at_ms", time.Now().UnixMilli())
			return nil
		})
		if err != nil {
			return NewError(KindPersistence, op, err)
		}
		return nil
	}, roomKey)
	if err != nil {
		return err
	}

	return c.publish(ctx, EventRoomUpdated, id, "")
}

// DeleteRoom removes a room together with the exits it owns and returns the
// ids of the removed exits. Exits in other rooms that lead here are left in
// place and become dangling.
func (c *Client) DeleteRoom(ctx context.Context, id int) ([]int, error) {
	op := fmt.Sprintf("delete room %s", RefOf(id))

	exists, err := c.RoomExists(ctx, id)
	if err != nil {
		return nil, NewError(KindPersistence, op, err)
	}
	if !exists {
		return nil, NewError(KindNotFound, op, redis.Nil)
	}

	exitIDs, err := c.roomExitIDs(ctx, id)
	if err != nil {
		return nil, NewError(KindPersistence, op, err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, RoomKey(c.instanceName, id), RoomExitsKey(c.instanceName, id))
		pipe.ZRem(ctx, RoomIndexKey(c.instanceName), id)
		for _, exitID := range exitIDs {
			pipe.Del(ctx, ExitKey(c.instanceName, exitID))
		}
		return nil
	})
	if err != nil {
		return nil, NewError(KindPersistence, op, fmt.Errorf("failed to delete room from Redis: %w", err))
	}

	if err := c.publish(ctx, EventRoomDeleted, id, ""); err != nil {
		return exitIDs, NewError(KindPersistence, op, err)
	}
	return exitIDs, nil
}

// CreateExit writes a new exit owned by sourceID and leading to
// destinationID. Both rooms must exist. The exit hash and the owner's exit
// index are written in one MULTI/EXEC transaction.
func (c *Client) CreateExit(ctx context.Context, name string, sourceID, destinationID int) (*Exit, error) {
	op := fmt.Sprintf("create exit %q", name)

	if err := c.requireRooms(ctx, op, sourceID, destinationID); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, NewError(KindCreation, op, err)
	}

	id, err := c.nextID(ctx)
	if err != nil {
		return nil, NewError(KindCreation, op, err)
	}

	now := time.Now().UnixMilli()
	exit := &Exit{
		Ref:           RefOf(id),
		Name:          name,
		LocationID:    sourceID,
		DestinationID: destinationID,
		CreatedAtMs:   now,
		UpdatedAtMs:   now,
	}

	hash, err := ExitToHash(exit)
	if err != nil {
		return nil, NewError(KindSerialization, op, err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ExitKey(c.instanceName, id), hash)
		pipe.ZAdd(ctx, RoomExitsKey(c.instanceName, sourceID), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return nil, NewError(KindCreation, op, fmt.Errorf("failed to write exit to Redis: %w", err))
	}

	if err := c.publish(ctx, EventExitCreated, id, name); err != nil {
		return nil, NewError(KindPersistence, op, err)
	}
	return exit, nil
}

// GetExit retrieves an exit by id.
// Returns an error matching ErrNotFound if the exit doesn't exist.
func (c *Client) GetExit(ctx context.Context, id int) (*Exit, error) {
	op := fmt.Sprintf("get exit %s", RefOf(id))

	hashData, err := c.rdb.HGetAll(ctx, ExitKey(c.instanceName, id)).Result()
	if err != nil {
		return nil, NewError(KindPersistence, op, fmt.Errorf("failed to read exit from Redis: %w", err))
	}
	if len(hashData) == 0 {
		return nil, NewError(KindNotFound, op, redis.Nil)
	}

	exit, err := HashToExit(hashData)
	if err != nil {
		return nil, NewError(KindSerialization, op, err)
	}
	return exit, nil
}

// RoomExits returns the exits owned by a room in creation order.
func (c *Client) RoomExits(ctx context.Context, roomID int) ([]*Exit, error) {
	op := fmt.Sprintf("list exits of room %s", RefOf(roomID))

	ids, err := c.roomExitIDs(ctx, roomID)
	if err != nil {
		return nil, NewError(KindPersistence, op, err)
	}

	exits := make([]*Exit, 0, len(ids))
	for _, id := range ids {
		exit, err := c.GetExit(ctx, id)
		if err != nil {
			return exits, err
		}
		exits = append(exits, exit)
	}
	return exits, nil
}

func (c *Client) roomExitIDs(ctx context.Context, roomID int) ([]int, error) {
	members, err := c.rdb.ZRange(ctx, RoomExitsKey(c.instanceName, roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read exit index: %w", err)
	}
	ids := make([]int, 0, len(members))
	for _, member := range members {
		id, err := strconv.Atoi(member)
		if err != nil {
			return nil, fmt.Errorf("invalid exit index member %q", member)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveExit replaces the stored exit with the given state. If the exit's
// location changed, it is moved to the new owner's exit index in the same
// transaction. Both rooms must exist.
func (c *Client) SaveExit(ctx context.Context, exit *Exit) error {
	op := fmt.Sprintf("save exit %s", exit.Ref)
	if err := exit.Validate(); err != nil {
		return NewError(KindValidation, op, err)
	}
	id, _ := exit.ID()

	previous, err := c.rdb.HGet(ctx, ExitKey(c.instanceName, id), "location_id").Result()
	if errors.Is(err, redis.Nil) {
		return NewError(KindNotFound, op, err)
	}
	if err != nil {
		return NewError(KindPersistence, op, err)
	}
	previousLocation, err := strconv.Atoi(previous)
	if err != nil {
		return NewError(KindSerialization, op, fmt.Errorf("invalid location_id field: %w", err))
	}

	if err := c.requireRooms(ctx, op, exit.LocationID, exit.DestinationID); err != nil {
		return err
	}

	exit.UpdatedAtMs = time.Now().UnixMilli()
	hash, err := ExitToHash(exit)
	if err != nil {
		return NewError(KindSerialization, op, err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ExitKey(c.instanceName, id), hash)
		if previousLocation != exit.LocationID {
			pipe.ZRem(ctx, RoomExitsKey(c.instanceName, previousLocation), id)
			pipe.ZAdd(ctx, RoomExitsKey(c.instanceName, exit.LocationID), redis.Z{Score: float64(id), Member: id})
		}
		return nil
	})
	if err != nil {
		return NewError(KindPersistence, op, fmt.Errorf("failed to update exit in Redis: %w", err))
	}

	if err := c.publish(ctx, EventExitUpdated, id, exit.Name); err != nil {
		return NewError(KindPersistence, op, err)
	}
	return nil
}

// DeleteExit removes an exit and its entry in the owner's exit index.
func (c *Client) DeleteExit(ctx context.Context, id int) error {
	op := fmt.Sprintf("delete exit %s", RefOf(id))

	location, err := c.rdb.HGet(ctx, ExitKey(c.instanceName, id), "location_id").Result()
	if errors.Is(err, redis.Nil) {
		return NewError(KindNotFound, op, err)
	}
	if err != nil {
		return NewError(KindPersistence, op, err)
	}
	locationID, err := strconv.Atoi(location)
	if err != nil {
		return NewError(KindSerialization, op, fmt.Errorf("invalid location_id field: %w", err))
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, ExitKey(c.instanceName, id))
		pipe.ZRem(ctx, RoomExitsKey(c.instanceName, locationID), id)
		return nil
	})
	if err != nil {
		return NewError(KindPersistence, op, fmt.Errorf("failed to delete exit from Redis: %w", err))
	}

	if err := c.publish(ctx, EventExitDeleted, id, ""); err != nil {
		return NewError(KindPersistence, op, err)
	}
	return nil
}

// requireRooms returns a not-found error naming the first missing room.
func (c *Client) requireRooms(ctx context.Context, op string, ids ...int) error {
	for _, id := range ids {
		exists, err := c.RoomExists(ctx, id)
		if err != nil {
			return NewError(KindPersistence, op, err)
		}
		if !exists {
			return NewError(KindNotFound, op, fmt.Errorf("room %s does not exist", RefOf(id)))
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, kind EventKind, entityID int, name string) error {
	event := Event{
		ID:       uuid.New().String(),
		Kind:     kind,
		EntityID: entityID,
		Name:     name,
		AtMs:     time.Now().UnixMilli(),
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal world event: %w", err)
	}
	if err := c.rdb.Publish(ctx, WorldEventsChannel(c.instanceName), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish world event: %w", err)
	}
	return nil
}
