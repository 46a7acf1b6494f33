package world

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// several worlds can share one Redis server.
//
// Key pattern: warren:{instance_name}:{entity}:{id}
// Channel pattern: warren:{instance_name}:world_events

// RoomKey returns the Redis key for a room hash.
// Pattern: warren:{instance_name}:room:{room_id}
func RoomKey(instanceName string, roomID int) string {
	return fmt.Sprintf("warren:%s:room:%d", instanceName, roomID)
}

// RoomExitsKey returns the Redis key for the ZSET of exits owned by a room.
// Members are exit ids scored by id, so iteration follows creation order.
// Pattern: warren:{instance_name}:room:{room_id}:exits
func RoomExitsKey(instanceName string, roomID int) string {
	return fmt.Sprintf("warren:%s:room:%d:exits", instanceName, roomID)
}

// RoomIndexKey returns the Redis key for the ZSET of all room ids.
// Pattern: warren:{instance_name}:rooms
func RoomIndexKey(instanceName string) string {
	return fmt.Sprintf("warren:%s:rooms", instanceName)
}

// ExitKey returns the Redis key for an exit hash.
// Pattern: warren:{instance_name}:exit:{exit_id}
func ExitKey(instanceName string, exitID int) string {
	return fmt.Sprintf("warren:%s:exit:%d", instanceName, exitID)
}

// NextIDKey returns the Redis key of the counter that allocates entity ids.
// Rooms and exits share it.
// Pattern: warren:{instance_name}:next_id
func NextIDKey(instanceName string) string {
	return fmt.Sprintf("warren:%s:next_id", instanceName)
}

// WorldEventsChannel returns the Pub/Sub channel name for world events.
// Pattern: warren:{instance_name}:world_events
func WorldEventsChannel(instanceName string) string {
	return fmt.Sprintf("warren:%s:world_events", instanceName)
}
