// Package world provides the persistent object store for the warren world
// graph and the Redis schema it lives in.
//
// # Core Concepts
//
// Rooms are the nodes of the graph. Each room has a display name, a tag set
// and an ordered attribute set (see package attr).
//
// Exits are directed edges. An exit is owned by its source room (its
// location) and leads to exactly one destination room. Both rooms must exist
// when the exit is created or re-pointed.
//
// Rooms and exits share one id space. An entity's id is carried as a
// reference token "#<n>" (Ref); ParseRef fails loudly on anything else.
//
// # Redis Schema
//
// All keys follow the pattern: warren:{instance_name}:{entity}:{id}
//
// Rooms: warren:{instance_name}:room:{room_id} (hash)
// Room exits: warren:{instance_name}:room:{room_id}:exits (ZSET scored by exit id)
// Room index: warren:{instance_name}:rooms (ZSET)
// Exits: warren:{instance_name}:exit:{exit_id} (hash)
// Id counter: warren:{instance_name}:next_id
//
// Every mutation publishes an Event on warren:{instance_name}:world_events.
//
// # Errors
//
// Operations return *Error values classified by Kind. Use errors.Is with the
// sentinels (ErrNotFound, ErrCreation, ...) or KindOf to branch on them.
package world
