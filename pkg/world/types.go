package world

import (
	"fmt"
	"strings"

	"github.com/dyluth/warren/pkg/attr"
)

// DescAttribute is the reserved attribute key holding a room's description.
const DescAttribute = "desc"

// Room is a persisted node in the world graph.
type Room struct {
	Ref         Ref               `json:"dbref"`         // Reference token; the room id is derived from it
	Name        string            `json:"name"`          // Display name
	Tags        map[string]string `json:"tags"`          // Tag name → value
	Attributes  attr.Map          `json:"attributes"`    // Ordered attribute set
	CreatedAtMs int64             `json:"created_at_ms"` // Unix timestamp in milliseconds
	UpdatedAtMs int64             `json:"updated_at_ms"` // Unix timestamp in milliseconds of the last save
}

// ID decodes the room's numeric id from its reference token.
func (r *Room) ID() (int, error) {
	return r.Ref.ID()
}

// Validate checks if the Room has valid field values.
func (r *Room) Validate() error {
	if _, err := r.Ref.ID(); err != nil {
		return fmt.Errorf("invalid room reference: %w", err)
	}
	return ValidateName(r.Name)
}

// Exit is a persisted directed edge owned by its source room (location).
type Exit struct {
	Ref           Ref      `json:"dbref"`
	Name          string   `json:"name"`
	LocationID    int      `json:"location_id"`    // Source room id
	DestinationID int      `json:"destination_id"` // Destination room id
	Attributes    attr.Map `json:"attributes"`
	CreatedAtMs   int64    `json:"created_at_ms"`
	UpdatedAtMs   int64    `json:"updated_at_ms"`
}

// ID decodes the exit's numeric id from its reference token.
func (e *Exit) ID() (int, error) {
	return e.Ref.ID()
}

// Validate checks if the Exit has valid field values.
func (e *Exit) Validate() error {
	if _, err := e.Ref.ID(); err != nil {
		return fmt.Errorf("invalid exit reference: %w", err)
	}
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if e.LocationID <= 0 {
		return fmt.Errorf("invalid location id: %d", e.LocationID)
	}
	if e.DestinationID <= 0 {
		return fmt.Errorf("invalid destination id: %d", e.DestinationID)
	}
	return nil
}

// ValidateName rejects blank entity names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

// EventKind identifies what happened to an entity.
type EventKind string

const (
	EventRoomCreated EventKind = "room_created"
	EventRoomUpdated EventKind = "room_updated"
	EventRoomDeleted EventKind = "room_deleted"
	EventExitCreated EventKind = "exit_created"
	EventExitUpdated EventKind = "exit_updated"
	EventExitDeleted EventKind = "exit_deleted"
)

// Event is published on the world events channel after every mutation.
type Event struct {
	ID       string    `json:"id"` // UUID of the event itself
	Kind     EventKind `json:"kind"`
	EntityID int       `json:"entity_id"`
	Name     string    `json:"name,omitempty"`
	AtMs     int64     `json:"at_ms"`
}
