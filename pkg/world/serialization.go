package world

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/warren/pkg/attr"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Tags and attributes
// are JSON-encoded into single hash fields; attributes use the wire form of
// package attr so container values keep their type.

// RoomToHash converts a Room struct to a Redis hash format.
func RoomToHash(r *Room) (map[string]interface{}, error) {
	tagsJSON, err := EncodeTags(r.Tags)
	if err != nil {
		return nil, err
	}

	attributesJSON, err := json.Marshal(r.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	return map[string]interface{}{
		"dbref":         string(r.Ref),
		"name":          r.Name,
		"tags":          tagsJSON,
		"attributes":    string(attributesJSON),
		"created_at_ms": r.CreatedAtMs,
		"updated_at_ms": r.UpdatedAtMs,
	}, nil
}

// HashToRoom converts a Redis hash to a Room struct.
func HashToRoom(hash map[string]string) (*Room, error) {
	tags, err := DecodeTags(hash["tags"])
	if err != nil {
		return nil, err
	}

	attributes, err := DecodeAttributes(hash["attributes"])
	if err != nil {
		return nil, err
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &Room{
		Ref:         Ref(hash["dbref"]),
		Name:        hash["name"],
		Tags:        tags,
		Attributes:  attributes,
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}, nil
}

// ExitToHash converts an Exit struct to a Redis hash format.
func ExitToHash(e *Exit) (map[string]interface{}, error) {
	attributesJSON, err := json.Marshal(e.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	return map[string]interface{}{
		"dbref":          string(e.Ref),
		"name":           e.Name,
		"location_id":    e.LocationID,
		"destination_id": e.DestinationID,
		"attributes":     string(attributesJSON),
		"created_at_ms":  e.CreatedAtMs,
		"updated_at_ms":  e.UpdatedAtMs,
	}, nil
}

// HashToExit converts a Redis hash to an Exit struct.
func HashToExit(hash map[string]string) (*Exit, error) {
	locationID, err := strconv.Atoi(hash["location_id"])
	if err != nil {
		return nil, fmt.Errorf("invalid location_id field: %w", err)
	}

	destinationID, err := strconv.Atoi(hash["destination_id"])
	if err != nil {
		return nil, fmt.Errorf("invalid destination_id field: %w", err)
	}

	attributes, err := DecodeAttributes(hash["attributes"])
	if err != nil {
		return nil, err
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &Exit{
		Ref:           Ref(hash["dbref"]),
		Name:          hash["name"],
		LocationID:    locationID,
		DestinationID: destinationID,
		Attributes:    attributes,
		CreatedAtMs:   createdAtMs,
		UpdatedAtMs:   updatedAtMs,
	}, nil
}

// EncodeTags encodes a tag set for storage. A nil set is stored as {}.
func EncodeTags(tags map[string]string) (string, error) {
	if tags == nil {
		tags = map[string]string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(data), nil
}

// DecodeTags is the inverse of EncodeTags. It always returns a non-nil map.
func DecodeTags(raw string) (map[string]string, error) {
	tags := map[string]string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return tags, nil
}

// DecodeAttributes decodes a stored attribute column. An empty column is an
// empty set.
func DecodeAttributes(raw string) (attr.Map, error) {
	var attributes attr.Map
	if raw == "" {
		return attributes, nil
	}
	if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
		return attr.Map{}, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	return attributes, nil
}
