// Package roster renders the rooms of a world for the CLI.
package roster

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dyluth/warren/internal/filter"
	"github.com/dyluth/warren/pkg/world"
)

// OutputFormat specifies how to format the room list output.
type OutputFormat string

const (
	// OutputFormatDefault renders a table with truncated descriptions
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs one complete room per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Source is the subset of the store the roster reads.
type Source interface {
	ListRooms(ctx context.Context) ([]*world.Room, error)
	RoomExits(ctx context.Context, roomID int) ([]*world.Exit, error)
}

// Entry is one listed room with its outbound exit count.
type Entry struct {
	Room  *world.Room
	Exits int
}

// ListRooms writes every room of src that passes filters to w, ordered by id.
// A room whose exits cannot be loaded is listed with a warning on stderr.
func ListRooms(ctx context.Context, src Source, instanceName string, format OutputFormat, filters *filter.Criteria, w io.Writer) error {
	rooms, err := src.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	entries := make([]Entry, 0, len(rooms))
	for _, room := range rooms {
		if filters != nil && !filters.Matches(room) {
			continue
		}

		entry := Entry{Room: room, Exits: -1}
		if id, err := room.ID(); err == nil {
			exits, err := src.RoomExits(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Could not load exits: room=%d (error: %v)\n", id, err)
			} else {
				entry.Exits = len(exits)
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, _ := entries[i].Room.ID()
		b, _ := entries[j].Room.ID()
		return a < b
	})

	switch format {
	case OutputFormatDefault:
		return FormatTable(w, entries, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
