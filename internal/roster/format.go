package roster

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/olekukonko/tablewriter"
)

// FormatTable writes entries as a table with columns ID, NAME, EXITS, TAGS,
// UPDATED and DESCRIPTION (truncated).
func FormatTable(w io.Writer, entries []Entry, instanceName string) error {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No rooms found for instance '%s'\n", instanceName)
		return nil
	}

	fmt.Fprintf(w, "Rooms for instance '%s':\n\n", instanceName)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "NAME", "EXITS", "TAGS", "UPDATED", "DESCRIPTION"})
	for _, e := range entries {
		row := []string{
			formatID(e.Room),
			formatName(e.Room.Name),
			formatExits(e.Exits),
			formatTags(e.Room.Tags),
			formatTimestamp(e.Room.UpdatedAtMs),
			formatDescription(e.Room.Attributes),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	noun := "room"
	if len(entries) != 1 {
		noun = "rooms"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), noun)
	return nil
}

// jsonlRoom is the JSONL shape of a listed room.
type jsonlRoom struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Tags        map[string]string `json:"tags"`
	Attributes  attr.Wire         `json:"attributes"`
	Exits       int               `json:"exits"`
	CreatedAtMs int64             `json:"created_at_ms"`
	UpdatedAtMs int64             `json:"updated_at_ms"`
}

// FormatJSONL writes one JSON object per room, suitable for piping into jq.
// Attributes use the editor wire format.
func FormatJSONL(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		id, _ := e.Room.ID()
		data, err := json.Marshal(jsonlRoom{
			ID:          id,
			Name:        e.Room.Name,
			Tags:        e.Room.Tags,
			Attributes:  attr.Serialize(e.Room.Attributes),
			Exits:       e.Exits,
			CreatedAtMs: e.Room.CreatedAtMs,
			UpdatedAtMs: e.Room.UpdatedAtMs,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal room to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func formatID(room *world.Room) string {
	id, err := room.ID()
	if err != nil {
		return "?"
	}
	return strconv.Itoa(id)
}

func formatName(name string) string {
	if len(name) > 24 {
		return name[:21] + "..."
	}
	return name
}

// formatExits shows "?" when the exit count could not be loaded.
func formatExits(n int) string {
	if n < 0 {
		return "?"
	}
	return strconv.Itoa(n)
}

// formatTags renders tags as sorted key=value pairs; bare keys for empty values.
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if tags[k] == "" {
			parts = append(parts, k)
		} else {
			parts = append(parts, k+"="+tags[k])
		}
	}
	return strings.Join(parts, ",")
}

// formatDescription shows the first non-empty line of the desc attribute,
// truncated to 40 characters. Missing or non-string descriptions render "-".
func formatDescription(attributes attr.Map) string {
	v, ok := attributes.Get(world.DescAttribute)
	if !ok {
		return "-"
	}
	desc, ok := v.(attr.String)
	if !ok {
		return "-"
	}

	var firstLine string
	for _, line := range strings.Split(string(desc), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}

	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}
	return firstLine
}

// formatTimestamp renders a millisecond timestamp as relative time like "2m ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Since(time.UnixMilli(timestampMs))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
