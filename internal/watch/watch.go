// Package watch streams world change events to the terminal.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/warren/pkg/world"
)

// OutputFormat specifies how events are written.
type OutputFormat string

const (
	// OutputFormatDefault prints one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON prints one JSON object per line
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// EventSource is satisfied by *world.Subscription.
type EventSource interface {
	Events() <-chan *world.Event
	Errors() <-chan error
}

// StreamEvents writes events from src to w until ctx is cancelled or the
// event channel closes. Malformed events are reported to errw and skipped.
func StreamEvents(ctx context.Context, src EventSource, format OutputFormat, w, errw io.Writer) error {
	if format != OutputFormatDefault && format != OutputFormatJSON {
		return fmt.Errorf("unknown output format: %s", format)
	}

	events := src.Events()
	errs := src.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(errw, "⚠️  %v\n", err)

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, event, format); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w io.Writer, event *world.Event, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	_, err := fmt.Fprintln(w, FormatEvent(event))
	return err
}

// FormatEvent renders an event as a single human-readable line.
func FormatEvent(event *world.Event) string {
	ts := "--:--:--"
	if event.AtMs > 0 {
		ts = time.UnixMilli(event.AtMs).Format("15:04:05")
	}

	line := fmt.Sprintf("[%s] %s %s #%d", ts, icon(event.Kind), describe(event.Kind), event.EntityID)
	if event.Name != "" {
		line += fmt.Sprintf(" %q", event.Name)
	}
	return line
}

func icon(kind world.EventKind) string {
	switch kind {
	case world.EventRoomCreated, world.EventRoomUpdated, world.EventRoomDeleted:
		return "🏠"
	case world.EventExitCreated, world.EventExitUpdated, world.EventExitDeleted:
		return "🚪"
	default:
		return "•"
	}
}

func describe(kind world.EventKind) string {
	switch kind {
	case world.EventRoomCreated:
		return "room created"
	case world.EventRoomUpdated:
		return "room updated"
	case world.EventRoomDeleted:
		return "room deleted"
	case world.EventExitCreated:
		return "exit created"
	case world.EventExitUpdated:
		return "exit updated"
	case world.EventExitDeleted:
		return "exit deleted"
	default:
		return string(kind)
	}
}
