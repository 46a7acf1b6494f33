package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/internal/filter"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/resolver"
	"github.com/dyluth/warren/internal/roster"
	"github.com/dyluth/warren/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	roomsOutputFormat string
	roomsName         string
	roomsTag          string
	roomsSince        string
	roomsUntil        string
)

var roomsCmd = &cobra.Command{
	Use:   "rooms [ROOM]",
	Short: "List rooms, or show one room",
	Long: `Inspect the rooms of the world in list or get mode.

List Mode (no ROOM):
  Displays rooms matching filters as a table or JSONL stream.

Get Mode (with ROOM):
  Displays one room with its exits as pretty-printed JSON, exactly as the
  editor API returns it. ROOM is an id or a (prefix of a) room name.

Output Formats (list mode only):
  default - Table with id, name, exit count, tags and description
  jsonl   - Line-delimited JSON, one room per line

Filters (list mode only):
  --name   - Room name glob, case-insensitive ("cell*", "*hall")
  --tag    - Tag present ("dark") or tag with value ("zone=manor")
  --since  - Rooms updated after this time (duration, days or RFC3339)
  --until  - Rooms updated before this time

Examples:
  warren rooms
  warren rooms --tag zone=manor --since 7d
  warren rooms --output=jsonl | jq '.name'
  warren rooms cellar`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRooms,
}

func init() {
	roomsCmd.Flags().StringVarP(&roomsOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	roomsCmd.Flags().StringVar(&roomsName, "name", "", "Filter by room name (glob pattern)")
	roomsCmd.Flags().StringVar(&roomsTag, "tag", "", "Filter by tag (key or key=value)")
	roomsCmd.Flags().StringVar(&roomsSince, "since", "", "Show rooms updated after time (duration or RFC3339)")
	roomsCmd.Flags().StringVar(&roomsUntil, "until", "", "Show rooms updated before time (duration or RFC3339)")
	rootCmd.AddCommand(roomsCmd)
}

func runRooms(cmd *cobra.Command, args []string) error {
	isGetMode := len(args) > 0

	var format roster.OutputFormat
	criteria := &filter.Criteria{NameGlob: roomsName, Tag: roomsTag}
	if !isGetMode {
		var err error
		if format, err = roster.ParseOutputFormat(roomsOutputFormat); err != nil {
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", roomsOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}

		since, until, err := timespec.ParseRange(roomsSince, roomsUntil)
		if err != nil {
			return printer.Error("invalid time filter", err.Error(), []string{"Use a duration like '2h', days like '7d' or RFC3339"})
		}
		criteria.SinceTimestampMs, criteria.UntilTimestampMs = since, until

		if err := criteria.Validate(); err != nil {
			return printer.Error("invalid name filter", err.Error(), []string{"Use a glob pattern like 'cell*'"})
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if !isGetMode {
		return roster.ListRooms(ctx, store, cfg.Instance, format, criteria, cmd.OutOrStdout())
	}

	id, err := resolveRoomArg(ctx, store, args[0])
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, "cli")
	if err != nil {
		return err
	}
	svc, err := newService(cfg, store, editor.Options{Logger: log})
	if err != nil {
		return err
	}

	view, err := svc.ProjectRoom(ctx, id)
	if err != nil {
		return printer.Error(fmt.Sprintf("failed to load room %d", id), err.Error(), nil)
	}
	return roster.FormatSingleJSON(cmd.OutOrStdout(), view)
}

// resolveRoomArg turns a room id or name into an id, printing a friendly
// error when it names no room or several.
func resolveRoomArg(ctx context.Context, finder resolver.RoomFinder, arg string) (int, error) {
	id, err := resolver.ResolveRoom(ctx, finder, arg)
	if err == nil {
		return id, nil
	}

	switch e := err.(type) {
	case *resolver.NotFoundError:
		return 0, printer.Error(
			fmt.Sprintf("room not found: %s", arg),
			"No room has that id, and no room name starts with it.",
			[]string{"List rooms:\n  warren rooms"},
		)
	case *resolver.AmbiguousError:
		return 0, printer.Error(
			fmt.Sprintf("ambiguous room: %s", arg),
			resolver.FormatAmbiguousError(e),
			nil,
		)
	default:
		return 0, printer.Error("failed to resolve room", err.Error(), nil)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
