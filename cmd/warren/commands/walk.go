package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/internal/printer"
	"github.com/spf13/cobra"
)

var walkFrom string

var walkCmd = &cobra.Command{
	Use:   "walk EXIT...",
	Short: "Follow exits by name from a room",
	Long: `Follow a sequence of exits by name, the way a player types movement
commands, and print each step. Exit names match case-insensitively. With
no EXIT arguments the commands available in the start room are listed.

Examples:
  warren walk --from 1 north east down
  warren walk --from hall`,
	RunE: runWalk,
}

func init() {
	walkCmd.Flags().StringVar(&walkFrom, "from", "", "Start room id or name (required)")
	walkCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(walkCmd)
}

func runWalk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, "cli")
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	current, err := resolveRoomArg(ctx, store, walkFrom)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, store, editor.Options{Logger: log})
	if err != nil {
		return err
	}
	commands := svc.Commands()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		available, err := commands.Commands(ctx, current)
		if err != nil {
			return printer.Error(fmt.Sprintf("failed to load exits of room %d", current), err.Error(), nil)
		}
		if len(available) == 0 {
			fmt.Fprintf(out, "Room #%d has no exits\n", current)
			return nil
		}
		names := make([]string, 0, len(available))
		for _, c := range available {
			names = append(names, c.Name)
		}
		fmt.Fprintf(out, "Exits from #%d: %s\n", current, strings.Join(names, ", "))
		return nil
	}

	for _, name := range args {
		command, ok, err := commands.Resolve(ctx, current, name)
		if err != nil {
			return printer.Error(fmt.Sprintf("failed to load exits of room %d", current), err.Error(), nil)
		}
		if !ok {
			return printer.Error(
				fmt.Sprintf("no exit '%s' from room %d", name, current),
				"The walk stopped here.",
				[]string{"See the exits of this room:\n  warren walk --from " + itoa(current)},
			)
		}
		fmt.Fprintf(out, "#%d --%s--> #%d\n", current, command.Name, command.DestinationID)
		current = command.DestinationID
	}

	view, err := svc.ProjectRoom(ctx, current)
	if err != nil {
		return printer.Error(fmt.Sprintf("arrived at missing room %d", current), err.Error(), nil)
	}
	fmt.Fprintf(out, "Arrived at #%d %s\n", view.ID, view.Name)
	return nil
}
