package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/roster"
	"github.com/spf13/cobra"
)

var (
	graphStart string
	graphDepth int
	graphMode  string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the room graph around a room",
	Long: `Print the rooms and exits reachable from a start room within a depth
bound, as the JSON object returned by the room_graph endpoint.

Depth 0 returns only the start room. Without --depth the configured
graph.default_depth applies.

Modes:
  local  - visited rooms are tracked per branch (default)
  global - breadth-first with one visited set

Examples:
  warren graph --start 1
  warren graph --start cellar --depth 3 --mode global`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphStart, "start", "", "Start room id or name (required)")
	graphCmd.Flags().IntVar(&graphDepth, "depth", -1, "Traversal depth (default: graph.default_depth)")
	graphCmd.Flags().StringVar(&graphMode, "mode", "", "Traversal mode: local or global")
	graphCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	depth := *cfg.Graph.DefaultDepth
	if cmd.Flags().Changed("depth") {
		if graphDepth < 0 {
			return printer.Error("invalid depth", fmt.Sprintf("Depth must be >= 0, got %d", graphDepth), nil)
		}
		depth = graphDepth
	}

	var mode editor.Mode
	if graphMode != "" {
		if mode, err = editor.ParseMode(graphMode); err != nil {
			return printer.Error("invalid mode", err.Error(), []string{"Valid modes: local, global"})
		}
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

	startID, err := resolveRoomArg(ctx, store, graphStart)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, store, editor.Options{Mode: mode, Logger: log})
	if err != nil {
		return err
	}

	graph, err := svc.BuildGraphMode(ctx, startID, depth, svc.Mode())
	if err != nil {
		return printer.Error("failed to build room graph", err.Error(), nil)
	}
	return roster.FormatSingleJSON(cmd.OutOrStdout(), graph)
}
