package editor

import (
	"context"
	"fmt"

	"github.com/dyluth/warren/pkg/world"
	"github.com/sirupsen/logrus"
)

// RoomGraph is the subgraph reachable from a start room, keyed by id. It is
// computed per request and never stored.
type RoomGraph struct {
	Rooms map[int]RoomView `json:"rooms"`
	Exits map[int]ExitView `json:"exits"`
}

func newRoomGraph() *RoomGraph {
	return &RoomGraph{
		Rooms: make(map[int]RoomView),
		Exits: make(map[int]ExitView),
	}
}

// merge copies entries of other that g does not already hold.
func (g *RoomGraph) merge(other *RoomGraph) {
	for id, room := range other.Rooms {
		if _, ok := g.Rooms[id]; !ok {
			g.Rooms[id] = room
		}
	}
	for id, exit := range other.Exits {
		if _, ok := g.Exits[id]; !ok {
			g.Exits[id] = exit
		}
	}
}

// BuildGraph traverses the world from startID up to depth hops using the
// service's default mode.
//
// The start room and its exits are always included. Each room reached with
// hops remaining contributes its exits and expands their destinations; a
// room reached with no hops left is included without its exits.
func (s *Service) BuildGraph(ctx context.Context, startID, depth int) (*RoomGraph, error) {
	return s.BuildGraphMode(ctx, startID, depth, s.mode)
}

// BuildGraphMode is BuildGraph with an explicit traversal mode.
func (s *Service) BuildGraphMode(ctx context.Context, startID, depth int, mode Mode) (*RoomGraph, error) {
	op := fmt.Sprintf("build graph from %s", world.RefOf(startID))
	if depth < 0 {
		return nil, world.NewError(world.KindValidation, op, fmt.Errorf("depth must be >= 0, got %d", depth))
	}

	s.log.WithFields(logrus.Fields{
		"event_type": "build_graph",
		"start":      startID,
		"depth":      depth,
		"mode":       string(mode),
	}).Debug("Building room graph")

	switch mode {
	case ModeLocal, "":
		return s.expandLocal(ctx, startID, depth, true)
	case ModeGlobal:
		return s.expandGlobal(ctx, startID, depth)
	default:
		return nil, world.NewError(world.KindValidation, op, fmt.Errorf("unknown graph mode %q", mode))
	}
}

// expandLocal is the recursive traversal. Visited rooms are tracked in the
// graph of the current call only, which grows as sibling results are merged.
func (s *Service) expandLocal(ctx context.Context, roomID, depth int, start bool) (*RoomGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	room, err := s.ProjectRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	graph := newRoomGraph()
	graph.Rooms[room.ID] = room
	if depth == 0 && !start {
		return graph, nil
	}

	for _, exit := range room.Exits {
		graph.Exits[exit.ID] = exit
	}
	if depth == 0 {
		return graph, nil
	}

	for _, exit := range room.Exits {
		if _, visited := graph.Rooms[exit.DestinationID]; visited {
			continue
		}
		sub, err := s.expandLocal(ctx, exit.DestinationID, depth-1, false)
		if err != nil {
			return nil, err
		}
		graph.merge(sub)
	}
	return graph, nil
}

// expandGlobal is a breadth-first traversal sharing one visited set. Each
// room is projected once.
func (s *Service) expandGlobal(ctx context.Context, startID, depth int) (*RoomGraph, error) {
	type frontier struct {
		room      RoomView
		remaining int
	}

	start, err := s.ProjectRoom(ctx, startID)
	if err != nil {
		return nil, err
	}

	graph := newRoomGraph()
	graph.Rooms[start.ID] = start
	queue := []frontier{{room: start, remaining: depth}}
	first := true

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := queue[0]
		queue = queue[1:]

		if current.remaining == 0 && !first {
			continue
		}
		first = false

		for _, exit := range current.room.Exits {
			graph.Exits[exit.ID] = exit
		}
		if current.remaining == 0 {
			continue
		}

		for _, exit := range current.room.Exits {
			if _, visited := graph.Rooms[exit.DestinationID]; visited {
				continue
			}
			next, err := s.ProjectRoom(ctx, exit.DestinationID)
			if err != nil {
				return nil, err
			}
			graph.Rooms[next.ID] = next
			queue = append(queue, frontier{room: next, remaining: current.remaining - 1})
		}
	}
	return graph, nil
}
