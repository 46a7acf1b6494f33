package editor

import (
	"context"
	"fmt"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/sirupsen/logrus"
)

// RoomView is the transfer representation of a room.
type RoomView struct {
	ID         int               `json:"id"`
	Attributes attr.Wire         `json:"attributes"`
	Name       string            `json:"name"`
	Tags       map[string]string `json:"tags"`
	Exits      []ExitView        `json:"exits"`
}

// ExitView is the transfer representation of an exit.
type ExitView struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	SourceName      string    `json:"source_name"`
	SourceID        int       `json:"source_id"`
	DestinationName string    `json:"destination_name"`
	DestinationID   int       `json:"destination_id"`
	Attributes      attr.Wire `json:"attributes"`
}

// RoomName is one entry of the room name listing.
type RoomName struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Policy decides what ProjectExits does when one exit cannot be projected.
type Policy int

const (
	// BestEffort stops at the first failing exit and returns the exits
	// projected so far without an error.
	BestEffort Policy = iota
	// Strict returns the first error.
	Strict
)

// ProjectRoom loads a room and projects it, including its outgoing exits
// under the BestEffort policy.
func (s *Service) ProjectRoom(ctx context.Context, id int) (RoomView, error) {
	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return RoomView{}, err
	}
	return s.projectRoom(ctx, room)
}

func (s *Service) projectRoom(ctx context.Context, room *world.Room) (RoomView, error) {
	id, err := room.ID()
	if err != nil {
		return RoomView{}, world.NewError(world.KindSerialization, fmt.Sprintf("project room %q", room.Name), err)
	}

	exits, err := s.ProjectExits(ctx, room, BestEffort)
	if err != nil {
		return RoomView{}, err
	}

	return RoomView{
		ID:         id,
		Attributes: attr.Serialize(room.Attributes),
		Name:       room.Name,
		Tags:       copyTags(room.Tags),
		Exits:      exits,
	}, nil
}

// ProjectExits projects the outgoing exits of room in creation order.
func (s *Service) ProjectExits(ctx context.Context, room *world.Room, policy Policy) ([]ExitView, error) {
	views := []ExitView{}

	id, err := room.ID()
	if err != nil {
		return s.exitFailure(views, policy, room, world.NewError(world.KindSerialization, fmt.Sprintf("project exits of %q", room.Name), err))
	}

	exits, err := s.store.RoomExits(ctx, id)
	for _, exit := range exits {
		exitID, idErr := exit.ID()
		if idErr != nil {
			return s.exitFailure(views, policy, room, world.NewError(world.KindSerialization, fmt.Sprintf("project exit %q", exit.Name), idErr))
		}
		destination, destErr := s.store.GetRoom(ctx, exit.DestinationID)
		if destErr != nil {
			return s.exitFailure(views, policy, room, destErr)
		}
		views = append(views, ExitView{
			ID:              exitID,
			Name:            exit.Name,
			SourceName:      room.Name,
			SourceID:        id,
			DestinationName: destination.Name,
			DestinationID:   exit.DestinationID,
			Attributes:      attr.Serialize(exit.Attributes),
		})
	}
	if err != nil {
		return s.exitFailure(views, policy, room, err)
	}
	return views, nil
}

func (s *Service) exitFailure(views []ExitView, policy Policy, room *world.Room, err error) ([]ExitView, error) {
	if policy == Strict {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"event_type": "exit_projection_failed",
		"room":       string(room.Ref),
		"projected":  len(views),
		"error":      err.Error(),
	}).Warn("Returning partial exit list")
	return views, nil
}

// ProjectExit loads and projects a single exit. Both its source and its
// destination must resolve.
func (s *Service) ProjectExit(ctx context.Context, id int) (ExitView, error) {
	exit, err := s.store.GetExit(ctx, id)
	if err != nil {
		return ExitView{}, err
	}
	return s.projectExit(ctx, exit)
}

func (s *Service) projectExit(ctx context.Context, exit *world.Exit) (ExitView, error) {
	id, err := exit.ID()
	if err != nil {
		return ExitView{}, world.NewError(world.KindSerialization, fmt.Sprintf("project exit %q", exit.Name), err)
	}
	source, err := s.store.GetRoom(ctx, exit.LocationID)
	if err != nil {
		return ExitView{}, err
	}
	destination, err := s.store.GetRoom(ctx, exit.DestinationID)
	if err != nil {
		return ExitView{}, err
	}

	return ExitView{
		ID:              id,
		Name:            exit.Name,
		SourceName:      source.Name,
		SourceID:        exit.LocationID,
		DestinationName: destination.Name,
		DestinationID:   exit.DestinationID,
		Attributes:      attr.Serialize(exit.Attributes),
	}, nil
}

// RoomNames lists the id and name of every room.
func (s *Service) RoomNames(ctx context.Context) ([]RoomName, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]RoomName, 0, len(rooms))
	for _, room := range rooms {
		id, err := room.ID()
		if err != nil {
			return nil, world.NewError(world.KindSerialization, "list room names", err)
		}
		names = append(names, RoomName{ID: id, Name: room.Name})
	}
	return names, nil
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
