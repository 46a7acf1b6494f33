package editor

import (
	"context"
	"fmt"
	"sort"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/sirupsen/logrus"
)

// RoomInput is the body of room create and upsert requests.
type RoomInput struct {
	Name        string            `json:"name"`
	Desc        *string           `json:"desc,omitempty"`
	Description *string           `json:"description,omitempty"`
	Attributes  attr.Map          `json:"attributes"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// createDescription returns the description of a new room, preferring
// "desc" over "description" when both are given. Upserts read only
// "description".
func (in RoomInput) createDescription() *string {
	if in.Desc != nil {
		return in.Desc
	}
	return in.Description
}

// ExitInput is the body of an exit create request.
type ExitInput struct {
	Name          string `json:"name"`
	SourceID      int    `json:"source_id"`
	DestinationID int    `json:"destination_id"`
}

// ExitUpdate is the body of an exit update request. Nil fields are left as they are.
type ExitUpdate struct {
	Name          *string  `json:"name,omitempty"`
	SourceID      *int     `json:"source_id,omitempty"`
	DestinationID *int     `json:"destination_id,omitempty"`
	Attributes    attr.Map `json:"attributes"`
}

// CreateRoom creates a room named in.Name. The description, if any, is
// written with the room; the remaining attributes are then added one at a
// time, so a failure partway leaves earlier additions in place.
func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (RoomView, error) {
	op := fmt.Sprintf("create room %q", in.Name)

	var initial attr.Map
	if desc := in.createDescription(); desc != nil {
		initial.Set(world.DescAttribute, attr.String(*desc))
	}

	room, err := s.store.CreateRoom(ctx, in.Name, initial)
	if err != nil {
		return RoomView{}, asKind(world.KindCreation, op, err)
	}
	if room == nil {
		return RoomView{}, world.NewError(world.KindCreation, op, fmt.Errorf("store returned no room"))
	}
	id, err := room.ID()
	if err != nil {
		return RoomView{}, world.NewError(world.KindCreation, op, err)
	}

	var setErr error
	in.Attributes.Range(func(key string, v attr.Value) bool {
		setErr = s.store.SetRoomAttribute(ctx, id, key, v)
		return setErr == nil
	})
	if setErr != nil {
		return RoomView{}, asKind(world.KindPersistence, op, setErr)
	}

	s.log.WithFields(logrus.Fields{
		"event_type": "room_created",
		"room":       string(room.Ref),
		"name":       in.Name,
	}).Info("Created room")

	return s.ProjectRoom(ctx, id)
}

// UpsertRoom overwrites the name of room id and merges the supplied
// "description", attributes and tags into it, then saves it once. Where tags
// go depends on the service's TagMerge option.
func (s *Service) UpsertRoom(ctx context.Context, id int, in RoomInput) (RoomView, error) {
	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return RoomView{}, err
	}

	room.Name = in.Name
	if desc := in.Description; desc != nil {
		room.Attributes.Set(world.DescAttribute, attr.String(*desc))
	}
	room.Attributes.Merge(in.Attributes)

	switch s.tagMerge {
	case TagMergeTags:
		MergeTags(room, in.Tags)
	default:
		MergeTagsIntoAttributes(room, in.Tags)
	}

	// Every rejected save is a persistence failure, whatever the store's
	// own classification.
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return RoomView{}, world.NewError(world.KindPersistence, fmt.Sprintf("upsert room %s", world.RefOf(id)), err)
	}

	s.log.WithFields(logrus.Fields{
		"event_type": "room_upserted",
		"room":       string(room.Ref),
	}).Info("Upserted room")

	// Reload so the view reflects what was stored.
	return s.ProjectRoom(ctx, id)
}

// MergeTagsIntoAttributes stores each tag as a string attribute of the room,
// in key order. This is the default upsert behavior.
func MergeTagsIntoAttributes(room *world.Room, tags map[string]string) {
	for _, key := range sortedKeys(tags) {
		room.Attributes.Set(key, attr.String(tags[key]))
	}
}

// MergeTags stores each tag in the room's tag set.
func MergeTags(room *world.Room, tags map[string]string) {
	if len(tags) == 0 {
		return
	}
	if room.Tags == nil {
		room.Tags = make(map[string]string, len(tags))
	}
	for key, value := range tags {
		room.Tags[key] = value
	}
}

// CreateExit creates an exit from in.SourceID to in.DestinationID. Both
// rooms are resolved before anything is written.
func (s *Service) CreateExit(ctx context.Context, in ExitInput) (ExitView, error) {
	op := fmt.Sprintf("create exit %q", in.Name)

	if _, err := s.store.GetRoom(ctx, in.SourceID); err != nil {
		return ExitView{}, err
	}
	if _, err := s.store.GetRoom(ctx, in.DestinationID); err != nil {
		return ExitView{}, err
	}

	exit, err := s.store.CreateExit(ctx, in.Name, in.SourceID, in.DestinationID)
	if err != nil {
		return ExitView{}, asKind(world.KindCreation, op, err)
	}
	if exit == nil {
		return ExitView{}, world.NewError(world.KindCreation, op, fmt.Errorf("store returned no exit"))
	}

	if err := s.commands.Bind(exit); err != nil {
		return ExitView{}, world.NewError(world.KindCreation, op, err)
	}

	s.log.WithFields(logrus.Fields{
		"event_type":  "exit_created",
		"exit":        string(exit.Ref),
		"source":      in.SourceID,
		"destination": in.DestinationID,
	}).Info("Created exit")

	return s.projectExit(ctx, exit)
}

// UpdateExit applies the non-nil fields of in to exit id and saves it once.
// Room ids are resolved before the save; the exit's traversal command is
// rebound after it.
func (s *Service) UpdateExit(ctx context.Context, id int, in ExitUpdate) (ExitView, error) {
	exit, err := s.store.GetExit(ctx, id)
	if err != nil {
		return ExitView{}, err
	}

	if in.Name != nil {
		exit.Name = *in.Name
	}
	if in.SourceID != nil {
		if _, err := s.store.GetRoom(ctx, *in.SourceID); err != nil {
			return ExitView{}, err
		}
		exit.LocationID = *in.SourceID
	}
	if in.DestinationID != nil {
		if _, err := s.store.GetRoom(ctx, *in.DestinationID); err != nil {
			return ExitView{}, err
		}
		exit.DestinationID = *in.DestinationID
	}
	exit.Attributes.Merge(in.Attributes)

	op := fmt.Sprintf("update exit %s", world.RefOf(id))
	if err := s.store.SaveExit(ctx, exit); err != nil {
		return ExitView{}, asKind(world.KindPersistence, op, err)
	}
	if err := s.commands.Bind(exit); err != nil {
		return ExitView{}, world.NewError(world.KindPersistence, op, err)
	}

	s.log.WithFields(logrus.Fields{
		"event_type":  "exit_updated",
		"exit":        string(exit.Ref),
		"source":      exit.LocationID,
		"destination": exit.DestinationID,
	}).Info("Updated exit")

	return s.ProjectExit(ctx, id)
}

// DeleteRoom deletes a room and the exits it owns. Exits elsewhere that lead
// to it are left in place.
func (s *Service) DeleteRoom(ctx context.Context, id int) error {
	removed, err := s.store.DeleteRoom(ctx, id)
	if err != nil {
		return asKind(world.KindPersistence, fmt.Sprintf("delete room %s", world.RefOf(id)), err)
	}
	for _, exitID := range removed {
		s.commands.Unbind(exitID)
	}
	s.commands.Forget(id)

	s.log.WithFields(logrus.Fields{
		"event_type": "room_deleted",
		"room":       string(world.RefOf(id)),
		"exits":      len(removed),
	}).Info("Deleted room")
	return nil
}

// DeleteExit deletes one exit.
func (s *Service) DeleteExit(ctx context.Context, id int) error {
	if err := s.store.DeleteExit(ctx, id); err != nil {
		return asKind(world.KindPersistence, fmt.Sprintf("delete exit %s", world.RefOf(id)), err)
	}
	s.commands.Unbind(id)

	s.log.WithFields(logrus.Fields{
		"event_type": "exit_deleted",
		"exit":       string(world.RefOf(id)),
	}).Info("Deleted exit")
	return nil
}

// asKind passes classified errors through and classifies anything else as kind.
func asKind(kind world.Kind, op string, err error) error {
	if world.KindOf(err) != world.KindUnknown {
		return err
	}
	return world.NewError(kind, op, err)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
