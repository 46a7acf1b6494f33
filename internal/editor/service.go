// Package editor implements the world-editing operations behind the editor
// API: projecting rooms and exits into transfer views, bounded-depth graph
// traversal, and the create/upsert/update/delete mutations.
//
// A Service is built explicitly with New and handed to whoever serves
// requests; there is no package-level state.
package editor

import (
	"context"
	"fmt"

	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	"github.com/sirupsen/logrus"
)

// Store is the backing object store. *world.Client (Redis) and
// *sqlstore.Store (SQLite) both satisfy it.
type Store interface {
	CreateRoom(ctx context.Context, name string, attributes attr.Map) (*world.Room, error)
	GetRoom(ctx context.Context, id int) (*world.Room, error)
	ListRooms(ctx context.Context) ([]*world.Room, error)
	SaveRoom(ctx context.Context, room *world.Room) error
	DeleteRoom(ctx context.Context, id int) ([]int, error)
	SetRoomAttribute(ctx context.Context, id int, key string, value attr.Value) error

	CreateExit(ctx context.Context, name string, sourceID, destinationID int) (*world.Exit, error)
	GetExit(ctx context.Context, id int) (*world.Exit, error)
	RoomExits(ctx context.Context, roomID int) ([]*world.Exit, error)
	SaveExit(ctx context.Context, exit *world.Exit) error
	DeleteExit(ctx context.Context, id int) error

	Ping(ctx context.Context) error
	Close() error
}

// Mode selects the graph traversal strategy.
type Mode string

const (
	// ModeLocal keeps a visited set per recursive call. Sibling branches may
	// expand the same room again.
	ModeLocal Mode = "local"
	// ModeGlobal expands breadth-first with one visited set for the whole traversal.
	ModeGlobal Mode = "global"
)

// ParseMode validates a mode name. The empty string selects ModeLocal.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeGlobal:
		return ModeGlobal, nil
	default:
		return "", fmt.Errorf("unknown graph mode %q (must be %q or %q)", s, ModeLocal, ModeGlobal)
	}
}

// TagMerge selects where UpsertRoom puts supplied tags.
type TagMerge int

const (
	// TagMergeAttributes stores each tag as a string attribute. This is the
	// historical behavior of the editor API and remains the default.
	TagMergeAttributes TagMerge = iota
	// TagMergeTags stores tags in the room's tag set.
	TagMergeTags
)

// Options configures a Service.
type Options struct {
	Mode     Mode
	TagMerge TagMerge
	Logger   *logrus.Entry
}

// Service carries out editor operations against a Store.
type Service struct {
	store    Store
	mode     Mode
	tagMerge TagMerge
	log      *logrus.Entry
	commands *CommandSet
}

// New creates a Service over store.
func New(store Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeLocal
	}

	return &Service{
		store:    store,
		mode:     mode,
		tagMerge: opts.TagMerge,
		log:      log.WithField("component", "editor"),
		commands: NewCommandSet(store.RoomExits),
	}
}

// Mode returns the default traversal mode of the service.
func (s *Service) Mode() Mode {
	return s.mode
}

// Commands returns the traversal command bindings maintained by the service.
func (s *Service) Commands() *CommandSet {
	return s.commands
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
