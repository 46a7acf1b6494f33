package editor

import (
	"context"
	"sort"
	"sync"

	"github.com/dyluth/warren/pkg/world"
	"golang.org/x/text/cases"
)

// Command is the traversal binding of one exit: typing Name in the exit's
// source room moves to DestinationID.
type Command struct {
	ExitID        int
	Name          string
	DestinationID int
}

// ExitLoader returns the exits owned by a room.
type ExitLoader func(ctx context.Context, roomID int) ([]*world.Exit, error)

// CommandSet holds the traversal commands of every room in memory. Nothing
// here is persisted: a room's commands are built from the store on first
// use and kept current by Bind and Unbind. Safe for concurrent use.
type CommandSet struct {
	load ExitLoader

	mu      sync.RWMutex
	rooms   map[int]map[string]Command // room id -> folded name -> command
	owners  map[int]int                // exit id -> room id
	loaded  map[int]bool
	seq     uint64
	touched map[int]uint64 // exit id -> seq of its last Bind or Unbind
}

// NewCommandSet creates an empty set that loads rooms with load.
func NewCommandSet(load ExitLoader) *CommandSet {
	return &CommandSet{
		load:   load,
		rooms:  make(map[int]map[string]Command),
		owners: make(map[int]int),
		loaded:  make(map[int]bool),
		touched: make(map[int]uint64),
	}
}

// Bind installs the command for exit, replacing any earlier binding of the
// same exit (rename, move or re-point).
func (c *CommandSet) Bind(exit *world.Exit) error {
	id, err := exit.ID()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(id)
	c.unbindLocked(id)
	c.bindLocked(id, exit)
	return nil
}

// Unbind removes the command of exit id, if any.
func (c *CommandSet) Unbind(exitID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(exitID)
	c.unbindLocked(exitID)
}

// Forget drops every command of a room; the next Resolve reloads it.
func (c *CommandSet) Forget(roomID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cmd := range c.rooms[roomID] {
		delete(c.owners, cmd.ExitID)
	}
	delete(c.rooms, roomID)
	delete(c.loaded, roomID)
}

// Resolve finds the command called name in room roomID. Names match under
// Unicode case folding, so "NORTH" finds "north" and "STRASSE" finds "Straße".
func (c *CommandSet) Resolve(ctx context.Context, roomID int, name string) (Command, bool, error) {
	if err := c.ensureLoaded(ctx, roomID); err != nil {
		return Command{}, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.rooms[roomID][foldName(name)]
	return cmd, ok, nil
}

// Commands returns the commands of a room ordered by exit id.
func (c *CommandSet) Commands(ctx context.Context, roomID int) ([]Command, error) {
	if err := c.ensureLoaded(ctx, roomID); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Command, 0, len(c.rooms[roomID]))
	for _, cmd := range c.rooms[roomID] {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExitID < out[j].ExitID })
	return out, nil
}

// ensureLoaded builds a room's commands from the store. The store is read
// without the lock held, so a Bind or Unbind that lands during the read is
// newer than the snapshot and wins over it.
func (c *CommandSet) ensureLoaded(ctx context.Context, roomID int) error {
	c.mu.RLock()
	loaded := c.loaded[roomID]
	start := c.seq
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	exits, err := c.load(ctx, roomID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded[roomID] {
		return nil
	}
	for _, cmd := range c.rooms[roomID] {
		if !c.newerLocked(cmd.ExitID, start) {
			c.unbindLocked(cmd.ExitID)
		}
	}
	for _, exit := range exits {
		id, err := exit.ID()
		if err != nil || c.newerLocked(id, start) {
			continue
		}
		c.unbindLocked(id)
		c.bindLocked(id, exit)
	}
	c.loaded[roomID] = true
	return nil
}

func (c *CommandSet) touchLocked(exitID int) {
	c.seq++
	c.touched[exitID] = c.seq
}

// newerLocked reports whether exit id was bound or unbound after seq.
func (c *CommandSet) newerLocked(exitID int, seq uint64) bool {
	return c.touched[exitID] > seq
}

func (c *CommandSet) bindLocked(id int, exit *world.Exit) {
	cmds, ok := c.rooms[exit.LocationID]
	if !ok {
		cmds = make(map[string]Command)
		c.rooms[exit.LocationID] = cmds
	}
	cmds[foldName(exit.Name)] = Command{ExitID: id, Name: exit.Name, DestinationID: exit.DestinationID}
	c.owners[id] = exit.LocationID
}

func (c *CommandSet) unbindLocked(exitID int) {
	roomID, ok := c.owners[exitID]
	if !ok {
		return
	}
	delete(c.owners, exitID)
	for name, cmd := range c.rooms[roomID] {
		if cmd.ExitID == exitID {
			delete(c.rooms[roomID], name)
		}
	}
}

// foldName is the lookup key of a command name.
func foldName(name string) string {
	return cases.Fold().String(name)
}
