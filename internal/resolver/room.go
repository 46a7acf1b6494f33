// Package resolver turns a CLI room argument (an id or a name) into a room id.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dyluth/warren/pkg/world"
	"golang.org/x/text/cases"
)

// RoomFinder is the subset of the store the resolver needs.
type RoomFinder interface {
	GetRoom(ctx context.Context, id int) (*world.Room, error)
	ListRooms(ctx context.Context) ([]*world.Room, error)
}

// ResolveRoom resolves arg to a room id. A numeric arg must name an existing
// room. Otherwise arg is matched against room names under Unicode case
// folding: an exact match wins, then a unique prefix match.
func ResolveRoom(ctx context.Context, finder RoomFinder, arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("room must not be empty")
	}

	if id, err := strconv.Atoi(arg); err == nil {
		if _, err := finder.GetRoom(ctx, id); err != nil {
			if world.IsNotFound(err) {
				return 0, &NotFoundError{Query: arg}
			}
			return 0, fmt.Errorf("failed to verify room existence: %w", err)
		}
		return id, nil
	}

	rooms, err := finder.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list rooms: %w", err)
	}

	fold := cases.Fold()
	query := fold.String(arg)
	var exact, prefix []Match
	for _, room := range rooms {
		id, err := room.ID()
		if err != nil {
			continue
		}
		name := fold.String(room.Name)
		switch {
		case name == query:
			exact = append(exact, Match{ID: id, Name: room.Name})
		case strings.HasPrefix(name, query):
			prefix = append(prefix, Match{ID: id, Name: room.Name})
		}
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = prefix
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	switch len(candidates) {
	case 0:
		return 0, &NotFoundError{Query: arg}
	case 1:
		return candidates[0].ID, nil
	default:
		return 0, &AmbiguousError{Query: arg, Matches: candidates}
	}
}

// Match is one room that matched a name query.
type Match struct {
	ID   int
	Name string
}

// NotFoundError indicates no room matched the query.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no room found matching '%s'", e.Query)
}

// AmbiguousError indicates several rooms matched the query.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous room '%s' matches %d rooms", e.Query, len(e.Matches))
}

// FormatAmbiguousError lists the matching rooms (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous room '%s' matches %d rooms:\n", err.Query, len(err.Matches))

	shown := err.Matches
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, m := range shown {
		fmt.Fprintf(&b, "  #%d %s\n", m.ID, m.Name)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse the room id or a longer name.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}
