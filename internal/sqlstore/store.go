// Package sqlstore provides a SQLite-backed world store. It implements the
// same operations as the Redis client in pkg/world and is selected with
// store.driver: sqlite. It does not publish world events.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/warren/internal/sqlstore/migrations"
	"github.com/dyluth/warren/pkg/attr"
	"github.com/dyluth/warren/pkg/world"
	_ "modernc.org/sqlite"
)

const (
	kindRoom = "room"
	kindExit = "exit"
)

// Store persists rooms and exits in a single SQLite objects table. Rooms and
// exits share the table's autoincrement id, so ids never collide.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite world store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping verifies the database handle is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateRoom inserts a new room with the given name and initial attributes.
func (s *Store) CreateRoom(ctx context.Context, name string, attributes attr.Map) (*world.Room, error) {
	op := fmt.Sprintf("create room %q", name)
	if err := world.ValidateName(name); err != nil {
		return nil, world.NewError(world.KindCreation, op, err)
	}

	attrsJSON, err := json.Marshal(attributes)
	if err != nil {
		return nil, world.NewError(world.KindSerialization, op, err)
	}

	now := time.Now().UnixMilli()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO objects (kind, name, tags, attributes, created_at_ms, updated_at_ms)
		 VALUES (?, ?, '{}', ?, ?, ?)`,
		kindRoom, name, string(attrsJSON), now, now,
	)
	if err != nil {
		return nil, world.NewError(world.KindCreation, op, fmt.Errorf("insert room: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, world.NewError(world.KindCreation, op, err)
	}

	return &world.Room{
		Ref:         world.RefOf(int(id)),
		Name:        name,
		Tags:        map[string]string{},
		Attributes:  attributes.Clone(),
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}, nil
}

// GetRoom returns one room by id.
func (s *Store) GetRoom(ctx context.Context, id int) (*world.Room, error) {
	return getRoom(ctx, s.sqlDB, id)
}

func getRoom(ctx context.Context, q querier, id int) (*world.Room, error) {
	op := fmt.Sprintf("get room %s", world.RefOf(id))
	row := q.QueryRowContext(ctx,
		`SELECT id, name, tags, attributes, created_at_ms, updated_at_ms
		 FROM objects WHERE id = ? AND kind = ?`, id, kindRoom)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, world.NewError(world.KindNotFound, op, err)
	}
	if err != nil {
		return nil, world.NewError(world.KindSerialization, op, err)
	}
	return room, nil
}

// ListRooms returns every room ordered by id.
func (s *Store) ListRooms(ctx context.Context) ([]*world.Room, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, tags, attributes, created_at_ms, updated_at_ms
		 FROM objects WHERE kind = ? ORDER BY id`, kindRoom)
	if err != nil {
		return nil, world.NewError(world.KindPersistence, "list rooms", err)
	}
	defer rows.Close()

	var rooms []*world.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, world.NewError(world.KindSerialization, "list rooms", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, world.NewError(world.KindPersistence, "list rooms", err)
	}
	return rooms, nil
}

// SaveRoom replaces the stored room state and stamps UpdatedAtMs.
func (s *Store) SaveRoom(ctx context.Context, room *world.Room) error {
	op := fmt.Sprintf("save room %s", room.Ref)
	if err := room.Validate(); err != nil {
		return world.NewError(world.KindValidation, op, err)
	}
	id, _ := room.ID()

	tagsJSON, err := world.EncodeTags(room.Tags)
	if err != nil {
		return world.NewError(world.KindSerialization, op, err)
	}
	attrsJSON, err := json.Marshal(room.Attributes)
	if err != nil {
		return world.NewError(world.KindSerialization, op, err)
	}

	room.UpdatedAtMs = time.Now().UnixMilli()
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE objects SET name = ?, tags = ?, attributes = ?, updated_at_ms = ?
		 WHERE id = ? AND kind = ?`,
		room.Name, tagsJSON, string(attrsJSON), room.UpdatedAtMs, id, kindRoom,
	)
	if err != nil {
		return world.NewError(world.KindPersistence, op, fmt.Errorf("update room: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return world.NewError(world.KindNotFound, op, sql.ErrNoRows)
	}
	return nil
}

// SetRoomAttribute stores a single attribute on a room as its own transaction.
func (s *Store) SetRoomAttribute(ctx context.Context, id int, key string, value attr.Value) error {
	op := fmt.Sprintf("set attribute %q on room %s", key, world.RefOf(id))

	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT attributes FROM objects WHERE id = ? AND kind = ?`, id, kindRoom).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return world.NewError(world.KindNotFound, op, err)
		}
		if err != nil {
			return world.NewError(world.KindPersistence, op, err)
		}

		attributes, err := world.DecodeAttributes(raw)
		if err != nil {
			return world.NewError(world.KindSerialization, op, err)
		}
		attributes.Set(key, value)
		encoded, err := json.Marshal(attributes)
		if err != nil {
			return world.NewError(world.KindSerialization, op, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE objects SET attributes = ?, updated_at_ms = ? WHERE id = ?`,
			string(encoded), time.Now().UnixMilli(), id,
		); err != nil {
			return world.NewError(world.KindPersistence, op, err)
		}
		return nil
	})
}

// DeleteRoom removes a room and the exits it owns, returning the removed exit ids.
func (s *Store) DeleteRoom(ctx context.Context, id int) ([]int, error) {
	op := fmt.Sprintf("delete room %s", world.RefOf(id))

	var removed []int
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		if _, err := getRoom(ctx, tx, id); err != nil {
			return err
		}
		ids, err := exitIDs(ctx, tx, id)
		if err != nil {
			return world.NewError(world.KindPersistence, op, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM objects WHERE id = ? OR (kind = ? AND location_id = ?)`,
			id, kindExit, id,
		); err != nil {
			return world.NewError(world.KindPersistence, op, err)
		}
		removed = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// CreateExit inserts an exit owned by sourceID and leading to destinationID.
// Both rooms must exist.
func (s *Store) CreateExit(ctx context.Context, name string, sourceID, destinationID int) (*world.Exit, error) {
	op := fmt.Sprintf("create exit %q", name)

	var exit *world.Exit
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		if err := requireRooms(ctx, tx, op, sourceID, destinationID); err != nil {
			return err
		}
		if err := world.ValidateName(name); err != nil {
			return world.NewError(world.KindCreation, op, err)
		}

		now := time.Now().UnixMilli()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO objects (kind, name, attributes, location_id, destination_id, created_at_ms, updated_at_ms)
			 VALUES (?, ?, '{}', ?, ?, ?, ?)`,
			kindExit, name, sourceID, destinationID, now, now,
		)
		if err != nil {
			return world.NewError(world.KindCreation, op, fmt.Errorf("insert exit: %w", err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return world.NewError(world.KindCreation, op, err)
		}
		exit = &world.Exit{
			Ref:           world.RefOf(int(id)),
			Name:          name,
			LocationID:    sourceID,
			DestinationID: destinationID,
			CreatedAtMs:   now,
			UpdatedAtMs:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exit, nil
}

// GetExit returns one exit by id.
func (s *Store) GetExit(ctx context.Context, id int) (*world.Exit, error) {
	op := fmt.Sprintf("get exit %s", world.RefOf(id))
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, location_id, destination_id, attributes, created_at_ms, updated_at_ms
		 FROM objects WHERE id = ? AND kind = ?`, id, kindExit)
	exit, err := scanExit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, world.NewError(world.KindNotFound, op, err)
	}
	if err != nil {
		return nil, world.NewError(world.KindSerialization, op, err)
	}
	return exit, nil
}

// RoomExits returns the exits owned by a room in creation order.
func (s *Store) RoomExits(ctx context.Context, roomID int) ([]*world.Exit, error) {
	op := fmt.Sprintf("list exits of room %s", world.RefOf(roomID))
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, location_id, destination_id, attributes, created_at_ms, updated_at_ms
		 FROM objects WHERE kind = ? AND location_id = ? ORDER BY id`, kindExit, roomID)
	if err != nil {
		return nil, world.NewError(world.KindPersistence, op, err)
	}
	defer rows.Close()

	exits := []*world.Exit{}
	for rows.Next() {
		exit, err := scanExit(rows)
		if err != nil {
			return exits, world.NewError(world.KindSerialization, op, err)
		}
		exits = append(exits, exit)
	}
	if err := rows.Err(); err != nil {
		return exits, world.NewError(world.KindPersistence, op, err)
	}
	return exits, nil
}

// SaveExit replaces the stored exit state. Both rooms must exist.
func (s *Store) SaveExit(ctx context.Context, exit *world.Exit) error {
	op := fmt.Sprintf("save exit %s", exit.Ref)
	if err := exit.Validate(); err != nil {
		return world.NewError(world.KindValidation, op, err)
	}
	id, _ := exit.ID()

	attrsJSON, err := json.Marshal(exit.Attributes)
	if err != nil {
		return world.NewError(world.KindSerialization, op, err)
	}

	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM objects WHERE id = ? AND kind = ?`, id, kindExit).Scan(&count); err != nil {
			return world.NewError(world.KindPersistence, op, err)
		}
		if count == 0 {
			return world.NewError(world.KindNotFound, op, sql.ErrNoRows)
		}
		if err := requireRooms(ctx, tx, op, exit.LocationID, exit.DestinationID); err != nil {
			return err
		}

		exit.UpdatedAtMs = time.Now().UnixMilli()
		if _, err := tx.ExecContext(ctx,
			`UPDATE objects SET name = ?, location_id = ?, destination_id = ?, attributes = ?, updated_at_ms = ?
			 WHERE id = ?`,
			exit.Name, exit.LocationID, exit.DestinationID, string(attrsJSON), exit.UpdatedAtMs, id,
		); err != nil {
			return world.NewError(world.KindPersistence, op, fmt.Errorf("update exit: %w", err))
		}
		return nil
	})
}

// DeleteExit removes one exit.
func (s *Store) DeleteExit(ctx context.Context, id int) error {
	op := fmt.Sprintf("delete exit %s", world.RefOf(id))
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM objects WHERE id = ? AND kind = ?`, id, kindExit)
	if err != nil {
		return world.NewError(world.KindPersistence, op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return world.NewError(world.KindNotFound, op, sql.ErrNoRows)
	}
	return nil
}

// withTx runs fn in a transaction, committing on success. Errors returned by
// fn are passed through unchanged.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return world.NewError(world.KindPersistence, op, fmt.Errorf("begin tx: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return world.NewError(world.KindPersistence, op, fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func requireRooms(ctx context.Context, q querier, op string, ids ...int) error {
	for _, id := range ids {
		var count int
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM objects WHERE id = ? AND kind = ?`, id, kindRoom).Scan(&count); err != nil {
			return world.NewError(world.KindPersistence, op, err)
		}
		if count == 0 {
			return world.NewError(world.KindNotFound, op, fmt.Errorf("room %s does not exist", world.RefOf(id)))
		}
	}
	return nil
}

func exitIDs(ctx context.Context, q querier, roomID int) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM objects WHERE kind = ? AND location_id = ? ORDER BY id`, kindExit, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (*world.Room, error) {
	var (
		id                   int
		name, tags, attrs    string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &name, &tags, &attrs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	decodedTags, err := world.DecodeTags(tags)
	if err != nil {
		return nil, err
	}
	attributes, err := world.DecodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return &world.Room{
		Ref:         world.RefOf(id),
		Name:        name,
		Tags:        decodedTags,
		Attributes:  attributes,
		CreatedAtMs: createdAt,
		UpdatedAtMs: updatedAt,
	}, nil
}

func scanExit(row scanner) (*world.Exit, error) {
	var (
		id, location, destination int
		name, attrs               string
		createdAt, updatedAt      int64
	)
	if err := row.Scan(&id, &name, &location, &destination, &attrs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	attributes, err := world.DecodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return &world.Exit{
		Ref:           world.RefOf(id),
		Name:          name,
		LocationID:    location,
		DestinationID: destination,
		Attributes:    attributes,
		CreatedAtMs:   createdAt,
		UpdatedAtMs:   updatedAt,
	}, nil
}
