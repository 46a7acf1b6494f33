package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/pkg/world"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request except room upserts.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DeletedResponse is the body of a successful delete.
type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// fail logs err and answers with a fixed 500 message.
func (s *Server) fail(w http.ResponseWriter, eventType, detail string, err error, fields logrus.Fields) {
	entry := s.log.WithFields(fields).WithFields(logrus.Fields{
		"event_type": eventType,
		"kind":       world.KindOf(err).String(),
	})
	entry.WithError(err).Error(detail)
	writeDetail(w, http.StatusInternalServerError, detail)
}

func pathID(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, w http.ResponseWriter, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if the store is reachable, 503 Service Unavailable otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{Status: "healthy", Store: "connected"}
	if err := s.svc.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Store = "disconnected"
		response.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) canConnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		s.log.WithError(err).WithField("event_type", "store_unreachable").Warn("Store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getRoomNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.RoomNames(r.Context())
	if err != nil {
		s.fail(w, "get_rooms_failed", "Error getting rooms", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "room_id")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.ProjectRoom(r.Context(), id)
	if err != nil {
		s.fail(w, "get_room_failed", "Error getting room", err, logrus.Fields{"room_id": id})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getRoomGraph(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	startID, err := strconv.Atoi(query.Get("start_room_id"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "start_room_id must be an integer")
		return
	}

	depth := s.defaultDepth
	if raw := query.Get("depth"); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "depth must be an integer")
			return
		}
	}
	if depth < 0 {
		writeDetail(w, http.StatusBadRequest, "depth must be >= 0")
		return
	}

	mode := s.svc.Mode()
	if raw := query.Get("mode"); raw != "" {
		mode, err = editor.ParseMode(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	graph, err := s.svc.BuildGraphMode(r.Context(), startID, depth, mode)
	if err != nil {
		s.fail(w, "get_room_graph_failed", "Error getting room graph", err, logrus.Fields{
			"start_room_id": startID,
			"depth":         depth,
		})
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// upsertRoom answers failures with a JSON string and status 200.
func (s *Server) upsertRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "room_id")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	var in editor.RoomInput
	if err := decodeBody(r, w, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.UpsertRoom(r.Context(), id, in)
	if err != nil {
		message := "Error upserting room"
		if world.KindOf(err) == world.KindNotFound {
			message = "Error getting room"
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_type": "upsert_room_failed",
			"room_id":    id,
			"kind":       world.KindOf(err).String(),
		}).Error(message)
		writeJSON(w, http.StatusOK, message)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var in editor.RoomInput
	if err := decodeBody(r, w, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.CreateRoom(r.Context(), in)
	if err != nil {
		s.fail(w, "create_room_failed", "Error creating room", err, logrus.Fields{"name": in.Name})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "room_id")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteRoom(r.Context(), id); err != nil {
		s.fail(w, "delete_room_failed", "Error deleting room", err, logrus.Fields{"room_id": id})
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: id})
}

func (s *Server) createExit(w http.ResponseWriter, r *http.Request) {
	var in editor.ExitInput
	if err := decodeBody(r, w, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.CreateExit(r.Context(), in)
	if err != nil {
		s.fail(w, "create_exit_failed", "Error creating exit", err, logrus.Fields{
			"name":           in.Name,
			"source_id":      in.SourceID,
			"destination_id": in.DestinationID,
		})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) updateExit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "exit_id")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	var in editor.ExitUpdate
	if err := decodeBody(r, w, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.UpdateExit(r.Context(), id, in)
	if err != nil {
		s.fail(w, "update_exit_failed", "Error updating exit", err, logrus.Fields{"exit_id": id})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteExit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "exit_id")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteExit(r.Context(), id); err != nil {
		s.fail(w, "delete_exit_failed", "Error deleting exit", err, logrus.Fields{"exit_id": id})
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: id})
}
