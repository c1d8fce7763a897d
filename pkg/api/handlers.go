package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/auth"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/pubsub"
	"github.com/dd0wney/cluso-frlayout/pkg/service"
)

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Version string `json:"version"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req service.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	fields := []logging.Field{logging.String("graph_id", req.GraphID)}
	if c, ok := auth.ClaimsFrom(r.Context()); ok {
		fields = append(fields, logging.String("subject", c.Subject))
	}

	res, err := s.svc.Layout(r.Context(), &req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.logger.Info("layout served", append(fields,
		logging.RunID(res.RunID),
		logging.Nodes(len(res.Positions)),
		logging.Latency(res.Elapsed),
	)...)
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.ListGraphs(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"graphs": ids})
}

func (s *Server) handleDefaults(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.Defaults())
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleEvents streams lifecycle events as server-sent events until the
// client goes away. ?run= narrows the stream to one run.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	bus := s.svc.Bus()
	if bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "event streaming is not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	topic := r.URL.Query().Get("run")
	if topic == "" {
		topic = pubsub.AllRuns
	}
	sub, err := bus.Subscribe(r.Context(), topic)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			if msg.Event == nil {
				continue
			}
			data, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event.Type, data)
			flusher.Flush()
		}
	}
}
