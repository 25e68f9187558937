package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/logging"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/table"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, Response{Success: false, Error: msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil && !s.ready() {
		writeError(w, http.StatusServiceUnavailable, "backend not loaded")
		return
	}
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	st := StatusResponse{
		Uptime:     time.Since(s.startTime).Truncate(time.Second).String(),
		Device:     uint32(s.tables.Device()),
		Backend:    s.backend,
		TableCount: len(s.tables.Tables()),
	}
	if s.events != nil {
		st.Events = s.events.Total()
	}
	writeOK(w, st)
}

func (s *Server) tablesHandler(w http.ResponseWriter, _ *http.Request) {
	counts := make(map[string][2]int)
	for _, st := range s.tables.TableStates() {
		counts[st.Table] = [2]int{st.Members, st.Groups}
	}
	var out []TableSummary
	for _, t := range s.tables.Tables() {
		out = append(out, summarize(t, counts))
	}
	writeOK(w, out)
}

func (s *Server) tableHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.tables.TableByName(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	counts := make(map[string][2]int)
	for _, st := range s.tables.TableStates() {
		counts[st.Table] = [2]int{st.Members, st.Groups}
	}
	writeOK(w, summarize(t, counts))
}

// eventsHandler returns recent events, newest first. Query parameters:
// table, type and limit (default 100). With follow=true new events are
// streamed instead.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := logging.EventFilter{Table: q.Get("table"), Type: q.Get("type")}
	if q.Get("follow") == "true" {
		s.followEvents(w, r, filter)
		return
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	events := s.events.LatestFiltered(limit, filter)
	if events == nil {
		events = []logging.EventRecord{}
	}
	writeOK(w, events)
}

// followEvents writes events matching f as newline-delimited JSON until
// the client disconnects.
func (s *Server) followEvents(w http.ResponseWriter, r *http.Request, f logging.EventFilter) {
	sub := s.events.Subscribe(64)
	defer sub.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return
	}
	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case rec := <-sub.C:
			if !f.Matches(&rec) {
				continue
			}
			if err := enc.Encode(rec); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func summarize(t *table.Table, counts map[string][2]int) TableSummary {
	info := t.Info()
	ts := TableSummary{
		Name:     info.Name,
		ID:       uint32(info.ID),
		Kind:     info.Kind.String(),
		Size:     info.Size,
		Profile:  uint32(info.ProfileID),
		Selector: uint32(info.SelectorID),
	}
	if info.Idle {
		ts.Idle = t.IdleConfig().Mode.String()
	}
	switch info.Kind {
	case catalog.KindMatchDirect, catalog.KindMatchIndirect:
		if n, err := t.Usage(pipe.AllPipes); err == nil {
			ts.Entries = &n
		}
	case catalog.KindActionProfile:
		c := counts[info.Name]
		ts.Members, ts.Groups = &c[0], &c[1]
	}
	return ts
}
