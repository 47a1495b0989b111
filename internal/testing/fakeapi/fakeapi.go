// Package fakeapi serves an in-memory imitation of the Airtable REST API for
// tests
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/airtable/pkg/record"
)

// Default credentials accepted by a new Server
const (
	AppID  = "appFAKE"
	APIKey = "keyFAKE"
)

// Request is one call the server received
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      map[string]any
	RequestID string
}

type table struct {
	order   []string
	records map[string]map[string]any
}

type canned struct {
	status int
	body   string
}

// Server is a fake API backed by httptest
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tables   map[string]*table
	requests []Request
	canned   map[string]canned
	gate     chan struct{}
	seq      int
	created  time.Time
}

// New starts a server. Close it when done.
func New() *Server {
	s := &Server{
		tables:  map[string]*table{},
		canned:  map[string]canned{},
		created: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	r := chi.NewRouter()
	r.Route("/v0/{app}", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.observe)
		r.Get("/{table}", s.list)
		r.Post("/{table}", s.create)
		r.Get("/{table}/{id}", s.get)
		r.Put("/{table}/{id}", s.update)
		r.Delete("/{table}/{id}", s.remove)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the API root to configure clients with
func (s *Server) BaseURL() string {
	return s.URL + "/v0"
}

// Seed inserts a record with a generated id and returns the id
func (s *Server) Seed(tableName string, fields map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(tableName, "", fields)
}

// SeedWithID inserts a record under id
func (s *Server) SeedWithID(tableName, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(tableName, id, fields)
}

// Lookup returns a copy of a stored record
func (s *Server) Lookup(tableName, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil, false
	}
	rec, ok := t.records[id]
	if !ok {
		return nil, false
	}
	return record.Clone(rec), true
}

// Respond makes every later method call on path (relative to the app, e.g.
// "People/rec1") answer with status and the raw body
func (s *Server) Respond(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canned[cannedKey(method, path)] = canned{status: status, body: body}
}

// Fail makes every later method call on path answer with an API error object
func (s *Server) Fail(method, path string, status int, reason, message string) {
	body, _ := json.Marshal(errorBody(status, reason, message))
	s.Respond(method, path, status, string(body))
}

// Block holds every request until the returned release func is called
func (s *Server) Block() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many method requests hit path (relative to the app)
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "app") != AppID {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+APIKey {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs the request, applies canned responses and waits on the gate
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v0/"+AppID+"/")

		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      path,
			Query:     r.URL.Query(),
			Body:      body,
			RequestID: r.Header.Get("X-Request-ID"),
		})
		c, hasCanned := s.canned[cannedKey(r.Method, path)]
		gate := s.gate
		s.mu.Unlock()

		if gate != nil {
			<-gate
		}

		if hasCanned {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
			return
		}

		ctx := r.Context()
		if body != nil {
			ctx = withBody(ctx, body)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	t := s.tables[chi.URLParam(r, "table")]
	var records []map[string]any
	if t != nil {
		for _, id := range t.order {
			records = append(records, record.Clone(t.records[id]))
		}
	}
	s.mu.Unlock()

	start, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if start > len(records) {
		start = len(records)
	}
	records = records[start:]

	resp := map[string]any{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(records) {
		records = records[:limit]
		resp["offset"] = strconv.Itoa(start + limit)
	}
	if records == nil {
		records = []map[string]any{}
	}
	resp["records"] = records
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.Lookup(chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	fields, ok := requestFields(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_MISSING_FIELDS", "Could not find field \"fields\" in the request body")
		return
	}

	s.mu.Lock()
	id := s.insert(chi.URLParam(r, "table"), "", fields)
	s.mu.Unlock()

	rec, _ := s.Lookup(chi.URLParam(r, "table"), id)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	fields, ok := requestFields(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_MISSING_FIELDS", "Could not find field \"fields\" in the request body")
		return
	}
	tableName, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")

	s.mu.Lock()
	t := s.tables[tableName]
	if t == nil || t.records[id] == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
		return
	}
	t.records[id]["fields"] = record.Clone(fields)
	s.mu.Unlock()

	rec, _ := s.Lookup(tableName, id)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	tableName, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")

	s.mu.Lock()
	t := s.tables[tableName]
	if t == nil || t.records[id] == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
		return
	}
	delete(t.records, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// insert must be called with s.mu held
func (s *Server) insert(tableName, id string, fields map[string]any) string {
	t, ok := s.tables[tableName]
	if !ok {
		t = &table{records: map[string]map[string]any{}}
		s.tables[tableName] = t
	}

	s.seq++
	if id == "" {
		id = fmt.Sprintf("rec%014d", s.seq)
	}
	if _, exists := t.records[id]; !exists {
		t.order = append(t.order, id)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	t.records[id] = map[string]any{
		"id":          id,
		"createdTime": s.created.Add(time.Duration(s.seq) * time.Second).Format(record.CreatedTimeLayout),
		"fields":      record.Clone(fields),
	}
	return id
}

func requestFields(r *http.Request) (map[string]any, bool) {
	body := bodyFrom(r.Context())
	fields, ok := body["fields"].(map[string]any)
	return fields, ok
}

func cannedKey(method, path string) string {
	return method + " " + strings.Trim(path, "/")
}

func errorBody(status int, reason, message string) map[string]any {
	return map[string]any{"error": reason, "message": message, "status": status}
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, errorBody(status, reason, message))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
