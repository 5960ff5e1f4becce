// Package drivetest provides an in-memory stand-in for the Drive v3 REST
// API and the OAuth2 token endpoint, so the real client library can be
// exercised end to end in tests. It implements only what drivegate calls:
// files list/get/create/update/delete and multipart content upload.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	accessToken    = "drivetest-access-token"
)

var mimeQuery = regexp.MustCompile(`^mimeType\s*(=|!=)\s*'([^']*)'$`)

// Record is one stored item.
type Record struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Content  []byte
}

// Request is a recorded API call, for assertions.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
}

// Server fakes the provider. Items are listed in creation order.
type Server struct {
	srv *httptest.Server

	mu           sync.Mutex
	items        map[string]*Record
	order        []string
	nextID       int
	requests     []Request
	rejectTokens bool
	failures     map[string]int // "METHOD path-suffix" -> status
}

// NewServer starts a fake and registers its shutdown with t.Cleanup.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		items:    make(map[string]*Record),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/", s.handleAPI)

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)

	return s
}

// URL is the fake's base URL.
func (s *Server) URL() string { return s.srv.URL }

// TokenURL is the OAuth2 token endpoint to put in a service-account file.
func (s *Server) TokenURL() string { return s.srv.URL + "/token" }

// Endpoint is the API base URL for option.WithEndpoint.
func (s *Server) Endpoint() string { return s.srv.URL + "/drive/v3/" }

// RejectTokens makes the token endpoint refuse every assertion.
func (s *Server) RejectTokens(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectTokens = reject
}

// FailNext makes the next API call with method whose path ends in suffix
// answer with status.
func (s *Server) FailNext(method, suffix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[method+" "+suffix] = status
}

// AddFolder stores a folder and returns its ID.
func (s *Server) AddFolder(name string, parents ...string) string {
	return s.add(name, folderMimeType, parents, nil)
}

// AddFile stores a file and returns its ID.
func (s *Server) AddFile(name, mimeType string, parents ...string) string {
	return s.add(name, mimeType, parents, nil)
}

// Item returns a copy of the stored record.
func (s *Server) Item(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return Record{}, false
	}

	return cloneRecord(r), true
}

// Requests returns the API calls seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.requests)
}

func (s *Server) add(name, mimeType string, parents []string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addLocked(name, mimeType, parents, content)
}

func (s *Server) addLocked(name, mimeType string, parents []string, content []byte) string {
	s.nextID++
	id := fmt.Sprintf("item-%03d", s.nextID)

	s.items[id] = &Record{
		ID:       id,
		Name:     name,
		MimeType: mimeType,
		Parents:  slices.Clone(parents),
		Content:  content,
	}
	s.order = append(s.order, id)

	return id
}

func cloneRecord(r *Record) Record {
	return Record{
		ID:       r.ID,
		Name:     r.Name,
		MimeType: r.MimeType,
		Parents:  slices.Clone(r.Parents),
		Content:  slices.Clone(r.Content),
	}
}

// fileJSON is the wire shape returned for an item.
type fileJSON struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	MimeType      string   `json:"mimeType"`
	Parents       []string `json:"parents,omitempty"`
	FileExtension string   `json:"fileExtension,omitempty"`
}

func toJSON(r *Record) fileJSON {
	out := fileJSON{
		ID:       r.ID,
		Name:     r.Name,
		MimeType: r.MimeType,
		Parents:  slices.Clone(r.Parents),
	}

	if r.MimeType != folderMimeType {
		out.FileExtension = strings.TrimPrefix(path.Ext(r.Name), ".")
	}

	return out
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.rejectTokens
	s.mu.Unlock()

	if err := r.ParseForm(); err != nil || r.PostForm.Get("assertion") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	if reject {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid JWT Signature.",
		})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+accessToken {
		writeError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
		return
	}

	idx := strings.Index(r.URL.Path, "/files")
	if idx < 0 {
		writeError(w, http.StatusNotFound, "unknown path "+r.URL.Path)
		return
	}

	upload := strings.Contains(r.URL.Path[:idx], "/upload") || r.URL.Query().Get("uploadType") != ""
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path[idx:], "/files"), "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(r)

	if status, ok := s.takeFailure(r); ok {
		writeError(w, status, "injected failure")
		return
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		s.list(w, r)
	case r.Method == http.MethodGet:
		s.get(w, id)
	case r.Method == http.MethodDelete:
		s.delete(w, id)
	case r.Method == http.MethodPost && id == "":
		s.create(w, r, upload)
	case r.Method == http.MethodPatch && id != "":
		s.update(w, r, id, upload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) record(r *http.Request) {
	q := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		q[k] = strings.Join(v, ",")
	}

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: q})
}

func (s *Server) takeFailure(r *http.Request) (int, bool) {
	for key, status := range s.failures {
		method, suffix, _ := strings.Cut(key, " ")
		if method == r.Method && strings.HasSuffix(r.URL.Path, suffix) {
			delete(s.failures, key)
			return status, true
		}
	}

	return 0, false
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	pageSize := 100
	if ps := query.Get("pageSize"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid pageSize")
			return
		}

		pageSize = n
	}

	match := func(*Record) bool { return true }

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		m := mimeQuery.FindStringSubmatch(q)
		if m == nil {
			writeError(w, http.StatusBadRequest, "unsupported query "+q)
			return
		}

		op, want := m[1], m[2]
		match = func(rec *Record) bool { return (rec.MimeType == want) == (op == "=") }
	}

	files := make([]fileJSON, 0)
	next := ""

	for _, id := range s.order {
		rec, ok := s.items[id]
		if !ok || !match(rec) {
			continue
		}

		if len(files) == pageSize {
			next = "page-2"
			break
		}

		files = append(files, toJSON(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": files, "nextPageToken": next})
}

func (s *Server) get(w http.ResponseWriter, id string) {
	rec, ok := s.items[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	writeJSON(w, http.StatusOK, toJSON(rec))
}

func (s *Server) delete(w http.ResponseWriter, id string) {
	if _, ok := s.items[id]; !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })

	w.WriteHeader(http.StatusNoContent)
}

// metadataBody is the subset of file metadata clients send.
type metadataBody struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, upload bool) {
	meta, content, err := readBody(r, upload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, p := range meta.Parents {
		if _, ok := s.items[p]; !ok {
			writeError(w, http.StatusNotFound, "File not found: "+p+".")
			return
		}
	}

	if meta.MimeType == "" {
		meta.MimeType = "application/octet-stream"
	}

	id := s.addLocked(meta.Name, meta.MimeType, meta.Parents, content)
	writeJSON(w, http.StatusOK, toJSON(s.items[id]))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, id string, upload bool) {
	rec, ok := s.items[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	meta, content, err := readBody(r, upload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()

	if add := query.Get("addParents"); add != "" {
		for _, p := range strings.Split(add, ",") {
			if _, ok := s.items[p]; !ok {
				writeError(w, http.StatusNotFound, "File not found: "+p+".")
				return
			}
		}
	}

	if meta.Name != "" {
		rec.Name = meta.Name
	}

	if remove := query.Get("removeParents"); remove != "" {
		drop := strings.Split(remove, ",")
		rec.Parents = slices.DeleteFunc(rec.Parents, func(p string) bool { return slices.Contains(drop, p) })
	}

	if add := query.Get("addParents"); add != "" {
		for _, p := range strings.Split(add, ",") {
			if !slices.Contains(rec.Parents, p) {
				rec.Parents = append(rec.Parents, p)
			}
		}
	}

	if upload {
		rec.Content = content
	}

	writeJSON(w, http.StatusOK, toJSON(rec))
}

// readBody decodes a JSON metadata body, or a multipart/related upload
// whose first part is metadata and second part is content.
func readBody(r *http.Request, upload bool) (metadataBody, []byte, error) {
	var meta metadataBody

	if !upload {
		if r.Body == nil {
			return meta, nil, nil
		}

		data, err := io.ReadAll(r.Body)
		if err != nil {
			return meta, nil, err
		}

		if len(data) > 0 {
			if err := json.Unmarshal(data, &meta); err != nil {
				return meta, nil, fmt.Errorf("decoding metadata: %w", err)
			}
		}

		return meta, nil, nil
	}

	if t := r.URL.Query().Get("uploadType"); t != "multipart" {
		return meta, nil, fmt.Errorf("uploadType %q not supported", t)
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return meta, nil, fmt.Errorf("expected multipart body, got %q", r.Header.Get("Content-Type"))
	}

	mr := multipart.NewReader(r.Body, params["boundary"])

	part, err := mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("reading metadata part: %w", err)
	}

	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		return meta, nil, fmt.Errorf("decoding metadata part: %w", err)
	}

	part, err = mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("reading media part: %w", err)
	}

	content, err := io.ReadAll(part)
	if err != nil {
		return meta, nil, fmt.Errorf("reading media: %w", err)
	}

	if meta.MimeType == "" {
		meta.MimeType = part.Header.Get("Content-Type")
	}

	return meta, content, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": msg,
		},
	})
}
