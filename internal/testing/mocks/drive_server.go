package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/dl-alexandre/gdsync/internal/api"
	"github.com/dl-alexandre/gdsync/internal/logging"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Operation names accepted by FailNext and Calls
const (
	OpList   = "list"
	OpCreate = "create"
	OpDelete = "delete"
	OpGet    = "get"
)

var parentQuery = regexp.MustCompile(`'([^']+)' in parents`)

// StoredFile is an object held by the fake Drive server
type StoredFile struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Content  []byte
	seq      int
}

type session struct {
	meta drive.File
	data []byte
}

type failure struct {
	status int
	times  int
}

// DriveServer is an in-memory Drive v3 endpoint covering files.list,
// files.get, files.create (metadata, multipart and resumable) and files.delete.
type DriveServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]*StoredFile
	sessions map[string]*session
	failures map[string]*failure
	calls    map[string]int
	seq      int
	pageSize int
}

// NewDriveServer starts a fake Drive server that is closed with the test
func NewDriveServer(t *testing.T) *DriveServer {
	t.Helper()
	s := &DriveServer{
		files:    make(map[string]*StoredFile),
		sessions: make(map[string]*session),
		failures: make(map[string]*failure),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Service returns a Drive service bound to the fake server
func (s *DriveServer) Service(t *testing.T) *drive.Service {
	t.Helper()
	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(s.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("creating drive service: %v", err)
	}
	return svc
}

// Client returns an api.Client bound to the fake server with no retries
func (s *DriveServer) Client(t *testing.T) *api.Client {
	t.Helper()
	return api.NewClient(s.Service(t), 0, 1, logging.NewNoOpLogger())
}

// SetPageSize caps the number of files returned per list page
func (s *DriveServer) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// FailNext makes the next `times` calls of op answer with status
func (s *DriveServer) FailNext(op string, status int, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &failure{status: status, times: times}
}

// Calls returns how many requests of op the server has received
func (s *DriveServer) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddFile seeds an object under parentID and returns its ID
func (s *DriveServer) AddFile(parentID, name, mimeType string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(drive.File{Name: name, MimeType: mimeType, Parents: []string{parentID}}, content).ID
}

// File returns a stored object by ID
func (s *DriveServer) File(id string) (*StoredFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	return f, ok
}

// Children returns the objects under parentID in creation order
func (s *DriveServer) Children(parentID string) []*StoredFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children(parentID)
}

func (s *DriveServer) children(parentID string) []*StoredFile {
	var out []*StoredFile
	for _, f := range s.files {
		if parentID == "" || contains(f.Parents, parentID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *DriveServer) store(meta drive.File, content []byte) *StoredFile {
	s.seq++
	f := &StoredFile{
		ID:       fmt.Sprintf("file-%d", s.seq),
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Parents:  meta.Parents,
		Content:  content,
		seq:      s.seq,
	}
	if f.MimeType == "" {
		f.MimeType = "application/octet-stream"
	}
	s.files[f.ID] = f
	return f
}

// injected consumes a pending failure for op and reports whether one fired
func (s *DriveServer) injected(w http.ResponseWriter, op string) bool {
	s.calls[op]++
	f, ok := s.failures[op]
	if !ok || f.times <= 0 {
		return false
	}
	f.times--
	writeError(w, f.status, http.StatusText(f.status))
	return true
}

func (s *DriveServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/upload/session/"):
		s.handleChunk(w, r, strings.TrimPrefix(r.URL.Path, "/upload/session/"))
	case strings.HasSuffix(r.URL.Path, "/upload/drive/v3/files") && r.Method == http.MethodPost:
		if s.injected(w, OpCreate) {
			return
		}
		switch r.URL.Query().Get("uploadType") {
		case "resumable":
			s.handleStartSession(w, r)
		default:
			s.handleMultipart(w, r)
		}
	case r.URL.Path == "/files" && r.Method == http.MethodPost:
		if s.injected(w, OpCreate) {
			return
		}
		var meta drive.File
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toDriveFile(s.store(meta, nil)))
	case strings.HasPrefix(r.URL.Path, "/files/") && r.Method == http.MethodGet:
		if s.injected(w, OpGet) {
			return
		}
		f, ok := s.files[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found: "+strings.TrimPrefix(r.URL.Path, "/files/"))
			return
		}
		writeJSON(w, http.StatusOK, toDriveFile(f))
	case r.URL.Path == "/files" && r.Method == http.MethodGet:
		if s.injected(w, OpList) {
			return
		}
		s.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/files/") && r.Method == http.MethodDelete:
		if s.injected(w, OpDelete) {
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		if _, ok := s.files[id]; !ok {
			writeError(w, http.StatusNotFound, "File not found: "+id)
			return
		}
		delete(s.files, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotFound, "unhandled "+r.Method+" "+r.URL.Path)
	}
}

func (s *DriveServer) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	parentID := ""
	if m := parentQuery.FindStringSubmatch(query.Get("q")); m != nil {
		parentID = m[1]
	}

	all := s.children(parentID)
	offset, _ := strconv.Atoi(query.Get("pageToken"))
	limit := s.pageSize
	if limit <= 0 {
		limit, _ = strconv.Atoi(query.Get("pageSize"))
	}
	if limit <= 0 {
		limit = len(all)
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	list := &drive.FileList{Files: []*drive.File{}}
	if offset < len(all) {
		for _, f := range all[offset:end] {
			list.Files = append(list.Files, toDriveFile(f))
		}
	}
	if end < len(all) {
		list.NextPageToken = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *DriveServer) handleMultipart(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reader := multipart.NewReader(r.Body, params["boundary"])

	var meta drive.File
	part, err := reader.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var content []byte
	if part, err = reader.NextPart(); err == nil {
		content, _ = io.ReadAll(part)
		if meta.MimeType == "" {
			meta.MimeType = part.Header.Get("Content-Type")
		}
	}

	writeJSON(w, http.StatusOK, toDriveFile(s.store(meta, content)))
}

func (s *DriveServer) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var meta drive.File
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if meta.MimeType == "" {
		meta.MimeType = r.Header.Get("X-Upload-Content-Type")
	}
	s.seq++
	id := strconv.Itoa(s.seq)
	s.sessions[id] = &session{meta: meta}
	w.Header().Set("Location", s.URL+"/upload/session/"+id)
	w.WriteHeader(http.StatusOK)
}

// handleChunk accepts one chunk of a resumable session. A Content-Range with a
// known total completes the upload; "*" acknowledges the chunk as incomplete.
func (s *DriveServer) handleChunk(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := s.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown upload session")
		return
	}
	body, _ := io.ReadAll(r.Body)
	sess.data = append(sess.data, body...)

	contentRange := r.Header.Get("Content-Range")
	total := contentRange[strings.LastIndex(contentRange, "/")+1:]
	if total == "*" {
		w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", len(sess.data)-1))
		// Clients that opt out of 308 get 200 with a status override header.
		if r.Header.Get("X-GUploader-No-308") == "yes" {
			w.Header().Set("X-Http-Status-Code-Override", "308")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusPermanentRedirect)
		return
	}

	delete(s.sessions, id)
	writeJSON(w, http.StatusOK, toDriveFile(s.store(sess.meta, sess.data)))
}

func toDriveFile(f *StoredFile) *drive.File {
	return &drive.File{
		Id:       f.ID,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Size:     int64(len(f.Content)),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
			"errors": []map[string]string{
				{"reason": reasonFor(status), "message": message},
			},
		},
	})
}

func reasonFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return "notFound"
	case http.StatusTooManyRequests:
		return "rateLimitExceeded"
	case http.StatusForbidden:
		return "insufficientPermissions"
	default:
		return "backendError"
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
