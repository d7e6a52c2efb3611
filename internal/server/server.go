// Package server exposes the prompt store over HTTP for editor plugins and
// automation. Responses use a {success, data} envelope; failures carry the
// structured error with a mapped status code.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/service"
	"github.com/dpshade/promptdiff/internal/store"
)

// Server provides the HTTP API over a service instance.
type Server struct {
	service *service.Service
	port    int
}

// New creates a server on the given port.
func New(svc *service.Service, port int) *Server {
	return &Server{service: svc, port: port}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/prompts", s.handlePromptCollection)
	mux.HandleFunc("/prompts/", s.handlePrompt)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/tags/", s.handleFindByTag)
	mux.HandleFunc("/changelog", s.handleChangelogAll)
	return withCORS(mux)
}

// Start begins serving HTTP requests. It blocks until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("promptdiff server starting on http://localhost%s", addr)
	log.Printf("  GET    /prompts - list tracked prompts")
	log.Printf("  POST   /prompts/{name} - add a revision")
	log.Printf("  GET    /prompts/{name}/versions/{selector} - fetch a revision")
	log.Printf("  GET    /prompts/{name}/diff?from=v1&to=v2 - compare revisions")
	log.Printf("  GET    /prompts/{name}/changelog - revision history")
	log.Printf("  GET    /search?q=... - fuzzy search")

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"status":  "ok",
		"service": "promptdiff",
	})
}

func (s *Server) handlePromptCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	infos, err := s.service.ListPromptInfos()
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, infos)
}

// handlePrompt routes /prompts/{name}[/versions[/{selector}] | /diff |
// /changelog | /tags].
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/prompts/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		errors.WriteHTTPError(w, errors.ValidationError("prompt name is required"))
		return
	}
	name := parts[0]
	rest := parts[1:]

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.getPrompt(w, name)
		case http.MethodPost:
			s.addVersion(w, r, name)
		case http.MethodDelete:
			s.removePrompt(w, name)
		default:
			s.methodNotAllowed(w, r)
		}
		return
	}

	switch rest[0] {
	case "versions":
		if len(rest) == 1 {
			s.listVersions(w, name)
		} else {
			s.getVersion(w, name, rest[1])
		}
	case "diff":
		s.diff(w, r, name)
	case "changelog":
		s.changelog(w, r, name)
	case "tags":
		switch r.Method {
		case http.MethodGet:
			s.getTags(w, name)
		case http.MethodPut:
			s.setTags(w, r, name)
		default:
			s.methodNotAllowed(w, r)
		}
	default:
		errors.WriteHTTPError(w, errors.CommandNotFoundError(rest[0]))
	}
}

func (s *Server) getPrompt(w http.ResponseWriter, name string) {
	infos, err := s.service.ListPromptInfos()
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	for _, info := range infos {
		if info.Name == name {
			s.writeJSON(w, info)
			return
		}
	}
	errors.WriteHTTPError(w, errors.PromptNotFoundError(name))
}

// addVersionRequest is the POST /prompts/{name} body. A non-JSON body is
// treated as raw prompt content.
type addVersionRequest struct {
	Content string `json:"content"`
	Message string `json:"message,omitempty"`
	Tag     string `json:"tag,omitempty"`
}

func (s *Server) addVersion(w http.ResponseWriter, r *http.Request, name string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		errors.WriteHTTPError(w, errors.ValidationError("failed to read request body"))
		return
	}

	req := addVersionRequest{Content: string(body)}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(body, &req); err != nil {
			errors.WriteHTTPError(w, errors.ValidationError("invalid JSON in request body"))
			return
		}
	}

	rev, created, err := s.service.AddVersion(name, req.Content, store.AddOptions{
		Message: req.Message,
		Tag:     req.Tag,
	})
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"revision": rev,
		"created":  created,
	})
}

func (s *Server) removePrompt(w http.ResponseWriter, name string) {
	if err := s.service.RemovePrompt(name); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"removed": name})
}

func (s *Server) listVersions(w http.ResponseWriter, name string) {
	revisions, err := s.service.ListVersions(name)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, revisions)
}

func (s *Server) getVersion(w http.ResponseWriter, name, selector string) {
	rev, err := s.service.GetVersion(name, selector)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, rev)
}

func (s *Server) diff(w http.ResponseWriter, r *http.Request, name string) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = "-2"
	}
	if to == "" {
		to = "latest"
	}
	result, err := s.service.Diff(r.Context(), name, from, to)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) changelog(w http.ResponseWriter, r *http.Request, name string) {
	lastN := 0
	if raw := r.URL.Query().Get("last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errors.WriteHTTPError(w, errors.ValidationError("'last' must be a non-negative integer"))
			return
		}
		lastN = n
	}

	if r.URL.Query().Get("format") == "markdown" {
		out, err := s.service.Changelog(r.Context(), name, lastN)
		if err != nil {
			errors.WriteHTTPError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprint(w, out)
		return
	}

	entries, err := s.service.History(r.Context(), name, lastN)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, entries)
}

func (s *Server) getTags(w http.ResponseWriter, name string) {
	tags, err := s.service.Tags(name)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, tags)
}

func (s *Server) setTags(w http.ResponseWriter, r *http.Request, name string) {
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteHTTPError(w, errors.ValidationError("invalid JSON in request body"))
		return
	}
	if err := s.service.SetTags(name, req.Tags); err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.getTags(w, name)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		errors.WriteHTTPError(w, errors.ValidationError("search query 'q' parameter is required"))
		return
	}
	results, err := s.service.SearchPrompts(query)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) handleFindByTag(w http.ResponseWriter, r *http.Request) {
	tag := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tags/"), "/")
	if tag == "" {
		errors.WriteHTTPError(w, errors.ValidationError("tag name is required"))
		return
	}
	names, err := s.service.FindByTag(tag)
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, names)
}

func (s *Server) handleChangelogAll(w http.ResponseWriter, r *http.Request) {
	out, err := s.service.ChangelogAll(r.Context())
	if err != nil {
		errors.WriteHTTPError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown")
	fmt.Fprint(w, out)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	appErr := errors.InvalidCommandError(r.Method, "method not allowed for this endpoint")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(errors.HTTPErrorResponse{Success: false, Error: appErr})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
