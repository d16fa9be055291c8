package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/importer"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/internal/render"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

const (
	msgFieldRequired    = "This field is required."
	msgInvalidParent    = "Select a valid destination page."
	msgInternalError    = "Something went wrong."
	msgPageNotFound     = "Page not found."
	contentTypeJSON     = "application/json"
	contentTypeHTML     = "text/html; charset=utf-8"
	contentTypeMarkdown = "text/markdown; charset=utf-8"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// handleImport mirrors the import form: on success the client is sent to the
// destination page's listing, on failure the form error comes back as 422.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	sourceURL := strings.TrimSpace(r.PostForm.Get("source_url"))
	if sourceURL == "" {
		s.writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: msgFieldRequired, Field: "source_url"})
		return
	}
	parentID, err := strconv.ParseInt(r.PostForm.Get("destination"), 10, 64)
	if err != nil || parentID <= 0 {
		s.writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: msgInvalidParent, Field: "destination"})
		return
	}

	result, err := s.importer.Import(r.Context(), importer.ImportRequest{
		SourceURL: sourceURL,
		ParentID:  parentID,
	})
	if err != nil {
		if msg, ok := failure.UserMessage(err); ok {
			s.writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: msg, Field: "source_url"})
			return
		}
		s.log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("source_url", sourceURL).
			Msg("import failed")
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		return
	}

	http.Redirect(w, r, "/pages/"+strconv.FormatInt(result.Page.ParentID, 10), http.StatusSeeOther)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPage(w, r)
	if !ok {
		return
	}
	out, err := s.renderer.RenderStory(r.Context(), p)
	if err != nil {
		s.log.Error().Err(err).Int64("page_id", p.ID).Msg("render failed")
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPage(w, r)
	if !ok {
		return
	}
	result, err := s.converter.ConvertStory(r.Context(), p)
	if err != nil {
		s.log.Error().Err(err).Int64("page_id", p.ID).Msg("markdown conversion failed")
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		return
	}
	w.Header().Set("Content-Type", contentTypeMarkdown)
	_, _ = w.Write(result.GetMarkdownContent())
}

func (s *Server) loadPage(w http.ResponseWriter, r *http.Request) (*page.StoryPage, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: msgPageNotFound})
		return nil, false
	}
	p, found, err := s.pages.Get(r.Context(), id)
	if err != nil && !errors.Is(err, page.ErrNotFound) {
		s.log.Error().Err(err).Int64("page_id", id).Msg("page lookup failed")
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		return nil, false
	}
	if !found {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: msgPageNotFound})
		return nil, false
	}
	return p, true
}

func (s *Server) handleExternal(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookupExternal(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(entry)
}

func (s *Server) handleExternalEmbed(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookupExternal(w, r)
	if !ok {
		return
	}
	out, err := render.RenderEmbed(render.ExternalCard(entry))
	if err != nil {
		s.log.Error().Err(err).Str("url", entry.URL).Msg("embed render failed")
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	_, _ = w.Write([]byte(out))
}

func (s *Server) lookupExternal(w http.ResponseWriter, r *http.Request) (external.ExternalStory, bool) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		s.writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: msgFieldRequired, Field: "url"})
		return external.ExternalStory{}, false
	}
	entry, err := s.external.GetOrFetch(r.Context(), rawURL)
	if err != nil {
		if msg, ok := failure.UserMessage(err); ok {
			s.writeError(w, http.StatusUnprocessableEntity, errorResponse{Error: msg, Field: "url"})
			return external.ExternalStory{}, false
		}
		s.log.Error().Err(err).Str("url", rawURL).Msg("external story lookup failed")
		s.writeError(w, http.StatusBadGateway, errorResponse{Error: msgInternalError})
		return external.ExternalStory{}, false
	}
	return entry, true
}

func (s *Server) writeError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
