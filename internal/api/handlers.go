package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/store"
	"github.com/tres-passos/marketplace/internal/users"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	st := s.deps.Health.Status()
	body := map[string]any{"status": "ok", "store": st}
	status := http.StatusOK
	if !st.Healthy {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.GetAllServices(r.Context()))
}

func (s *Server) handleClearCatalogCache(w http.ResponseWriter, _ *http.Request) {
	s.deps.Catalog.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// scopeFromQuery reads the catalog position from the query string.
func scopeFromQuery(r *http.Request) (model.CatalogScope, bool) {
	q := r.URL.Query()
	scope := model.CatalogScope{
		ServiceID:    strings.TrimSpace(q.Get("service_id")),
		SubServiceID: strings.TrimSpace(q.Get("sub_service_id")),
		SpecialtyID:  strings.TrimSpace(q.Get("specialty_id")),
	}
	level, _ := scope.Lookup()
	return scope, level != model.LevelNone
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "service_id, sub_service_id or specialty_id is required")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.GetQuestions(r.Context(), scope))
}

func (s *Server) handleServiceItems(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "service_id, sub_service_id or specialty_id is required")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.GetServiceItems(r.Context(), scope))
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var quote model.QuoteDetails
	if !decodeJSON(w, r, &quote) {
		return
	}
	if level, _ := quote.Scope().MostSpecific(); level == model.LevelNone {
		writeError(w, http.StatusBadRequest, "serviceId is required")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Matcher.FindMatchingProviders(r.Context(), quote))
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	details, ok := s.deps.Matcher.GetProviderDetails(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleSendQuote(w http.ResponseWriter, r *http.Request) {
	var quote model.QuoteDetails
	if !decodeJSON(w, r, &quote) {
		return
	}
	res := s.deps.Matcher.SendQuoteToProvider(r.Context(), quote, chi.URLParam(r, "id"))
	switch {
	case res.RequiresLogin:
		writeJSON(w, http.StatusUnauthorized, res)
	case !res.Success:
		writeJSON(w, http.StatusInternalServerError, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list := users.Filter(s.deps.Users.List(r.Context()), r.URL.Query().Get("search"))

	if r.URL.Query().Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, list)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="usuarios.xlsx"`)
	if err := users.ExportXLSX(list, w); err != nil {
		zap.L().Error("api: export users", zap.Error(err))
	}
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	err := s.deps.Users.UpdateProfile(r.Context(), chi.URLParam(r, "id"), update)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, users.ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, "no profile fields to update")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		zap.L().Error("api: update profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update profile")
	}
}
