package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/efb-avv-checker/internal/domain"
)

// Catalog is the lookup surface served over HTTP. checker.Service implements it.
type Catalog interface {
	CheckReadiness(ctx context.Context) error
	Meta(ctx context.Context) (domain.Meta, error)
	Sites(ctx context.Context) ([]domain.SiteSummary, error)
	Site(ctx context.Context, id int64) (domain.SiteSummary, error)
	Codes(ctx context.Context, id int64, filter string) ([]domain.WasteCode, error)
	Check(ctx context.Context, id int64, input string) (domain.CheckResult, error)
	Locate(ctx context.Context, id int64) (domain.Location, error)
}

type apiHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

type sitesResponse struct {
	Sites []domain.SiteSummary `json:"sites"`
}

type codesResponse struct {
	SiteID int64              `json:"site_id"`
	Filter string             `json:"filter,omitempty"`
	Count  int                `json:"count"`
	Codes  []domain.WasteCode `json:"codes"`
}

type checkResponse struct {
	domain.CheckResult
	Notice string `json:"notice"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *apiHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/meta", h.handleMeta)
	mux.HandleFunc("GET /api/v1/sites", h.handleSites)
	mux.HandleFunc("GET /api/v1/sites/{id}", h.handleSite)
	mux.HandleFunc("GET /api/v1/sites/{id}/codes", h.handleCodes)
	mux.HandleFunc("GET /api/v1/sites/{id}/check", h.handleCheck)
	mux.HandleFunc("GET /api/v1/sites/{id}/location", h.handleLocation)
}

func (h *apiHandler) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.catalog.Meta(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *apiHandler) handleSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.catalog.Sites(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if sites == nil {
		sites = []domain.SiteSummary{}
	}
	writeJSON(w, http.StatusOK, sitesResponse{Sites: sites})
}

func (h *apiHandler) handleSite(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	site, err := h.catalog.Site(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (h *apiHandler) handleCodes(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	filter := r.URL.Query().Get("filter")
	codes, err := h.catalog.Codes(r.Context(), id, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if codes == nil {
		codes = []domain.WasteCode{}
	}
	writeJSON(w, http.StatusOK, codesResponse{SiteID: id, Filter: filter, Count: len(codes), Codes: codes})
}

func (h *apiHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	res, err := h.catalog.Check(r.Context(), id, r.URL.Query().Get("avv"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{CheckResult: res, Notice: domain.CheckNotice})
}

func (h *apiHandler) handleLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	loc, err := h.catalog.Locate(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// siteID parses the {id} path segment, writing a 400 when it is not a
// positive integer.
func siteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid site id"})
		return 0, false
	}
	return id, true
}

func (h *apiHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "site not found"})
		return
	}
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
