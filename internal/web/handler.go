// internal/web/handler.go
//
// HTTP surface for the site registry.
//
// Context
// -------
// The engine's output is consumed by an admin UI that renders the listing
// table and the edit/delete screens.  This layer only speaks JSON: rows
// in display form plus per-row operation links the UI treats as opaque.
//
// Routes
// ------
//
//	GET  /sites                   – enriched, sorted, paginated listing
//	GET  /sites/{siteID}/edit     – editable fields for one site
//	POST /sites/{siteID}/edit     – update the legacy fields
//	GET  /sites/{siteID}/delete   – deletion confirmation descriptor
//
// Query parameters on /sites: `sort` (column name), `order` (asc|desc),
// `page` (zero-based, clamped).
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/multisite/internal/enrich"
	"github.com/yanizio/multisite/internal/listing"
	"github.com/yanizio/multisite/internal/registry"
)

// Enricher is the aggregator seam; satisfied by *enrich.Aggregator.
type Enricher interface {
	Enrich(ctx context.Context, recs []registry.Record) []enrich.Row
}

// Handler serves the registry routes.
type Handler struct {
	db       *sqlx.DB
	enricher Enricher
	pageSize int
}

// New wires a Handler over the shared registry pool.
func New(db *sqlx.DB, enricher Enricher, pageSize int) *Handler {
	return &Handler{db: db, enricher: enricher, pageSize: pageSize}
}

// Routes mounts the registry endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/sites", h.listSites)
	r.Route("/sites/{siteID}", func(r chi.Router) {
		r.Get("/edit", h.editSite)
		r.Post("/edit", h.updateSite)
		r.Get("/delete", h.deleteSite)
	})
	return r
}

//
// Listing
//

type operationLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// siteView is one listing row in display form.
type siteView struct {
	SiteID          uint64          `json:"site_id"`
	Path            string          `json:"path"`
	URI             string          `json:"uri"`
	Name            string          `json:"name,omitempty"`
	PrimaryBaseURL  string          `json:"primary_base_url,omitempty"`
	LegacyID        string          `json:"d7_site_id"`
	LegacyPath      string          `json:"d7_site_path,omitempty"`
	LastAdminAccess int64           `json:"last_admin_access,omitempty"`
	LastContentEdit string          `json:"last_content_edit,omitempty"`
	SiteAdmins      []string        `json:"site_admins,omitempty"`
	Status          string          `json:"status"`
	Operations      []operationLink `json:"operations"`
}

type listResponse struct {
	Caption   string     `json:"caption"`
	Total     int        `json:"total"`
	PageIndex int        `json:"page_index"`
	PageCount int        `json:"page_count"`
	HasNext   bool       `json:"has_next"`
	Sites     []siteView `json:"sites"`
}

func (h *Handler) listSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recs, err := registry.All(ctx, h.db)
	if err != nil {
		zap.L().Error("registry read failed", zap.Error(err))
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	rows := h.enricher.Enrich(ctx, recs)

	q := r.URL.Query()
	req := listing.ParseRequest(q.Get("sort"), q.Get("order"))
	listing.Sort(rows, req)

	pageIndex, _ := strconv.Atoi(q.Get("page"))
	page := listing.Paginate(rows, h.pageSize, pageIndex)

	resp := listResponse{
		Caption:   fmt.Sprintf("Existing Sites: %d", page.TotalCount),
		Total:     page.TotalCount,
		PageIndex: page.PageIndex,
		PageCount: page.PageCount,
		HasNext:   page.HasNext,
		Sites:     make([]siteView, 0, len(page.Items)),
	}
	for i := range page.Items {
		resp.Sites = append(resp.Sites, viewOf(&page.Items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func viewOf(row *enrich.Row) siteView {
	v := siteView{
		SiteID:          row.SiteID,
		Path:            row.Path,
		URI:             row.URI,
		Name:            row.DisplayName,
		PrimaryBaseURL:  row.PrimaryBaseURL,
		LegacyID:        enrich.NotSet,
		LastAdminAccess: row.LastAdminAccess,
		LastContentEdit: row.LastContentEdit,
		SiteAdmins:      row.AdminNames,
		Status:          row.Record.Status.Label(),
		Operations:      operationsFor(row.SiteID),
	}
	if row.LegacyID.Valid && row.LegacyID.String != "" {
		v.LegacyID = row.LegacyID.String
	}
	if row.LegacyPath.Valid {
		v.LegacyPath = row.LegacyPath.String
	}
	return v
}

func operationsFor(siteID uint64) []operationLink {
	base := fmt.Sprintf("/sites/%d", siteID)
	return []operationLink{
		{Name: "create alias", URL: base + "/aliases/create"},
		{Name: "view aliases", URL: base + "/aliases"},
		{Name: "edit site", URL: base + "/edit"},
		{Name: "delete site", URL: base + "/delete"},
	}
}

//
// Edit flow
//

type editView struct {
	SiteID     uint64 `json:"site_id"`
	Path       string `json:"site_path"`
	URI        string `json:"uri"`
	Status     string `json:"status"`
	LegacyID   string `json:"d7_site_id"`
	LegacyPath string `json:"d7_site_path"`
}

func (h *Handler) editSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.siteID(w, r)
	if !ok {
		return
	}

	rec, err := registry.ByID(r.Context(), h.db, siteID)
	switch {
	case errors.Is(err, registry.ErrDuplicateSite):
		// Refuse to edit rather than guess which row to act on.
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("Can not edit site. More than one site has this site ID: %d", siteID),
		})
		return
	case errors.Is(err, registry.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		zap.L().Error("site lookup failed", zap.Uint64("site_id", siteID), zap.Error(err))
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	v := editView{
		SiteID: rec.SiteID,
		Path:   rec.Path,
		URI:    rec.URI,
		Status: rec.Status.Label(),
	}
	if rec.LegacyID.Valid {
		v.LegacyID = rec.LegacyID.String
	}
	if rec.LegacyPath.Valid {
		v.LegacyPath = rec.LegacyPath.String
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) updateSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.siteID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	legacyID := r.PostFormValue("d7_site_id")
	legacyPath := r.PostFormValue("d7_site_path")

	err := registry.UpdateLegacyFields(r.Context(), h.db, siteID, legacyID, legacyPath)
	switch {
	case errors.Is(err, registry.ErrNoRowsUpdated):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "Failed to update Drupal 7 data.",
		})
	case err != nil:
		zap.L().Error("site update failed", zap.Uint64("site_id", siteID), zap.Error(err))
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Drupal 7 data updated successfully.",
		})
	}
}

//
// Delete confirmation
//

func (h *Handler) deleteSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.siteID(w, r)
	if !ok {
		return
	}

	rec, err := registry.ByID(r.Context(), h.db, siteID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		zap.L().Error("site lookup failed", zap.Uint64("site_id", siteID), zap.Error(err))
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	// Removal itself is provisioning's job; this endpoint only hands the
	// UI its confirmation descriptor.
	writeJSON(w, http.StatusOK, map[string]any{
		"question":    fmt.Sprintf("Are you sure you want to delete the site %s?", rec.Path),
		"site_id":     rec.SiteID,
		"confirm_url": fmt.Sprintf("/sites/%d/delete", rec.SiteID),
		"cancel_url":  "/sites",
	})
}

//
// Helpers
//

func (h *Handler) siteID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "siteID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid site id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("response encode failed", zap.Error(err))
	}
}
