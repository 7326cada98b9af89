package http

import (
	"net/http"
	"strings"

	"caisse/internal/core"
	applog "caisse/internal/log"
)

// summaryKey builds a cache key from the request dimensions.
func summaryKey(rng core.DateRange, filter core.PayerFilter) string {
	return rng.Start.Format(dateLayout) + "|" + rng.End.Format(dateLayout) + "|" + string(filter)
}

// handleSummary returns the committed totals for a range.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parsePayer(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := summaryKey(rng, filter)
	if view, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, view)
		return
	}

	view, err := s.snapshots.Summary(r.Context(), rng, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.summaryCache.Set(key, view)
	writeJSON(w, http.StatusOK, view)
}

// previewRequest carries the committed-range dimensions plus the
// uncommitted form state to overlay.
type previewRequest struct {
	Start   string           `json:"start"`
	End     string           `json:"end"`
	Payer   string           `json:"payer"`
	Pending core.PendingEdit `json:"pending"`
}

// handlePreview overlays a pending edit on the committed totals.
// Nothing is persisted; previews are never cached. An absent range
// defaults to the current month, the same as the summary it overlays.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start, err := parseOptionalDate(req.Start)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := parseOptionalDate(req.End)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid end date")
		return
	}
	rng := core.DateRange{Start: start, End: end}
	if start.IsZero() && end.IsZero() {
		rng = currentMonthRange()
	}

	filter := core.FilterAll
	if v := strings.TrimSpace(req.Payer); v != "" {
		filter = core.PayerFilter(strings.ToLower(v))
		if !filter.IsValid() {
			writeError(w, r, http.StatusBadRequest, "invalid payer "+req.Payer)
			return
		}
	}

	view, err := s.snapshots.PreviewSummary(r.Context(), rng, filter, req.Pending)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCategoryBreakdown returns ranked per-category expense groups.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parsePayer(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := "categories|" + summaryKey(rng, filter)
	if groups, found := s.breakdownCache.Get(key); found {
		writeJSON(w, http.StatusOK, groups)
		return
	}

	groups, err := s.snapshots.CategoryBreakdown(r.Context(), rng, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.Group{}
	}
	s.breakdownCache.Set(key, groups)
	writeJSON(w, http.StatusOK, groups)
}

// handleEntryBreakdown returns the drill-down for one category, grouped
// by supplier or employee name.
func (s *Server) handleEntryBreakdown(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parsePayer(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	categoryParam := strings.TrimSpace(r.URL.Query().Get("category"))
	if categoryParam == "" {
		writeError(w, r, http.StatusBadRequest, "missing category parameter")
		return
	}
	category := core.Category(strings.ToLower(categoryParam))

	key := "entries|" + categoryParam + "|" + summaryKey(rng, filter)
	if groups, found := s.breakdownCache.Get(key); found {
		writeJSON(w, http.StatusOK, groups)
		return
	}

	groups, err := s.snapshots.EntryBreakdown(r.Context(), rng, filter, category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.Group{}
	}
	s.breakdownCache.Set(key, groups)
	writeJSON(w, http.StatusOK, groups)
}

// handleRemainderBreakdown returns the per-employee remainder view for
// the range's month, including zero rows for the roster.
func (s *Server) handleRemainderBreakdown(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.snapshots.RemainderBreakdown(r.Context(), rng)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.RemainderRow{}
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Remainder breakdown served",
		applog.FieldMonth, rng.Month(), "rows", len(rows))
	writeJSON(w, http.StatusOK, rows)
}
