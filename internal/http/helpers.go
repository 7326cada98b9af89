package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caisse/internal/core"
	"caisse/internal/storage"
)

const dateLayout = "2006-01-02"

// parseRange extracts the date range from start/end query parameters.
// With both absent the current calendar month is used; a present but
// malformed date is an error rather than silently the wrong range.
func parseRange(r *http.Request) (core.DateRange, error) {
	startStr := strings.TrimSpace(r.URL.Query().Get("start"))
	endStr := strings.TrimSpace(r.URL.Query().Get("end"))

	if startStr == "" && endStr == "" {
		return currentMonthRange(), nil
	}

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("invalid start date %q", startStr)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("invalid end date %q", endStr)
	}
	return core.DateRange{Start: start, End: end}, nil
}

// currentMonthRange is the default range when a request supplies no
// dates: the current calendar month.
func currentMonthRange() core.DateRange {
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return core.DateRange{Start: first, End: first.AddDate(0, 1, -1)}
}

// parsePayer extracts the payer filter query parameter, defaulting to all.
func parsePayer(r *http.Request) (core.PayerFilter, error) {
	v := strings.TrimSpace(r.URL.Query().Get("payer"))
	if v == "" {
		return core.FilterAll, nil
	}
	filter := core.PayerFilter(strings.ToLower(v))
	if !filter.IsValid() {
		return "", fmt.Errorf("invalid payer %q", v)
	}
	return filter, nil
}

// parseOptionalDate parses a request-supplied date, with zero meaning absent.
func parseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// decodeJSON decodes a request body into dst with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "status", status, "path", r.URL.Path, "error", msg)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses. The invalid
// range error is a client mistake, not a server fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "record not found")
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
