package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/errs"
	"github.com/classattendance/internal/export"
	"github.com/classattendance/internal/metrics"
	"github.com/classattendance/internal/subjects"
)

func Handler(
	logger *slog.Logger,
	m *metrics.Metrics,
	registry *subjects.Registry,
	ledger *attendance.Ledger,
) http.HandlerFunc {
	requireSubject := WithSubject(registry)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth())

	mux.HandleFunc("GET /subjects", handleListSubjects(ledger))
	mux.HandleFunc("POST /subjects", handleAddSubject(logger, registry))
	mux.HandleFunc("DELETE /subjects/{subject}", handleRemoveSubject(logger, registry))

	mux.HandleFunc("GET /subjects/{subject}/days", requireSubject(handleListDays(ledger)))
	mux.HandleFunc("PUT /subjects/{subject}/days/{date}", handleUpsertDay(logger, ledger))
	mux.HandleFunc("DELETE /subjects/{subject}/days/{date}", handleDeleteDay(logger, ledger))
	mux.HandleFunc("DELETE /subjects/{subject}/days", handleClearDays(logger, ledger))
	mux.HandleFunc("GET /subjects/{subject}/stats", requireSubject(handleStats(ledger)))
	mux.HandleFunc("GET /subjects/{subject}/months/{year}/{month}", requireSubject(handleMonth(logger, ledger)))
	mux.HandleFunc("GET /subjects/{subject}/attendance.ics", requireSubject(handleCalendar(logger, ledger)))

	mux.HandleFunc("GET /export.xlsx", handleExport(logger, ledger))
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	return WithMiddlewares(
		WithAccessLogs(logger),
		WithMetrics(m),
	)(mux.ServeHTTP)
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleListSubjects(ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"subjects": ledger.Summaries(r.Context()),
		})
	}
}

type addSubjectRequest struct {
	Name string `json:"name"`
}

func handleAddSubject(logger *slog.Logger, registry *subjects.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSubjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(logger, w, r, fmt.Errorf("%w: decode body: %w", errs.ErrValidation, err))
			return
		}
		subject, err := registry.Add(r.Context(), req.Name)
		if err != nil {
			writeError(logger, w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"subject": subject,
		})
	}
}

func handleRemoveSubject(logger *slog.Logger, registry *subjects.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Remove(r.Context(), subjectFromPath(r)); err != nil {
			writeError(logger, w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListDays(ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := ledger.DayRecords(r.Context(), subjectFromPath(r))
		days := make([]attendance.Day, 0, len(records))
		for _, date := range records.Dates() {
			record := records[date]
			days = append(days, attendance.Day{
				Date:     date,
				Total:    record.Total,
				Attended: record.Attended,
				Mark:     record.Mark(),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"days": days,
		})
	}
}

type upsertDayRequest struct {
	Total    int `json:"total"`
	Attended int `json:"attended"`
}

func handleUpsertDay(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertDayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(logger, w, r, fmt.Errorf("%w: decode body: %w", errs.ErrValidation, err))
			return
		}
		if err := ledger.UpsertDay(r.Context(), subjectFromPath(r), r.PathValue("date"), req.Total, req.Attended); err != nil {
			writeError(logger, w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteDay(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ledger.UpsertDay(r.Context(), subjectFromPath(r), r.PathValue("date"), 0, 0); err != nil {
			writeError(logger, w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleClearDays(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ledger.ClearAll(r.Context(), subjectFromPath(r)); err != nil {
			writeError(logger, w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleStats(ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ledger.Stats(r.Context(), subjectFromPath(r)))
	}
}

func handleMonth(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(r.PathValue("year"))
		if err != nil {
			writeError(logger, w, r, fmt.Errorf("%w: year %q", errs.ErrValidation, r.PathValue("year")))
			return
		}
		month, err := strconv.Atoi(r.PathValue("month"))
		if err != nil || month < int(time.January) || month > int(time.December) {
			writeError(logger, w, r, fmt.Errorf("%w: month %q", errs.ErrValidation, r.PathValue("month")))
			return
		}
		writeJSON(w, http.StatusOK, ledger.Month(r.Context(), subjectFromPath(r), year, time.Month(month)))
	}
}

func handleExport(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance.xlsx"`)
		if err := export.WriteXLSX(r.Context(), w, ledger); err != nil {
			logger.Error("write xlsx", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func handleCalendar(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		if err := export.WriteICal(r.Context(), w, ledger, subjectFromPath(r)); err != nil {
			logger.Error("write calendar", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func subjectFromPath(r *http.Request) subjects.Subject {
	return subjects.Subject(r.PathValue("subject"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}
