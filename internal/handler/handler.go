package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/charts"
	"github.com/Dan9191/credit-dashboard/internal/middleware"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/Dan9191/credit-dashboard/internal/service"
	"github.com/Dan9191/credit-dashboard/internal/utils"
	"github.com/gocarina/gocsv"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler serves the dashboard page and its JSON API
type Handler struct {
	svc     *service.Service
	limiter *middleware.RateLimiter
	log     *logrus.Logger
}

// NewHandler creates a handler. limiter bounds narrative requests per client
// and may be nil.
func NewHandler(svc *service.Service, limiter *middleware.RateLimiter, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, limiter: limiter, log: log}
}

// Dashboard renders the dashboard page
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := parseFilter(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds := h.svc.Dataset()
	opts := ds.Options()
	view := service.Apply(ds.Records(), f)
	data := pageData{
		Options:      opts,
		Filter:       f,
		Metrics:      service.ComputeMetrics(view, ds.Records(), ds.HasRisk()),
		KeyRate:      h.svc.KeyRate(),
		AIEnabled:    h.svc.NarratorEnabled(),
		ShowRaw:      q.Get(paramRaw) == "1",
		RiskLabelled: ds.HasRisk(),
		TotalRecords: ds.Len(),
		Columns:      ds.Columns(),
		Source:       ds.Source(),
		LoadedAt:     ds.LoadedAt(),
		AgeValue:     rangeValue(f.AgeMin, f.AgeMax, opts.AgeMin, opts.AgeMax),
		AmountValue:  rangeValue(f.AmountMin, f.AmountMax, opts.AmountMin, opts.AmountMax),
		DurationValue: rangeValue(f.DurationMin, f.DurationMax,
			opts.DurationMin, opts.DurationMax),
	}

	filterQuery := encodeFilter(f, opts).Encode()
	for _, c := range service.Charts() {
		data.Charts = append(data.Charts, chartView{
			ID:    c.ID,
			Title: c.Title,
			URL:   withQuery("/charts/"+c.ID+".png", filterQuery),
		})
	}
	data.ExportURL = withQuery("/api/records.csv", filterQuery)

	if data.ShowRaw {
		data.Rows = view[:min(len(view), RawPreviewRows)]
	}

	status := http.StatusOK
	if data.AIEnabled && q.Get(paramAnalyze) == "1" && !h.limiter.Allow(r) {
		data.RateLimited = true
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", middleware.RetryAfter)
	} else if data.AIEnabled && q.Get(paramAnalyze) == "1" {
		insight, err := h.svc.Narrate(r.Context(), f)
		if err != nil {
			h.log.Errorf("Failed to generate insight: %v", err)
		} else {
			data.Insight = insight
			if data.InsightHTML, err = utils.RenderMarkdown(insight.Content); err != nil {
				h.log.Errorf("Failed to render insight: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.log.Errorf("Failed to render page: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Chart renders one chart image for the filter in the query string
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := charts.ParseFormat(vars["format"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.RenderChart(&buf, vars["id"], format, f); err != nil {
		if errors.Is(err, service.ErrUnknownChart) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Errorf("Failed to render chart %s: %v", vars["id"], err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// Options returns the widget options
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Options())
}

type dashboardResponse struct {
	Filter  models.FilterState `json:"filter"`
	Metrics models.Metrics     `json:"metrics"`
	Charts  models.ChartData   `json:"charts"`
}

// DashboardData returns KPIs and chart aggregates as JSON
func (h *Handler) DashboardData(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, data := h.svc.Dashboard(f)
	writeJSON(w, http.StatusOK, dashboardResponse{Filter: f, Metrics: m, Charts: data})
}

type recordsResponse struct {
	Total   int                         `json:"total"`
	Records []*models.CreditApplication `json:"records"`
}

// Records returns filtered rows as JSON
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, RawPreviewRows)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := h.svc.Filter(f)
	writeJSON(w, http.StatusOK, recordsResponse{Total: len(view), Records: view[:min(len(view), limit)]})
}

// ExportCSV streams the filtered rows as a CSV download
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := gocsv.Marshal(h.svc.Filter(f), &buf); err != nil {
		h.log.Errorf("Failed to export CSV: %v", err)
		http.Error(w, "Failed to export CSV", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="credit_data_filtered.csv"`)
	buf.WriteTo(w)
}

// CreateInsight generates a narrative for the filter in the JSON body
func (h *Handler) CreateInsight(w http.ResponseWriter, r *http.Request) {
	var f models.FilterState
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}

	insight, err := h.svc.Narrate(r.Context(), f)
	if err != nil {
		if errors.Is(err, service.ErrNarratorDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.log.Errorf("Failed to generate insight: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate insight")
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

// ListInsights returns archived narratives
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	insights, err := h.svc.Insights(r.Context(), limit)
	if err != nil {
		if errors.Is(err, repository.ErrArchiveDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.log.Errorf("Failed to list insights: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list insights")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// Login exchanges admin credentials for a token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.Login(creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.Errorf("Login failed: %v", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Reload forces a dataset reload
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Reload(true); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ds := h.svc.Dataset()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records":   ds.Len(),
		"loaded_at": ds.LoadedAt().UTC().Format(time.RFC3339),
	})
}

// Health reports liveness and the loaded row count
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ds := h.svc.Dataset()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"records":   ds.Len(),
		"loaded_at": ds.LoadedAt().UTC().Format(time.RFC3339),
	})
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit: %q", v)
	}
	return n, nil
}

// rangeValue fills unbounded sides with the dataset extremes
func rangeValue(lo, hi *int, floor, ceil int) [2]int {
	v := [2]int{floor, ceil}
	if lo != nil {
		v[0] = *lo
	}
	if hi != nil {
		v[1] = *hi
	}
	return v
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
