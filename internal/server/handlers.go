package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/export"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/pipeline"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/store"
)

// rawListingsLimit caps the analyzed_data rows returned by /api/hotspots.
const rawListingsLimit = 5000

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	type cityItem struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	items := []cityItem{}
	for _, c := range s.opts.Catalog.List() {
		items = append(items, cityItem{Code: c.Code, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "cities": items})
}

type analyzeRequest struct {
	City             string   `json:"city"`
	PremiumThreshold *float64 `json:"premium_threshold"`
	MaxListings      int      `json:"max_listings"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.City == "" {
		writeError(w, http.StatusBadRequest, "Missing city")
		return
	}

	out, err := s.opts.Runner.Run(r.Context(), pipeline.Request{
		City:        req.City,
		Threshold:   req.PremiumThreshold,
		MaxListings: req.MaxListings,
	})
	if err != nil {
		if model.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("analyze failed", zap.String("city", req.City), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run := out.Run
	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"run_id":      run.ID,
		"city":        run.City,
		"threshold":   run.Threshold,
		"summary":     run.Summary,
		"cleaning":    out.Cleaning,
		"files":       out.Files,
		"geojson_url": "/api/geojson/" + run.City,
	})
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	if s.opts.Store != nil {
		run, err := s.opts.Store.LatestRun(r.Context(), city)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, envelope{
				"success":   true,
				"city":      run.City,
				"date":      run.CreatedAt.Format(export.DateLayout),
				"threshold": run.Threshold,
				"run_id":    run.ID,
				"summary":   run.Summary,
			})
			return
		case !eris.Is(err, store.ErrNotFound):
			s.log.Error("last run lookup failed", zap.String("city", city), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	m, err := export.FindLatest(s.opts.OutputDir, export.Query{City: city, Kind: export.KindAnalyzed})
	if err != nil {
		s.writeLookupError(w, err, "No runs found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"city":      m.City,
		"date":      m.Date,
		"threshold": m.Threshold,
	})
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := q.Get("city")
	if city == "" {
		writeError(w, http.StatusBadRequest, "Missing city")
		return
	}
	thresholdParam := q.Get("threshold")
	if thresholdParam == "" {
		thresholdParam = "200"
	}
	threshold, err := strconv.ParseFloat(thresholdParam, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid threshold '%s'", thresholdParam))
		return
	}
	key := q.Get("key")
	if key == "" {
		key = "premium_clusters"
	}
	kind, ok := export.HotspotKeys[key]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid key '%s'", key))
		return
	}

	m, err := export.FindLatest(s.opts.OutputDir, export.Query{
		City: city, Kind: kind, Threshold: threshold, HasThreshold: true,
	})
	if err != nil {
		s.writeLookupError(w, err, "No CSV matches")
		return
	}

	limit := 0
	if key == "raw_listings" {
		limit = rawListingsLimit
	}
	records, err := export.ReadRecords(m.Path, limit)
	if err != nil {
		s.log.Error("read export failed", zap.String("path", m.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"city":      city,
		"threshold": threshold,
		"key":       key,
		"count":     len(records),
		"data":      records,
	})
}

func (s *Server) handleExportLatest(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	dtype := chi.URLParam(r, "dtype")

	kind, ok := export.DownloadTypes[dtype]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid export type '%s'", dtype))
		return
	}
	m, err := export.FindLatest(s.opts.OutputDir, export.Query{City: city, Kind: kind})
	if err != nil {
		s.writeLookupError(w, err, fmt.Sprintf("No export found for %s/%s", city, dtype))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(m.Path)))
	http.ServeFile(w, r, m.Path)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	path, err := export.LatestGeoJSON(s.opts.OutputDir, city)
	if err != nil {
		s.writeLookupError(w, err, fmt.Sprintf("No map found for %s", city))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	http.ServeFile(w, r, path)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusNotFound, "run store not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{City: q.Get("city"), Status: model.RunStatus(q.Get("status"))}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s '%s'", name, v))
			return
		}
		*dst = n
	}

	runs, err := s.opts.Store.ListRuns(r.Context(), filter)
	if err != nil {
		s.log.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "count": len(runs), "runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusNotFound, "run store not configured")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.opts.Store.GetRun(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		s.log.Error("get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "run": run})
}

// writeLookupError maps export.ErrNotFound to a 404 with notFound as the
// message and anything else to a 500.
func (s *Server) writeLookupError(w http.ResponseWriter, err error, notFound string) {
	if eris.Is(err, export.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	s.log.Error("export lookup failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}
