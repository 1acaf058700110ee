package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"visual-nuts/cache"
	"visual-nuts/config"
	"visual-nuts/models"
	"visual-nuts/services"
)

type Handler struct {
	cfg     *config.Config
	cache   *cache.AnalysisCache
	fetcher *services.Fetcher
}

func New(cfg *config.Config, c *cache.AnalysisCache) *Handler {
	return &Handler{
		cfg:     cfg,
		cache:   c,
		fetcher: services.NewFetcher(cfg.FetchTimeout, cfg.FetchMaxBytes),
	}
}

// Routes registers the API on a new mux, wrapped in the CORS middleware.
func (h *Handler) Routes() *http.ServeMux {
	cors := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", h.cfg.AllowOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(200)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", cors(h.Analyze))
	mux.HandleFunc("/api/analyses/", cors(h.Analysis))
	mux.HandleFunc("/api/sequence", cors(h.Sequence))
	mux.HandleFunc("/api/health", cors(h.Health))
	return mux
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, 405, map[string]string{"error": "POST only"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, 413, map[string]string{
				"error": "request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return
		}
		writeJSON(w, 400, map[string]string{"error": "Invalid JSON"})
		return
	}

	countries := req.Countries
	if req.URL != "" {
		if len(req.Countries) > 0 {
			writeJSON(w, 400, map[string]string{"error": "countries and url are mutually exclusive"})
			return
		}
		fetched, err := h.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			log.Printf("[api] fetch %s: %v", req.URL, err)
			status := 502
			if errors.Is(err, services.ErrBodyTooLarge) {
				status = 413
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		countries = fetched
	}
	if countries == nil {
		countries = []models.Country{}
	}

	fingerprint, err := cache.Fingerprint(countries)
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": "could not fingerprint dataset"})
		return
	}

	if rec, err := h.cache.Get(fingerprint); err == nil {
		rec.Cached = true
		rec.Countries = nil
		writeJSON(w, 200, rec)
		return
	} else if !errors.Is(err, cache.ErrNotFound) {
		log.Printf("[api] cache read %s: %v", fingerprint, err)
	}

	result := services.Analyze(countries)

	id, err := h.cache.Save(fingerprint, countries, result)
	if err != nil {
		writeJSON(w, 500, map[string]string{"error": "could not store analysis"})
		return
	}

	log.Printf("[api] analysis %s: %d countries, most polyglot %q",
		id, result.CountryCount, result.MostPolyglotCountry)

	writeJSON(w, 200, models.AnalysisRecord{
		ID:          id,
		Fingerprint: fingerprint,
		Result:      result,
	})
}

func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {

	id := extractLastSegment(r.URL.Path)

	if id == "" || id == "analyses" {
		writeJSON(w, 400, map[string]string{"error": "analysis id required"})
		return
	}

	rec, err := h.cache.GetByID(id)
	if errors.Is(err, cache.ErrNotFound) {
		writeJSON(w, 404, map[string]string{"error": "analysis not found"})
		return
	}
	if err != nil {
		log.Printf("[api] cache read %s: %v", id, err)
		writeJSON(w, 500, map[string]string{"error": "could not read analysis"})
		return
	}

	writeJSON(w, 200, rec)
}

func (h *Handler) Sequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, 405, map[string]string{"error": "GET only"})
		return
	}

	target := h.cfg.PrintTarget
	if raw := r.URL.Query().Get("target"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, 400, map[string]string{"error": "target must be an integer"})
			return
		}
		target = n
	}
	if target > h.cfg.MaxPrintTarget {
		writeJSON(w, 400, map[string]string{
			"error": "target must not exceed " + strconv.Itoa(h.cfg.MaxPrintTarget),
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(200)
	if _, err := services.EmitRange(w, target); err != nil {
		log.Printf("[api] sequence %d: %v", target, err)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]interface{}{
		"status":         "ok",
		"cache_analyses": h.cache.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractLastSegment(path string) string {
	path = strings.TrimRight(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}
	return path[i+1:]
}
