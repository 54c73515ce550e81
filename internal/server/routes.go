package server

import (
	"encoding/json"
	"net/http"

	"verdict/internal/classify"
)

// writeError renders an error body through the JSON encoder, so error
// text containing quotes stays valid JSON.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Units []classify.Unit `json:"units"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Units) == 0 {
		writeError(w, http.StatusBadRequest, "units required")
		return
	}

	outcomes := s.engine.ClassifyUnits(r.Context(), req.Units)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"outcomes": outcomes,
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Scan()
	if err != nil {
		s.logger.Error("scan failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Cache.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleCacheSweep(w http.ResponseWriter, r *http.Request) {
	removed, err := s.engine.Sweep()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"removed": removed,
	})
}
