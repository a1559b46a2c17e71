// Discovery artifact serving and freshness metrics (spec §6 GET
// /import_lists/<name>, GET /import_lists/metrics). Grounded on
// app/api/import_lists.py in _examples/original_source, including its
// listenbrainz-named-file "no_new_artists" special case.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cmdarr/cmdarr/internal/apierr"
)

const (
	freshThreshold = 25 * time.Hour
	staleThreshold = 72 * time.Hour
)

// artifactPath resolves a discovery source name to its JSON artifact file
// under the configured artifacts directory (spec §6: "discovery artifacts
// are newline-indented JSON arrays at configurable paths").
func (h *handlers) artifactPath(name string) string {
	return filepath.Join(h.cfg.ArtifactsDir, name+".json")
}

// importListGet answers GET /import_lists/<name>: serve a discovery
// artifact file as JSON, 404 if missing.
func (h *handlers) importListGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := os.ReadFile(h.artifactPath(name))
	if err != nil {
		writeError(w, r, apierr.Wrap(apierr.CodeNotFound, "no artifact for "+name, err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

type artifactMetric struct {
	Exists        bool    `json:"exists"`
	EntryCount    int     `json:"entry_count"`
	FileSizeBytes int64   `json:"file_size"`
	FileMtime     string  `json:"file_mtime,omitempty"`
	AgeHours      float64 `json:"age_hours,omitempty"`
	AgeHuman      string  `json:"age_human,omitempty"`
	Status        string  `json:"status"`
}

// importListMetrics answers GET /import_lists/metrics: per-artifact
// freshness, one entry per *.json file under the artifacts directory.
func (h *handlers) importListMetrics(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.cfg.ArtifactsDir)
	if err != nil {
		writeJSON(w, map[string]artifactMetric{})
		return
	}

	out := make(map[string]artifactMetric, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()[:len(entry.Name())-len(".json")]
		out[name] = artifactMetricFor(filepath.Join(h.cfg.ArtifactsDir, entry.Name()))
	}
	writeJSON(w, out)
}

func artifactMetricFor(path string) artifactMetric {
	info, err := os.Stat(path)
	if err != nil {
		return artifactMetric{Exists: false, Status: "missing"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return artifactMetric{Exists: false, Status: "missing"}
	}

	var arr []json.RawMessage
	_ = json.Unmarshal(data, &arr)

	age := time.Since(info.ModTime())
	metric := artifactMetric{
		Exists:        true,
		EntryCount:    len(arr),
		FileSizeBytes: info.Size(),
		FileMtime:     info.ModTime().UTC().Format(time.RFC3339),
		AgeHours:      age.Hours(),
		AgeHuman:      age.Round(time.Minute).String(),
	}

	switch {
	case len(arr) == 0 && strings.Contains(strings.ToLower(path), "listenbrainz"):
		// Playlist-sync discovery (fed by ListenBrainz unmatched-track
		// recovery) finding nothing new is the ordinary case, not a fault.
		metric.Status = "no_new_artists"
	case len(arr) == 0:
		metric.Status = "empty"
	case age < freshThreshold:
		metric.Status = "fresh"
	case age < staleThreshold:
		metric.Status = "stale"
	default:
		metric.Status = "very_stale"
	}
	return metric
}
