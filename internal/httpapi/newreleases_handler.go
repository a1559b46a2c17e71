package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cmdarr/cmdarr/internal/apierr"
	"github.com/cmdarr/cmdarr/internal/newreleases"
)

const defaultNewReleasesArtistLimit = 20

// newReleases answers GET /api/new-releases?artist_limit=N&album_types=…
func (h *handlers) newReleases(w http.ResponseWriter, r *http.Request) {
	if h.cfg.NewReleases == nil {
		writeError(w, r, apierr.New(apierr.CodeServiceUnavailable, "new-releases is not configured"))
		return
	}

	limit := defaultNewReleasesArtistLimit
	if h.cfg.ConfigStore != nil {
		if raw, err := h.cfg.ConfigStore.Get(r.Context(), "NEW_RELEASES_ARTIST_LIMIT"); err == nil {
			if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
				limit = n
			}
		}
	}
	if raw := r.URL.Query().Get("artist_limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var albumTypes []string
	if raw := r.URL.Query().Get("album_types"); raw != "" {
		albumTypes = strings.Split(raw, ",")
	}

	result, err := h.cfg.NewReleases.Scan(r.Context(), limit, albumTypes)
	if err != nil {
		if errors.Is(err, newreleases.ErrNotConfigured) {
			writeError(w, r, apierr.Wrap(apierr.CodeServiceUnavailable, "new-releases is not configured", err))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, result)
}
