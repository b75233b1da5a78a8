package httpadapter

import (
	"net/http"
	"strings"
)

// serveStoredImage serves a stored skin check image back to its owner.
// The second path segment of the relative path is the owner id, so a
// simple comparison keeps users inside their own directory.
func (rt *Router) serveStoredImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user := userFromContext(r.Context())

	relPath := strings.TrimPrefix(r.URL.Path, "/api/storage/")
	segments := strings.Split(relPath, "/")
	if len(segments) < 2 || segments[0] != "skin_checks" || segments[1] != user.ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}

	absPath, err := rt.store.AbsolutePath(r.Context(), relPath)
	if err != nil {
		writeError(w, err)
		return
	}
	http.ServeFile(w, r, absPath)
}
