package httpadapter

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/infrastructure/storage/localfs"
)

// uploadCheck accepts a multipart image, creates the pending record and
// returns it immediately. The client polls the returned check until it
// leaves the pending/processing states.
func (rt *Router) uploadCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user := userFromContext(r.Context())

	// One extra byte past the cap distinguishes oversized from maximal.
	if err := r.ParseMultipartForm(localfs.MaxImageSize + 1); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, localfs.MaxImageSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read uploaded file"})
		return
	}

	check, err := rt.submitUC.Submit(r.Context(), user.ID, fileHeader.Filename, r.FormValue("body_part"), content)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrInvalidInput) {
			rt.metrics.RecordRejectedUpload(rt.serviceName)
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.serviceName, len(content))
	}

	writeJSON(w, http.StatusCreated, check)
}

func (rt *Router) listChecks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user := userFromContext(r.Context())

	var status domain.CheckStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := domain.ParseCheckStatus(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown status %q", raw)})
			return
		}
		status = parsed
	}

	checks, err := rt.queryUC.List(r.Context(), user.ID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	if checks == nil {
		checks = []domain.SkinCheck{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"checks": checks})
}

func (rt *Router) checkByID(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	id := strings.TrimPrefix(r.URL.Path, "/api/skin-checks/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "check not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		check, err := rt.queryUC.Get(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, check)
	case http.MethodDelete:
		if err := rt.queryUC.Delete(r.Context(), user.ID, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) exportChecks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user := userFromContext(r.Context())

	data, err := rt.queryUC.ExportXLSX(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="skin_checks.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
