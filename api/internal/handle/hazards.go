package handle

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hazard-identify/api/internal/hazard"
	"hazard-identify/api/internal/store"
	"hazard-identify/api/internal/util"
)

const (
	defaultMaxUploadBytes = 32 << 20
	maxMemory             = 8 << 20

	defaultListLimit = 20
	maxListLimit     = 100
)

type hazardResponse struct {
	*store.HazardResult
	ModelOK  bool `json:"model_ok"`
	Oversize bool `json:"oversize,omitempty"`
}

type oversizeResponse struct {
	Result   string `json:"result"`
	Oversize bool   `json:"oversize"`
}

// requestTimeout reads X-Request-Timeout or ?timeoutSec=, in seconds.
func requestTimeout(r *http.Request) time.Duration {
	deadline := 180 * time.Second
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return deadline
}

// identifyUpload saves the multipart "image" file and runs the identification.
// The returned status is meaningful only when err != nil.
func (h *Handle) identifyUpload(w http.ResponseWriter, r *http.Request) (hazard.Report, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			if h.limits.OversizeMessage != "" {
				// тело больше лимита, значит и картинка не пройдёт отсечку
				return hazard.Report{Result: h.limits.OversizeMessage, Oversize: true}, http.StatusOK, nil
			}
			return hazard.Report{}, http.StatusRequestEntityTooLarge, errors.New("upload too large")
		}
		return hazard.Report{}, http.StatusBadRequest, errors.New("bad multipart form: " + err.Error())
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("image")
	if err != nil {
		return hazard.Report{}, http.StatusBadRequest, errors.New("missing image file")
	}
	defer file.Close()

	path, err := util.SaveUpload(h.uploadDir, filepath.Ext(hdr.Filename), ".jpg", file)
	if err != nil {
		h.log.Error().Err(err).Msg("save upload failed")
		return hazard.Report{}, http.StatusInternalServerError, errors.New("could not save upload")
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout(r))
	defer cancel()

	rep, err := h.svc.Identify(ctx, path, r.FormValue("context"))
	if err != nil {
		h.log.Error().Err(err).Str("image_path", path).Msg("identify failed")
		return hazard.Report{}, http.StatusInternalServerError, errors.New("identification failed")
	}
	if rep.Oversize {
		// строки нет, файл никому не нужен
		if err := os.Remove(path); err != nil {
			h.log.Warn().Err(err).Str("image_path", path).Msg("remove rejected upload")
		}
	}
	return rep, http.StatusOK, nil
}

// CreateHazard handles POST /api/v1/hazards (multipart: image, context).
func (h *Handle) CreateHazard(w http.ResponseWriter, r *http.Request) {
	rep, code, err := h.identifyUpload(w, r)
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	if rep.Oversize {
		writeJSON(w, http.StatusRequestEntityTooLarge, oversizeResponse{Result: rep.Result, Oversize: true})
		return
	}
	writeJSON(w, http.StatusCreated, hazardResponse{HazardResult: rep.Row, ModelOK: rep.ModelOK})
}

// ListHazards handles GET /api/v1/hazards?limit=N, newest first.
func (h *Handle) ListHazards(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	rows, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list hazards failed")
		writeError(w, http.StatusInternalServerError, "could not list results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

// GetHazard handles GET /api/v1/hazards/{id}.
func (h *Handle) GetHazard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	row, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("get hazard failed")
		writeError(w, http.StatusInternalServerError, "could not load result")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
