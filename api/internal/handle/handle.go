package handle

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"hazard-identify/api/internal/hazard"
	"hazard-identify/api/internal/store"
)

type Identifier interface {
	Identify(ctx context.Context, imagePath, hazardContext string) (hazard.Report, error)
}

type Reader interface {
	Recent(ctx context.Context, limit int) ([]store.HazardResult, error)
	Get(ctx context.Context, id int64) (*store.HazardResult, error)
}

// Limits bounds image uploads. OversizeMessage is set only when the size guard
// is on; a body over MaxUploadBytes then gets that message instead of a bare 413.
type Limits struct {
	MaxUploadBytes  int64
	OversizeMessage string
}

type Handle struct {
	svc       Identifier
	repo      Reader
	ping      func(context.Context) error
	uploadDir string
	limits    Limits
	log       zerolog.Logger
}

func New(svc Identifier, repo Reader, ping func(context.Context) error, uploadDir string, limits Limits, log zerolog.Logger) *Handle {
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handle{
		svc:       svc,
		repo:      repo,
		ping:      ping,
		uploadDir: uploadDir,
		limits:    limits,
		log:       log.With().Str("component", "http").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
