package hazard

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"hazard-identify/api/internal/llm"
	"hazard-identify/api/internal/metrics"
	"hazard-identify/api/internal/store"
	"hazard-identify/api/internal/util"
)

// Repo is the write side of hazard_results the service depends on.
type Repo interface {
	Insert(ctx context.Context, imagePath, hazardContext, result string) (*store.HazardResult, error)
}

// storeTimeout bounds the insert, which runs detached from the caller's deadline.
const storeTimeout = 10 * time.Second

type Options struct {
	SizeGuard     bool
	MaxImageBytes int64
}

// Report is what a single identification produced. Result is always the
// user-visible text; Row is nil when nothing was stored (oversize).
type Report struct {
	Result   string
	Oversize bool
	ModelOK  bool
	Row      *store.HazardResult
}

type Service struct {
	engine  llm.Engine
	repo    Repo
	opts    Options
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewService(engine llm.Engine, repo Repo, opts Options, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		engine:  engine,
		repo:    repo,
		opts:    opts,
		metrics: m,
		log:     log.With().Str("component", "hazard").Logger(),
	}
}

// OversizeMessage is returned instead of calling the model when the guard trips.
func (s *Service) OversizeMessage() string {
	mib := formatMiB(s.opts.MaxImageBytes)
	return fmt.Sprintf("图片大小超过%sM，请上传小于%sM的图片。", mib, mib)
}

// Identify runs the whole flow for one image: size guard, encoding, model call
// and one insert. Model failures are folded into Report.Result and still stored;
// image read and storage failures are returned as errors.
func (s *Service) Identify(ctx context.Context, imagePath, hazardContext string) (Report, error) {
	log := s.log.With().Str("image_path", imagePath).Logger()

	if s.opts.SizeGuard {
		fi, err := os.Stat(imagePath)
		if err != nil {
			s.metrics.ObserveIdentification(metrics.OutcomeFailure)
			return Report{}, fmt.Errorf("stat image: %w", err)
		}
		if fi.Size() >= s.opts.MaxImageBytes {
			log.Info().Int64("size", fi.Size()).Int64("limit", s.opts.MaxImageBytes).Msg("image rejected by size guard")
			s.metrics.ObserveIdentification(metrics.OutcomeOversize)
			return Report{Result: s.OversizeMessage(), Oversize: true}, nil
		}
	}

	dataURL, err := util.ImageDataURL(imagePath)
	if err != nil {
		s.metrics.ObserveIdentification(metrics.OutcomeFailure)
		return Report{}, err
	}

	req := llm.BuildRequest(dataURL, hazardContext)

	start := time.Now()
	out := llm.Invoke(ctx, s.engine, req)
	elapsed := time.Since(start)
	s.metrics.ObserveModelCall(s.engine.Name(), elapsed.Seconds())

	if out.OK() {
		log.Info().Str("engine", s.engine.Name()).Str("model", s.engine.GetModel()).Dur("took", elapsed).Msg("model answered")
	} else {
		log.Warn().Err(out.Err).Str("engine", s.engine.Name()).Dur("took", elapsed).Msg("model call failed")
	}

	result := out.Result()

	// Запись не должна умирать вместе с контекстом модели: таймаут или отмена тоже сохраняются.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	row, err := s.repo.Insert(storeCtx, imagePath, hazardContext, result)
	if err != nil {
		s.metrics.ObserveIdentification(metrics.OutcomeFailure)
		return Report{}, fmt.Errorf("store result: %w", err)
	}

	if out.OK() {
		s.metrics.ObserveIdentification(metrics.OutcomeSuccess)
	} else {
		s.metrics.ObserveIdentification(metrics.OutcomeModelError)
	}
	log.Debug().Int64("id", row.ID).Msg("hazard result stored")

	return Report{Result: result, ModelOK: out.OK(), Row: row}, nil
}

func formatMiB(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return strconv.FormatInt(n/mib, 10)
	}
	return strconv.FormatFloat(float64(n)/mib, 'f', -1, 64)
}
