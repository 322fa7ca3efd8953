package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"estate_distribution/internal/adapters/observability"
	"estate_distribution/internal/domain"
)

type BatchReport struct {
	Run         string        `json:"run"`
	Total       int           `json:"total"`
	Changed     int           `json:"changed"`
	Unchanged   int           `json:"unchanged"`
	GeoFailures int           `json:"geo_failures"`
	Errors      int           `json:"errors"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
}

// BatchAssigner runs Assign over every property with bounded concurrency.
// Per-property failures are counted, never fatal.
type BatchAssigner struct {
	assigner *Assigner
	repo     domain.PropertyRepository
	workers  int
}

func NewBatchAssigner(a *Assigner, repo domain.PropertyRepository, workers int) *BatchAssigner {
	if workers <= 0 {
		workers = 8
	}
	return &BatchAssigner{assigner: a, repo: repo, workers: workers}
}

// Run stops launching work when ctx is cancelled; properties already in
// flight finish their single write, so none is left half-written.
func (b *BatchAssigner) Run(ctx context.Context) (BatchReport, error) {
	start := time.Now()
	rep := BatchReport{Run: uuid.NewString()}
	logger := log.With().Str("run", rep.Run).Logger()

	props, err := b.repo.ListProperties(ctx)
	if err != nil {
		return rep, err
	}
	rep.Total = len(props)
	logger.Info().Int("properties", rep.Total).Int("workers", b.workers).Msg("assignment batch starting")

	// in-flight work is detached from cancellation; geocoder calls stay
	// bounded by their own timeouts
	work := context.WithoutCancel(ctx)
	sem := semaphore.NewWeighted(int64(b.workers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	launched := 0
	for _, p := range props {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Warn().Err(err).Msg("batch interrupted; not launching remaining properties")
			break
		}
		launched++

		wg.Add(1)
		go func(p domain.Property) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := b.assigner.Assign(work, p)
			mu.Lock()
			defer mu.Unlock()
			if res.GeoError != "" {
				rep.GeoFailures++
			}
			switch {
			case err != nil:
				rep.Errors++
				logger.Warn().Str("property", p.ID()).Err(err).Msg("assign failed")
			case res.Changed:
				rep.Changed++
			default:
				rep.Unchanged++
			}
		}(p)
	}

	wg.Wait()
	rep.Skipped = rep.Total - launched
	rep.Duration = time.Since(start)
	observability.ObserveBatch(rep.Duration)
	logger.Info().
		Int("changed", rep.Changed).
		Int("unchanged", rep.Unchanged).
		Int("geo_failures", rep.GeoFailures).
		Int("errors", rep.Errors).
		Int("skipped", rep.Skipped).
		Dur("took", rep.Duration).
		Msg("assignment batch completed")
	return rep, ctx.Err()
}
