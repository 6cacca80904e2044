package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qrgen/internal/cache"
	"qrgen/internal/interfaces"
	"qrgen/internal/metrics"
	"qrgen/internal/models"
	"qrgen/internal/workers"
	"qrgen/pkg/logging/logging"
)

// Result is a served image. Body belongs to the caller and is never shared
// with the cache.
type Result struct {
	Body     []byte
	MimeType string
	CacheHit bool
}

// Deps are the stages an Orchestrator drives. All fields are required.
type Deps struct {
	Renderer interfaces.Renderer
	Fetcher  interfaces.LogoFetcher
	Composer interfaces.Composer
	Encoder  interfaces.Encoder
	Cache    interfaces.Cache
	Pool     *workers.Pool
	// Variant names the renderer settings that change output for the same
	// request. It is mixed into every fingerprint. Optional.
	Variant string
}

// Orchestrator runs one render request through cache, render, fetch,
// compose and encode.
type Orchestrator struct {
	renderer interfaces.Renderer
	fetcher  interfaces.LogoFetcher
	composer interfaces.Composer
	encoder  interfaces.Encoder
	cache    interfaces.Cache
	pool     *workers.Pool
	variant  string
}

func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Renderer == nil:
		return nil, errors.New("pipeline: renderer is required")
	case d.Fetcher == nil:
		return nil, errors.New("pipeline: logo fetcher is required")
	case d.Composer == nil:
		return nil, errors.New("pipeline: composer is required")
	case d.Encoder == nil:
		return nil, errors.New("pipeline: encoder is required")
	case d.Cache == nil:
		return nil, errors.New("pipeline: cache is required")
	case d.Pool == nil:
		return nil, errors.New("pipeline: worker pool is required")
	}
	return &Orchestrator{
		renderer: d.Renderer,
		fetcher:  d.Fetcher,
		composer: d.Composer,
		encoder:  d.Encoder,
		cache:    d.Cache,
		pool:     d.Pool,
		variant:  d.Variant,
	}, nil
}

// Generate returns the encoded image for req, from cache when possible.
// Every error is a *Error.
func (o *Orchestrator) Generate(ctx context.Context, req models.RenderRequest) (*Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, wrap(StageValidate, err)
	}

	fp := cache.FingerprintOf(req, o.variant)
	logger := logging.FromContext(ctx).With(zap.String("fingerprint", fp.String()))

	// Lookup errors are logged by the cache decorator and count as a miss.
	if body, ok, err := o.cache.Get(ctx, fp); err == nil && ok {
		logger.Info("pipeline_result",
			zap.Bool("cache_hit", true),
			zap.Int("bytes", len(body)),
			zap.Float64("latency_ms", msSince(start)),
		)
		return &Result{Body: body, MimeType: o.encoder.MimeType(), CacheHit: true}, nil
	}

	base, logoBytes, err := o.renderAndFetch(ctx, req)
	if err != nil {
		logger.Info("pipeline_failed", zap.Error(err), zap.Float64("latency_ms", msSince(start)))
		return nil, err
	}

	var (
		body []byte
		mime string
	)
	stage := StageEncode
	if req.HasLogo() {
		stage = StageCompose
	}
	err = o.pool.Do(ctx, func() error {
		img := base
		if req.HasLogo() {
			t := time.Now()
			composed, err := o.composer.Compose(base, logoBytes, *req.Logo)
			metrics.ObserveStage(string(StageCompose), t)
			if err != nil {
				return wrap(StageCompose, err)
			}
			img = composed
		}

		t := time.Now()
		out, m, err := o.encoder.Encode(img)
		metrics.ObserveStage(string(StageEncode), t)
		if err != nil {
			return wrap(StageEncode, err)
		}
		body, mime = out, m
		return nil
	})
	if err != nil {
		err = wrap(stage, err)
		logger.Info("pipeline_failed", zap.Error(err), zap.Float64("latency_ms", msSince(start)))
		return nil, err
	}

	// Best effort: store failures are logged by the cache decorator. The
	// image is already built, so a departed client does not cancel the store.
	_ = o.cache.Set(context.WithoutCancel(ctx), fp, body)

	logger.Info("pipeline_result",
		zap.Bool("cache_hit", false),
		zap.Bool("logo", req.HasLogo()),
		zap.Int("bytes", len(body)),
		zap.Float64("latency_ms", msSince(start)),
	)

	return &Result{Body: body, MimeType: mime}, nil
}

// renderAndFetch renders the base symbol on the pool while the logo, if any,
// is fetched outside it. The first failure cancels the other branch.
func (o *Orchestrator) renderAndFetch(ctx context.Context, req models.RenderRequest) (*image.NRGBA, []byte, error) {
	var (
		base      *image.NRGBA
		logoBytes []byte
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.pool.Do(gctx, func() error {
			defer metrics.ObserveStage(string(StageRender), time.Now())
			img, err := o.renderer.Render(req.Text, req.TargetWidth)
			if err != nil {
				return err
			}
			base = img
			return nil
		})
		return wrap(StageRender, err)
	})

	if req.HasLogo() {
		g.Go(func() error {
			defer metrics.ObserveStage(string(StageFetch), time.Now())
			b, err := o.fetcher.Fetch(gctx, req.Logo.SourceURL)
			if err != nil {
				return wrap(StageFetch, err)
			}
			logoBytes = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return base, logoBytes, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
