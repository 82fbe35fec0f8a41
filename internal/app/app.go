// Package app assembles a pipeline Controller and its optional services
// from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/fallback"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/overlay"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/rectify"
	"github.com/ironsheep/docscan/internal/stability"
	"github.com/ironsheep/docscan/internal/store"
)

// Extras are host-provided collaborators. All are optional.
type Extras struct {
	// Surface receives the overlay. Without one no renderer is created.
	Surface overlay.Surface
	// Feedback receives status updates; defaults to a debug log sink.
	Feedback pipeline.FeedbackSink
	// Consumer receives captures after the store, if any.
	Consumer pipeline.CaptureConsumer
	// Cues builds the audio cue player on first use.
	Cues func() (pipeline.CuePlayer, error)
}

// App owns a Controller and the services built for it.
type App struct {
	Controller *pipeline.Controller
	Store      *store.Store
	Renderer   *overlay.Renderer
	Fallback   *fallback.Coordinator

	log zerolog.Logger
}

// New builds an App from cfg.
func New(cfg *config.Config, extras Extras, log zerolog.Logger) (*App, error) {
	a := &App{log: log}

	var consumers []pipeline.CaptureConsumer
	if cfg.Store.Enabled {
		st, err := store.Open(store.Options{
			Dir:     cfg.Store.Dir,
			DBPath:  cfg.Store.DBPath,
			Format:  cfg.Capture.Format,
			Quality: cfg.Capture.Quality,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("open capture store: %w", err)
		}
		a.Store = st
		consumers = append(consumers, st)
	}
	if extras.Consumer != nil {
		consumers = append(consumers, extras.Consumer)
	}

	if extras.Surface != nil {
		a.Renderer = overlay.NewRenderer(extras.Surface, cfg.OverlayOptions(), log)
	}
	if cfg.Fallback.Enabled {
		det := fallback.NewHTTPDetector(cfg.Fallback.URL, cfg.Fallback.APIKey)
		a.Fallback = fallback.NewCoordinator(det, cfg.FallbackOptions(), log)
	}

	feedback := extras.Feedback
	if feedback == nil {
		feedback = pipeline.LogSink{Log: log}
	}

	native := imaging.NewNative()
	a.Controller = pipeline.New(cfg.ControllerOptions(), pipeline.Deps{
		Processor: detection.NewProcessor(cfg.ProcessorOptions(), native, log),
		Tracker:   stability.NewTracker(cfg.TrackerOptions()),
		Rectifier: rectify.NewRectifier(cfg.RectifyOptions(), native, log),
		Renderer:  a.Renderer,
		Fallback:  a.Fallback,
		Consumer:  fanOut(consumers),
		Feedback:  feedback,
		Cues:      pipeline.NewCues(extras.Cues, log),
	}, log)
	return a, nil
}

// Close stops the controller and closes the store.
func (a *App) Close() error {
	a.Controller.Stop()
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// fanOut delivers to every consumer in order and joins their errors.
func fanOut(consumers []pipeline.CaptureConsumer) pipeline.CaptureConsumer {
	switch len(consumers) {
	case 0:
		return nil
	case 1:
		return consumers[0]
	}
	return pipeline.ConsumerFunc(func(ctx context.Context, c pipeline.Capture) error {
		var errs []error
		for _, consumer := range consumers {
			if err := consumer.Deliver(ctx, c); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
