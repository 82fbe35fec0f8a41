package commands

import (
	"context"
	"errors"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/app"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/preview"
	"github.com/ironsheep/docscan/internal/replay"
)

var (
	previewAddr   string
	previewRepeat int
	previewLoop   bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <dir>",
	Short: "Replay frames in real time and stream the overlay to a browser",
	Long: `Serve a preview page, then replay the frames in <dir> at 30 Hz wall-clock
pace. Connected browsers see each frame with the animated document outline and
the status line.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewAddr, "addr", "", "listen address (default from config)")
	previewCmd.Flags().IntVarP(&previewRepeat, "repeat", "r", 20, "offer every frame this many consecutive ticks")
	previewCmd.Flags().BoolVar(&previewLoop, "loop", false, "restart the replay when it ends")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	paths, err := replay.ListFrames(args[0])
	if err != nil {
		return err
	}
	addr := previewAddr
	if addr == "" {
		addr = cfg.Preview.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := preview.NewHub(log)
	go hub.Run(ctx)

	srvErr := make(chan error, 1)
	go func() { srvErr <- preview.NewServer(hub, addr, log).ListenAndServe(ctx) }()

	width, height := cfg.Preview.Width, cfg.Preview.Height
	sink := preview.NewSink(hub)
	pipe, err := app.New(cfg, app.Extras{
		Surface: preview.NewSurface(hub, width, height),
		Feedback: pipeline.FeedbackFunc(func(fb pipeline.Feedback) {
			sink.Publish(fb)
			pipeline.LogSink{Log: log}.Publish(fb)
		}),
	}, log)
	if err != nil {
		return err
	}
	defer pipe.Close()

	opts := replay.DefaultOptions()
	opts.Repeat = previewRepeat
	opts.Pace = true
	var frames int
	opts.OnFrame = func(img image.Image) {
		// every third tick
		if frames%3 == 0 {
			if err := preview.PublishFrame(hub, img, width, height); err != nil {
				log.Warn().Err(err).Msg("publish frame failed")
			}
		}
		frames++
	}
	runner := replay.NewRunner(pipe.Controller, opts, log)

	for {
		tl, err := runner.Run(ctx, paths, time.Now())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().Int("captures", tl.Captures).Msg("replay pass finished")
		if !previewLoop {
			break
		}
	}

	log.Info().Str("addr", addr).Msg("replay done; press Ctrl-C to stop the preview")
	select {
	case <-ctx.Done():
		return nil
	case err := <-srvErr:
		return err
	}
}
