package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/app"
	"github.com/ironsheep/docscan/internal/replay"
)

var (
	replayRepeat int
	replayStore  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <dir>",
	Short: "Run a directory of frames through the live pipeline",
	Long: `Feed every image in <dir>, in file name order, through the full pipeline on a
synthetic 30 Hz clock and print the timeline of tracking states, fallback
requests and captures.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVarP(&replayRepeat, "repeat", "r", 1, "offer every frame this many consecutive ticks")
	replayCmd.Flags().BoolVar(&replayStore, "store", false, "record captures in the capture store")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	paths, err := replay.ListFrames(args[0])
	if err != nil {
		return err
	}

	if replayStore {
		cfg.Store.Enabled = true
	}
	pipe, err := app.New(cfg, app.Extras{}, log)
	if err != nil {
		return err
	}
	defer pipe.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := replay.DefaultOptions()
	opts.Repeat = replayRepeat
	tl, err := replay.NewRunner(pipe.Controller, opts, log).Run(ctx, paths, time.Now())
	if err != nil {
		return err
	}
	return printJSON(tl)
}
