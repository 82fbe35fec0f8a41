package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "Detect, track and capture documents in camera frames",
	Long: `docscan finds the dominant four-sided document in camera frames, tracks it
until it is held steady, and captures a perspective-corrected page.

Still photos can be detected and rectified directly; directories of frames can
be replayed through the live pipeline, optionally streaming the overlay to a
browser preview.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		lc := cfg.LoggerConfig()
		if verbose {
			lc.Level = "debug"
		}
		log = logging.New(lc)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
