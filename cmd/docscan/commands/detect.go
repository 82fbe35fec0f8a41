package commands

import (
	"fmt"

	stdimaging "github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/overlay"
	"github.com/ironsheep/docscan/internal/rectify"
)

var detectAnnotatePath string

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Find the document outline in a photo",
	Long:  "Run the frame processor on a still photo and print the document corners in image pixels.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectAnnotatePath, "annotate", "a", "", "write the photo with the outline drawn to this file")
	rootCmd.AddCommand(detectCmd)
}

type detectOutput struct {
	Path           string                   `json:"path"`
	Found          bool                     `json:"found"`
	Corners        *geometry.Quad           `json:"corners,omitempty"`
	Classification detection.Classification `json:"classification"`
	AreaRatio      float64                  `json:"area_ratio"`
	Brightness     float64                  `json:"brightness"`
	Diagnostic     string                   `json:"diagnostic,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	img, err := stdimaging.Open(args[0], stdimaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	p := detection.NewProcessor(cfg.ProcessorOptions(), nil, log)
	defer p.Release()
	res, _ := p.Process(img)

	out := detectOutput{
		Path:           args[0],
		Found:          res.HasQuad(),
		Classification: res.Classification,
		AreaRatio:      res.AreaRatio,
		Brightness:     res.Brightness,
		Diagnostic:     res.Diagnostic,
	}
	if res.HasQuad() {
		b := img.Bounds()
		q := rectify.ScaleToCapture(*res.Quad, res.Width, res.Height, b.Dx(), b.Dy())
		out.Corners = &q

		if detectAnnotatePath != "" {
			drawn := imaging.DrawQuad(img, q, overlay.LockedStyle.Stroke, max(2, b.Dx()/250))
			if err := stdimaging.Save(drawn, detectAnnotatePath); err != nil {
				return fmt.Errorf("save annotated image: %w", err)
			}
			log.Info().Str("path", detectAnnotatePath).Msg("annotated image written")
		}
	}
	return printJSON(out)
}
