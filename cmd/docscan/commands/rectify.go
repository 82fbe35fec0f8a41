package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	stdimaging "github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/rectify"
)

var (
	rectifyOutputPath string
	rectifyEnhance    string
	rectifyOCR        bool
	rectifyLanguage   string
)

var rectifyCmd = &cobra.Command{
	Use:   "rectify <image>",
	Short: "Crop and perspective-correct the document in a photo",
	Long: `Detect the document in a still photo, warp it into an upright page and write
the page to --output (default: <image>-page.jpg). With --ocr the page text is
printed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runRectify,
}

func init() {
	rectifyCmd.Flags().StringVarP(&rectifyOutputPath, "output", "o", "", "output file (extension selects the format)")
	rectifyCmd.Flags().StringVarP(&rectifyEnhance, "enhance", "e", "", "post-processing: none, grayscale, bw or sharpen")
	rectifyCmd.Flags().BoolVar(&rectifyOCR, "ocr", false, "read the page text with Tesseract")
	rectifyCmd.Flags().StringVarP(&rectifyLanguage, "lang", "l", "eng", "Tesseract language code")
	rootCmd.AddCommand(rectifyCmd)
}

type rectifyOutput struct {
	Path      string `json:"path"`
	Output    string `json:"output"`
	Rectified bool   `json:"rectified"`
	Warning   string `json:"warning,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Text      string `json:"text,omitempty"`
}

func runRectify(cmd *cobra.Command, args []string) error {
	opts := cfg.RectifyOptions()
	if rectifyEnhance != "" {
		mode, err := rectify.ParseMode(rectifyEnhance)
		if err != nil {
			return err
		}
		opts.Enhance = mode
	}

	img, err := stdimaging.Open(args[0], stdimaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	p := detection.NewProcessor(cfg.ProcessorOptions(), nil, log)
	res, _ := p.Process(img)
	p.Release()
	if !res.HasQuad() {
		return fmt.Errorf("no document found in %s", args[0])
	}

	b := img.Bounds()
	quad := rectify.ScaleToCapture(*res.Quad, res.Width, res.Height, b.Dx(), b.Dy())
	page := rectify.NewRectifier(opts, nil, log).Rectify(img, quad)

	outPath := rectifyOutputPath
	if outPath == "" {
		ext := filepath.Ext(args[0])
		outPath = strings.TrimSuffix(args[0], ext) + "-page.jpg"
	}
	if err := stdimaging.Save(page.Image, outPath, stdimaging.JPEGQuality(cfg.Capture.Quality)); err != nil {
		return fmt.Errorf("save page: %w", err)
	}

	pb := page.Image.Bounds()
	out := rectifyOutput{
		Path:      args[0],
		Output:    outPath,
		Rectified: page.Rectified,
		Warning:   page.Warning,
		Width:     pb.Dx(),
		Height:    pb.Dy(),
	}
	if rectifyOCR {
		text, err := ocr.ExtractText(page.Image, ocr.Options{Language: rectifyLanguage})
		if err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
		out.Text = text.FullText
	}
	return printJSON(out)
}
