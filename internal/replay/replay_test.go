package replay

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	stdimaging "github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan/internal/app"
	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/pipeline"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func documentFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	x0, x1 := w*24/100, w*76/100
	y0, y1 := h*25/100, h*75/100
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(30)
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				v = 220
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func writeFrames(t *testing.T, frames map[string]image.Image) string {
	t.Helper()
	dir := t.TempDir()
	for name, img := range frames {
		require.NoError(t, stdimaging.Save(img, filepath.Join(dir, name)))
	}
	return dir
}

func newController(t *testing.T) *pipeline.Controller {
	t.Helper()
	a, err := app.New(config.Default(), app.Extras{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a.Controller
}

func TestListFrames(t *testing.T) {
	dir := writeFrames(t, map[string]image.Image{
		"002.png": documentFrame(40, 30),
		"001.png": documentFrame(40, 30),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	paths, err := ListFrames(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "001.png", filepath.Base(paths[0]))
	assert.Equal(t, "002.png", filepath.Base(paths[1]))
}

func TestListFrames_Empty(t *testing.T) {
	_, err := ListFrames(t.TempDir())
	assert.Error(t, err)

	_, err = ListFrames(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRun_LockAndCapture(t *testing.T) {
	dir := writeFrames(t, map[string]image.Image{"doc.png": documentFrame(400, 300)})
	paths, err := ListFrames(dir)
	require.NoError(t, err)

	var offered int
	opts := DefaultOptions()
	opts.Repeat = 20
	opts.OnFrame = func(image.Image) { offered++ }

	tl, err := NewRunner(newController(t), opts, zerolog.Nop()).Run(context.Background(), paths, t0)
	require.NoError(t, err)

	assert.Equal(t, 1, tl.Frames)
	assert.Equal(t, 20, tl.Ticks)
	assert.Equal(t, 20, offered)
	assert.Equal(t, 20, tl.Processed)
	assert.Equal(t, 1, tl.Captures)
	assert.Equal(t, 20*opts.Interval, tl.Duration)

	var states []string
	captureTick := -1
	for _, ev := range tl.Events {
		switch ev.Kind {
		case KindState:
			states = append(states, ev.State)
		case KindCapture:
			captureTick = ev.Tick
			assert.Equal(t, "rectified", ev.Detail)
		}
	}
	assert.Contains(t, states, "acquiring")
	assert.Contains(t, states, "locked")
	assert.Contains(t, states, "cooldown")
	assert.GreaterOrEqual(t, captureTick, 12, "lock needs 400ms of stable frames")
}

func TestRun_Searching(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 200, 150))
	dir := writeFrames(t, map[string]image.Image{"a.png": blank, "b.png": blank})
	paths, err := ListFrames(dir)
	require.NoError(t, err)

	tl, err := NewRunner(newController(t), Options{}, zerolog.Nop()).Run(context.Background(), paths, t0)
	require.NoError(t, err)

	assert.Equal(t, 2, tl.Ticks)
	assert.Equal(t, 0, tl.Captures)
	require.NotEmpty(t, tl.Events)
	assert.Equal(t, "searching", tl.Events[0].State)
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeFrames(t, map[string]image.Image{"doc.png": documentFrame(100, 80)})
	paths, err := ListFrames(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tl, err := NewRunner(newController(t), DefaultOptions(), zerolog.Nop()).Run(ctx, paths, t0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tl.Ticks)
}

func TestRun_Stopped(t *testing.T) {
	dir := writeFrames(t, map[string]image.Image{"doc.png": documentFrame(100, 80)})
	paths, err := ListFrames(dir)
	require.NoError(t, err)

	ctl := newController(t)
	ctl.Stop()
	_, err = NewRunner(ctl, DefaultOptions(), zerolog.Nop()).Run(context.Background(), paths, t0)
	assert.ErrorIs(t, err, pipeline.ErrStopped)
}

func TestRun_MissingFile(t *testing.T) {
	_, err := NewRunner(newController(t), DefaultOptions(), zerolog.Nop()).
		Run(context.Background(), []string{filepath.Join(t.TempDir(), "gone.png")}, t0)
	assert.Error(t, err)
}
