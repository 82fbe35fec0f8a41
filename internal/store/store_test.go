package store

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/pipeline"
)

func openTestStore(t *testing.T, format string) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Options{
		Dir:    filepath.Join(dir, "images"),
		DBPath: filepath.Join(dir, "db", "captures.db"),
		Format: format,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testCapture(at time.Time) pipeline.Capture {
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(10, 10, color.RGBA{255, 0, 0, 255})
	return pipeline.Capture{
		At:             at,
		Image:          img,
		Rectified:      true,
		Quad:           geometry.Quad{{X: 1, Y: 2}, {X: 100, Y: 2}, {X: 100, Y: 70}, {X: 1, Y: 70}},
		Classification: detection.A4,
		Quality:        0.8,
		Source:         detection.SourceFallback,
		Auto:           true,
	}
}

func TestDeliver_GetList(t *testing.T) {
	st := openTestStore(t, "jpeg")
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Deliver(ctx, testCapture(t0)))
	second := testCapture(t0.Add(time.Second))
	second.Rectified = false
	second.Warning = "rectification failed"
	second.Auto = false
	require.NoError(t, st.Deliver(ctx, second))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := st.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	newest := recs[0]
	assert.True(t, newest.CapturedAt.Equal(t0.Add(time.Second)))
	assert.False(t, newest.Rectified)
	assert.Equal(t, "rectification failed", newest.Warning)
	assert.False(t, newest.Auto)

	oldest := recs[1]
	assert.True(t, oldest.Rectified)
	assert.Equal(t, detection.A4, oldest.Classification)
	assert.Equal(t, "fallback", oldest.Source)
	assert.Equal(t, 120, oldest.Width)
	assert.Equal(t, 80, oldest.Height)
	assert.Equal(t, 100.0, oldest.Quad[2].X)
	assert.Equal(t, ".jpg", filepath.Ext(oldest.FilePath))

	info, err := os.Stat(oldest.FilePath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), oldest.FileSize)

	got, err := st.Get(ctx, oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, oldest.FilePath, got.FilePath)

	limited, err := st.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeliver_PNG(t *testing.T) {
	st := openTestStore(t, "png")
	ctx := context.Background()
	require.NoError(t, st.Deliver(ctx, testCapture(time.Now())))

	recs, err := st.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ".png", filepath.Ext(recs[0].FilePath))
}

func TestDeliver_NoImage(t *testing.T) {
	st := openTestStore(t, "jpeg")
	c := testCapture(time.Now())
	c.Image = nil
	assert.Error(t, st.Deliver(context.Background(), c))
}

func TestGet_NotFound(t *testing.T) {
	st := openTestStore(t, "jpeg")
	_, err := st.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Dir: dir, DBPath: filepath.Join(dir, "captures.db")}

	st, err := Open(opts, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, st.Deliver(context.Background(), testCapture(time.Now())))
	require.NoError(t, st.Close())

	st, err = Open(opts, zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
