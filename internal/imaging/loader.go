package imaging

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of decoded frames to avoid
// redundant disk reads when the same still is processed repeatedly (replay,
// MCP tool calls against one file).
//
// Frames are decoded with EXIF auto-orientation so a photo taken in portrait
// is processed upright.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are those of github.com/disintegration/imaging (PNG,
// JPEG, GIF, BMP, TIFF). The cache key is the exact path string.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// FrameInfo describes a still frame as the detection pipeline would see it.
type FrameInfo struct {
	// Width and Height are the decoded (oriented) frame dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// ProcessingWidth and ProcessingHeight are the dimensions after the
	// detection downscale.
	ProcessingWidth  int `json:"processing_width"`
	ProcessingHeight int `json:"processing_height"`

	// MeanBrightness is the BT.601 luma mean of the processing raster (0-255).
	MeanBrightness float64 `json:"mean_brightness"`

	// Format is derived from the file extension: "png", "jpeg", "gif",
	// "bmp", "tiff", or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame through the cache and reports its original
// and processing dimensions along with its mean brightness.
func LoadFrameInfo(cache *ImageCache, path string, maxSide int) (*FrameInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	b := img.Bounds()
	pw, ph := DownscaleSize(b.Dx(), b.Dy(), maxSide)
	_, mean := GrayInto(nil, ScaleInto(nil, img, pw, ph))

	return &FrameInfo{
		Width:            b.Dx(),
		Height:           b.Dy(),
		ProcessingWidth:  pw,
		ProcessingHeight: ph,
		MeanBrightness:   mean,
		Format:           format,
		FileSizeBytes:    stat.Size(),
	}, nil
}
