package stability

import "math"

// Quality score weights. The area term saturates at fullAreaRatio.
const (
	areaWeight       = 0.7
	brightnessWeight = 0.3
	fullAreaRatio    = 0.6
)

// QualityScore rates a detection in [0,1] from how much of the frame the
// document fills and how bright the frame is. It is informational and never
// affects the lock state.
func QualityScore(areaRatio, brightness float64) float64 {
	a := clamp01(areaRatio / fullAreaRatio)
	b := clamp01(brightness / 255)
	return areaWeight*a + brightnessWeight*b
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
