// Package repair removes stuck ("hot") and dead sensor pixels.
package repair

import (
	"slices"

	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// DefaultThreshold is the deviation from the neighborhood median above which
// a sample is considered broken.
const DefaultThreshold = 48

// Params controls pixel repair.
type Params struct {
	Enabled bool `json:"enabled"`

	// Threshold is the minimum deviation from the median of the 8 neighbors;
	// zero selects DefaultThreshold.
	Threshold int `json:"threshold,omitempty"`
}

// Apply replaces broken samples with the median of their 8 neighbors.
//
// A sample is broken when it lies more than Threshold away from that median
// and is strictly brighter (or strictly darker) than every neighbor, which
// leaves edges and fine texture alone. Each channel is judged separately.
// Border pixels use mirrored neighbors so a pixel is never compared with
// itself.
func Apply(r *parallel.Runner, src *raster.Raster, p Params) *raster.Raster {
	if raster.IsSentinel(src) || !p.Enabled {
		return src
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	w, h := src.Size()
	out := raster.New(w, h)
	r.ForRange(0, h, func(lo, hi int) {
		var nb [8]int
		for y := lo; y < hi; y++ {
			srow := src.Row(y)
			drow := out.Row(y)
			copy(drow, srow)
			for x := range w {
				for c := range 3 {
					v := int(srow[x*3+c])
					n := 0
					above, below := true, true
					for dy := -1; dy <= 1; dy++ {
						yy := reflect(y+dy, h)
						for dx := -1; dx <= 1; dx++ {
							if dx == 0 && dy == 0 {
								continue
							}
							xx := reflect(x+dx, w)
							s := int(src.Pix()[src.PixOffset(xx, yy)+c])
							nb[n] = s
							n++
							above = above && v > s
							below = below && v < s
						}
					}
					if !above && !below {
						continue
					}
					med := median8(nb)
					if abs(v-med) > threshold {
						drow[x*3+c] = uint8(med)
					}
				}
			}
		}
	})
	return out
}

// median8 returns the lower median of eight values.
func median8(v [8]int) int {
	s := v
	slices.Sort(s[:])
	return (s[3] + s[4]) / 2
}

// reflect mirrors an out-of-range index back into [0, n).
func reflect(i, n int) int {
	if i < 0 {
		i = -i
	}
	if i >= n {
		i = 2*n - 2 - i
	}
	return min(max(i, 0), n-1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
