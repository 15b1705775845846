package raster

// SentinelSize is the edge length of the placeholder rasters.
const SentinelSize = 12

var (
	inProgress = newSentinel(0x30, 0x30, 0x80)
	failed     = newSentinel(0xc0, 0x20, 0x20)
)

func newSentinel(red, green, blue uint8) *Raster {
	r := New(SentinelSize, SentinelSize)
	r.Fill(red, green, blue)
	return r
}

// InProgress returns the placeholder shown while an image is loading.
// The returned raster is shared and must not be modified.
func InProgress() *Raster {
	return inProgress
}

// Failed returns the placeholder shown when an image could not be loaded.
// The returned raster is shared and must not be modified.
func Failed() *Raster {
	return failed
}

// IsSentinel reports whether r is a placeholder rather than an image.
// Placeholders are recognised by their dimensions alone; a nil raster counts
// as one.
func IsSentinel(r *Raster) bool {
	return r == nil || (r.width == SentinelSize && r.height == SentinelSize)
}
