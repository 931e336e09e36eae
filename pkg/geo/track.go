package geo

// TrackBuffer holds the most recent positions of an aircraft and derives its ground track,
// the bearing actually flown as opposed to the commanded heading.
// It is not safe for concurrent use.
type TrackBuffer struct {
	samples []Point
	window  int
}

// NewTrackBuffer creates a buffer over the last window positions. Windows below 2 are raised to 2.
func NewTrackBuffer(window int) *TrackBuffer {
	return &TrackBuffer{window: max(window, 2)}
}

// Push records p and returns the bearing from the oldest to the newest buffered position.
// fallback is returned until two positions are known.
func (b *TrackBuffer) Push(p Point, fallback float64) float64 {
	b.samples = append(b.samples, p)
	if len(b.samples) > b.window {
		b.samples = b.samples[1:]
	}
	if len(b.samples) < 2 {
		return fallback
	}
	return Bearing(b.samples[0], b.samples[len(b.samples)-1])
}

// Reset forgets all positions.
func (b *TrackBuffer) Reset() {
	b.samples = b.samples[:0]
}
