package sim

import "time"

// VerticalSpeedBuffer keeps a rolling window of altitude samples keyed by simulated time
// and derives a smoothed vertical speed from it.
type VerticalSpeedBuffer struct {
	samples []altSample
	window  time.Duration
}

type altSample struct {
	at  time.Duration
	alt float64
}

// NewVerticalSpeedBuffer creates a buffer with the specified window of simulated time.
func NewVerticalSpeedBuffer(window time.Duration) *VerticalSpeedBuffer {
	return &VerticalSpeedBuffer{window: window}
}

// Update adds an altitude sample taken at simulated time at and returns the vertical speed
// in ft/min over the window.
func (b *VerticalSpeedBuffer) Update(at time.Duration, alt float64) float64 {
	b.samples = append(b.samples, altSample{at: at, alt: alt})

	cutoff := at - b.window
	for len(b.samples) > 2 && b.samples[1].at < cutoff {
		b.samples = b.samples[1:]
	}

	if len(b.samples) < 2 {
		return 0
	}

	first := b.samples[0]
	last := b.samples[len(b.samples)-1]

	dt := (last.at - first.at).Seconds()
	if dt <= 0 {
		return 0
	}

	// ft/s to ft/min
	return (last.alt - first.alt) / dt * 60.0
}

// Reset clears the buffer.
func (b *VerticalSpeedBuffer) Reset() {
	b.samples = nil
}
