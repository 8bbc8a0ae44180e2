package audio

import (
	"math"

	"github.com/voiceflowcms/nav-gateway/internal/world"
)

const (
	refDistance   = 1.0
	rolloffFactor = 1.0
)

// Panner computes per-channel gains for a sound positioned in the world.
// The listener sits at the origin facing +Y. Gain falls off with inverse
// distance beyond the reference distance and azimuth maps to an
// equal-power stereo pan.
type Panner struct {
	position world.Vector3
}

// NewPanner creates a panner for a source at the given position.
func NewPanner(position world.Vector3) *Panner {
	return &Panner{position: position}
}

// Gains returns the left and right channel gains, each in [0, 1].
func (p *Panner) Gains() (left, right float64) {
	d := p.position.DistanceTo(world.Vector3{})

	gain := 1.0
	if d > refDistance {
		gain = refDistance / (refDistance + rolloffFactor*(d-refDistance))
	}

	// Azimuth in the horizontal plane. Sources directly above or below
	// the listener pan to center.
	pan := 0.0
	if p.position.X != 0 || p.position.Y != 0 {
		pan = math.Sin(math.Atan2(p.position.X, p.position.Y))
	}

	angle := (pan + 1) * math.Pi / 4
	return gain * math.Cos(angle), gain * math.Sin(angle)
}
