package object

// Kind tags the variant of an Object.
type Kind int

const (
	Marble Kind = iota
	Tolley
)

// String is the registry tag for the kind.
func (k Kind) String() string {
	switch k {
	case Marble:
		return "marble"
	case Tolley:
		return "tolley"
	}
	return "unknown"
}

const (
	MarbleRadius = 0.5
	TolleyRadius = 0.75

	// RingRadius is the default play area; marbles beyond it are out.
	RingRadius = 20.0

	// Shininess is passed to the painter for every sphere.
	Shininess = 0.4

	massDensity   = 20.0 // over a sphere of half the visual radius
	resizeDensity = 10.0 // SetRadius uses the full radius
)

// damping is the rolling-friction approximation applied while an object sits on the
// floor. Coefficients multiply the current (angular) velocity.
type damping struct {
	accel, angAccel       float64 // inside the ring
	outAccel, outAngAccel float64 // outside the ring
	applyForce            bool    // linear damping enabled
	leavesPlay            bool    // crossing the ring takes it out of play
}

type traits struct {
	radius float64
	color  Color
	damping
}

var kinds = [...]traits{
	Marble: {
		radius:  MarbleRadius,
		color:   Color{0.8, 0.8, 0.8, 1},
		damping: damping{accel: -1.0, angAccel: -0.05, outAccel: -3.0, outAngAccel: -0.1, leavesPlay: true},
	},
	// the tolley must stop to end a turn, so it damps harder and never leaves play
	Tolley: {
		radius:  TolleyRadius,
		color:   Color{1, 1, 1, 1},
		damping: damping{accel: -1.5, angAccel: -0.5, outAccel: -3.0, outAngAccel: -0.3, applyForce: true},
	},
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kinds)
}
