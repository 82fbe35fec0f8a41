package overlay

import (
	"math"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Spring is a critically damped 2D spring.
type Spring struct {
	Pos geometry.Point
	Vel geometry.Point
}

// Step advances the spring toward target by dt seconds with angular
// frequency omega. It uses the closed-form solution of
// a = ω²(target − x) − 2ωv, so it is stable for any dt.
func (s *Spring) Step(target geometry.Point, omega, dt float64) {
	if dt <= 0 {
		return
	}
	e := math.Exp(-omega * dt)
	s.Pos.X, s.Vel.X = critical(s.Pos.X-target.X, s.Vel.X, omega, dt, e)
	s.Pos.Y, s.Vel.Y = critical(s.Pos.Y-target.Y, s.Vel.Y, omega, dt, e)
	s.Pos.X += target.X
	s.Pos.Y += target.Y
}

// critical returns the offset and velocity after dt for a critically damped
// oscillator starting at offset x0 with velocity v0.
func critical(x0, v0, omega, dt, e float64) (float64, float64) {
	c2 := v0 + omega*x0
	x := (x0 + c2*dt) * e
	v := (c2 - omega*(x0+c2*dt)) * e
	return x, v
}

// Settled reports whether the spring is within eps of target and nearly
// at rest.
func (s *Spring) Settled(target geometry.Point, eps float64) bool {
	return geometry.Distance(s.Pos, target) < eps && math.Hypot(s.Vel.X, s.Vel.Y) < eps
}
