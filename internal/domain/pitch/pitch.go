// Package pitch holds pitch dimensions and the centre-to-corner coordinate
// shift applied to every source position.
package pitch

// Standard pitch dimensions in metres.
const (
	StandardLength = 105.0
	StandardWidth  = 68.0
)

// Pitch describes the playing surface.
type Pitch struct {
	Length float64
	Width  float64
}

// Standard returns a 105x68 pitch.
func Standard() Pitch { return Pitch{Length: StandardLength, Width: StandardWidth} }

// ToCorner converts centre-origin coordinates to corner-origin ones. No
// clamping is applied; off-pitch positions stay off-pitch.
func (p Pitch) ToCorner(x, y float64) (float64, float64) {
	return x + p.Length/2, y + p.Width/2
}

// Contains reports whether a corner-origin point lies on the pitch.
func (p Pitch) Contains(x, y float64) bool {
	return x >= 0 && x <= p.Length && y >= 0 && y <= p.Width
}
