package model

import (
	"math"

	"proofline.ai/internal/sim/world/logic/dirs"
)

// TileSize is the world-space width of one grid tile.
const TileSize = 32.0

// Item is a payload moving through the grid. Whoever holds the pointer owns it.
type Item struct {
	Formula string
	Theorem bool
	// Pos is a continuous world position, independent of the grid.
	Pos [2]float64
}

// TileCenter returns the world position at the center of tile p.
func TileCenter(p dirs.Vec) [2]float64 {
	return [2]float64{float64(p.X)*TileSize + TileSize/2, float64(p.Y)*TileSize + TileSize/2}
}

// TileOf returns the tile containing world position pos.
func TileOf(pos [2]float64) dirs.Vec {
	return dirs.Vec{X: int(math.Floor(pos[0] / TileSize)), Y: int(math.Floor(pos[1] / TileSize))}
}

func lerp(a, b [2]float64, t float64) [2]float64 {
	return [2]float64{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}
