package types

import (
	"fmt"
	"math"
)

// WorldVector is a continuous world position or direction.
type WorldVector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func Vec(x, y float32) WorldVector { return WorldVector{X: x, Y: y} }

func (v WorldVector) Add(o WorldVector) WorldVector { return WorldVector{v.X + o.X, v.Y + o.Y} }
func (v WorldVector) Sub(o WorldVector) WorldVector { return WorldVector{v.X - o.X, v.Y - o.Y} }
func (v WorldVector) Scale(f float32) WorldVector   { return WorldVector{v.X * f, v.Y * f} }

func (v WorldVector) Div(f float32) WorldVector { return WorldVector{v.X / f, v.Y / f} }

func (v WorldVector) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Normalize returns the unit vector, or the zero vector for zero input.
func (v WorldVector) Normalize() WorldVector {
	l := v.Length()
	if l == 0 {
		return WorldVector{}
	}
	return WorldVector{v.X / l, v.Y / l}
}

func (v WorldVector) Distance(o WorldVector) float32 { return v.Sub(o).Length() }

func (v WorldVector) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Floor truncates toward negative infinity on both axes.
func (v WorldVector) Floor() VectorInt {
	return VectorInt{X: int(math.Floor(float64(v.X))), Y: int(math.Floor(float64(v.Y)))}
}

// Lerp interpolates from a to b; t is clamped to [0,1].
func Lerp(a, b WorldVector, t float32) WorldVector {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return WorldVector{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// Heading is the facing direction for a rotation in radians. Rotation 0
// faces +y and grows counter-clockwise.
func Heading(rad float32) WorldVector {
	r := float64(rad)
	return WorldVector{float32(-math.Sin(r)), float32(math.Cos(r))}
}

// RotationOf is the inverse of Heading.
func RotationOf(dir WorldVector) float32 {
	return float32(math.Atan2(float64(dir.Y), float64(dir.X)) - math.Pi/2)
}

func (v WorldVector) String() string { return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y) }

// VectorInt is an integer cell coordinate.
type VectorInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (v VectorInt) Add(dx, dy int) VectorInt { return VectorInt{v.X + dx, v.Y + dy} }

func (v VectorInt) String() string { return fmt.Sprintf("[%d,%d]", v.X, v.Y) }

// Chebyshev returns max(|dx|,|dy|) between two cells.
func (v VectorInt) Chebyshev(o VectorInt) int {
	dx := v.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
