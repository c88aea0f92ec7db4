package utils

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/Kelvintronic/inhabited/internal/core/types"
)

// NewRand создаёт генератор. seed == 0 - взять от времени.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandRange возвращает число из [min, max).
func RandRange(r *rand.Rand, min, max float32) float32 {
	return min + r.Float32()*(max-min)
}

// RandomDirection - случайный единичный вектор.
func RandomDirection(r *rand.Rand) types.WorldVector {
	a := r.Float64() * 2 * math.Pi
	return types.Vec(float32(math.Cos(a)), float32(math.Sin(a)))
}
