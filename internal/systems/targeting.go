package systems

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/domain"
)

// SensorRange - дальность, на которой монстр замечает игрока.
const SensorRange float32 = 8.0

// Target - кандидат в цели (живой и активный игрок).
type Target struct {
	ID       byte
	Position types.WorldVector
}

// ClosestVisible ищет ближайшую цель в радиусе rangeLimit, которую видно из from.
//
// Параметры:
// - targets: уже отфильтрованные живые игроки.
// - rangeLimit: максимальная дистанция (SensorRange для монстров).
func ClosestVisible(g *domain.Grid, from types.WorldVector, targets []Target, rangeLimit float32) (Target, float32, bool) {
	best := -1
	bestDist := rangeLimit
	for i, t := range targets {
		dist := from.Distance(t.Position)
		if dist > bestDist || (best >= 0 && dist == bestDist) {
			continue
		}
		if !CanSee(g, from, t.Position) {
			continue
		}
		best = i
		bestDist = dist
	}
	if best < 0 {
		return Target{}, 0, false
	}
	return targets[best], bestDist, true
}
