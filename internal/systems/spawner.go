package systems

import (
	"math/rand/v2"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/pkg/utils"
)

const (
	nestStartPeriod   float32 = 5
	nestMaxPeriod     float32 = 10
	nestProbability   float32 = 0.5
	nestSpawnAttempts         = 5
	nestSlowdownEvery         = 10
)

// NestSpawner решает, когда открытое гнездо выплёвывает жука.
// Каждые period секунд с вероятностью 0.5 пробует до 5 точек на
// расстоянии 1-2 от гнезда. Каждые 10 жуков период растёт на секунду,
// а после 10 секунд снова сбрасывается на 5.
type NestSpawner struct {
	elapsed     float32
	period      float32
	probability float32
	spawnCount  int
}

func NewNestSpawner() *NestSpawner {
	return &NestSpawner{period: nestStartPeriod, probability: nestProbability}
}

func (s *NestSpawner) Period() float32 { return s.period }
func (s *NestSpawner) SpawnCount() int { return s.spawnCount }

// Update возвращает точку для нового жука, если он родился в этот тик.
// free сообщает, свободна ли точка от других NPC.
func (s *NestSpawner) Update(delta float32, r *rand.Rand, origin types.WorldVector, free func(types.WorldVector) bool) (types.WorldVector, bool) {
	s.elapsed += delta
	if s.elapsed < s.period {
		return types.WorldVector{}, false
	}
	s.elapsed = 0

	if r.Float32() > s.probability {
		return types.WorldVector{}, false
	}

	for range nestSpawnAttempts {
		candidate := origin.Add(utils.RandomDirection(r).Scale(utils.RandRange(r, 1, 2)))
		if !free(candidate) {
			continue
		}
		s.spawnCount++
		if s.spawnCount%nestSlowdownEvery == 0 {
			s.period++
		}
		if s.period > nestMaxPeriod {
			s.period = nestStartPeriod
		}
		return candidate, true
	}
	return types.WorldVector{}, false
}
