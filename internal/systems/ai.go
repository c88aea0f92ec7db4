package systems

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/domain"
)

const (
	senseInterval  float32 = 0.1
	attackInterval float32 = 0.75

	// AttackRange - ближе этого монстр бьёт, а не идёт.
	AttackRange float32 = 1.5
)

// SenseAction - что монстр решил сделать после осмотра.
type SenseAction int

const (
	SenseNone SenseAction = iota
	SenseWatch
	SenseAttack
)

func (a SenseAction) String() string {
	switch a {
	case SenseWatch:
		return "WATCH"
	case SenseAttack:
		return "ATTACK"
	}
	return "NONE"
}

// SenseResult - решение и цель, к которой оно относится.
type SenseResult struct {
	Action SenseAction
	Target Target
}

// MonsterSense - "органы чувств" одного монстра на сервере.
// Раз в 0.1 с ищет ближайшего видимого игрока; если тот дальше 1.5,
// монстр (закончив текущий шаг) начинает следить за ним, иначе атакует
// не чаще раза в 0.75 с.
type MonsterSense struct {
	intentTimer types.GameTimer
	attackTimer types.GameTimer

	target      types.WorldVector
	targetValid bool
}

func NewMonsterSense() *MonsterSense {
	return &MonsterSense{
		intentTimer: types.NewGameTimer(senseInterval),
		attackTimer: types.NewGameTimer(attackInterval),
	}
}

func (s *MonsterSense) HasTarget() bool           { return s.targetValid }
func (s *MonsterSense) Target() types.WorldVector { return s.target }

// Update продвигает таймеры и, если пора, осматривается.
// moving - у NPC есть незавершённый переход между клетками.
func (s *MonsterSense) Update(delta float32, g *domain.Grid, pos types.WorldVector, moving bool, targets []Target) SenseResult {
	s.attackTimer.UpdateAsCooldown(delta)
	s.intentTimer.UpdateAsCooldown(delta)

	if !s.intentTimer.IsTimeElapsed() {
		return SenseResult{}
	}
	s.intentTimer.Reset()

	closest, dist, ok := ClosestVisible(g, pos, targets, SensorRange)
	if !ok {
		s.targetValid = false
		return SenseResult{}
	}

	if dist > AttackRange {
		// ещё идём - не отвлекаемся
		if moving {
			return SenseResult{}
		}
		s.target = closest.Position
		s.targetValid = true
		return SenseResult{Action: SenseWatch, Target: closest}
	}

	if !s.attackTimer.IsTimeElapsed() {
		return SenseResult{}
	}
	s.attackTimer.Reset()
	return SenseResult{Action: SenseAttack, Target: closest}
}
