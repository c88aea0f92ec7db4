package systems

import (
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// ScoreFactor - ценность цели для стрелка.
func ScoreFactor(t enums.ObjectType) int {
	switch t {
	case enums.ObjectNPCBug:
		return 1
	case enums.ObjectNPCMercenary, enums.ObjectNPCTrader:
		return 2
	case enums.ObjectBugNest:
		return 5
	}
	return 0
}

// BoltReward - сколько очков получает игрок за попадание.
func BoltReward(t enums.ObjectType) uint32 {
	return uint32(ScoreFactor(t)*10 + 10)
}

// DamageFactor - сила удара монстра данного типа.
func DamageFactor(t enums.ObjectType) int {
	switch t {
	case enums.ObjectNPCMercenary:
		return 3
	case enums.ObjectNPCBug:
		return 1
	case enums.ObjectNPCTrader:
		return 5
	}
	return 0
}

// MonsterDamage - урон по игроку от удара с данным коэффициентом.
func MonsterDamage(factor int) byte {
	return byte(factor*2 + 2)
}

// LootFromBag превращает сумку погибшего игрока в содержимое сундука.
// Пустые слоты (Lint или нулевое количество) не переносятся.
func LootFromBag(bag []api.BagSlot) []api.BagSlot {
	var loot []api.BagSlot
	for _, s := range bag {
		if s.Type == enums.BagLint || s.Count <= 0 {
			continue
		}
		loot = append(loot, s)
	}
	return loot
}
