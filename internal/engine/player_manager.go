package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/systems"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

// MaxPlayers - число слотов на сервере.
const MaxPlayers = 4

// PlayerManager хранит подключённых игроков в фиксированных слотах.
type PlayerManager struct {
	slots    [MaxPlayers]*ServerPlayer
	capacity int

	log *logrus.Entry
}

func NewPlayerManager(capacity int) *PlayerManager {
	if capacity <= 0 || capacity > MaxPlayers {
		capacity = MaxPlayers
	}
	return &PlayerManager{
		capacity: capacity,
		log:      logger.WithComponent("player_manager"),
	}
}

// AddPlayer занимает первый свободный слот. Игрок с уже известным id
// получает свой прежний слот. false - мест нет.
func (m *PlayerManager) AddPlayer(p *ServerPlayer) bool {
	for i := 0; i < m.capacity; i++ {
		if m.slots[i] != nil && m.slots[i].ID() == p.ID() {
			p.slot = i
			m.slots[i] = p
			return true
		}
	}
	for i := 0; i < m.capacity; i++ {
		if m.slots[i] == nil {
			p.slot = i
			m.slots[i] = p
			m.log.WithFields(logrus.Fields{"player_id": p.ID(), "slot": i, "name": p.Name}).Debug("Player added")
			return true
		}
	}
	return false
}

func (m *PlayerManager) RemovePlayer(id byte) *ServerPlayer {
	for i, p := range m.slots {
		if p != nil && p.ID() == id {
			m.slots[i] = nil
			return p
		}
	}
	return nil
}

func (m *PlayerManager) RemoveAllPlayers() {
	m.slots = [MaxPlayers]*ServerPlayer{}
}

func (m *PlayerManager) GetByID(id byte) *ServerPlayer {
	for _, p := range m.slots {
		if p != nil && p.ID() == id {
			return p
		}
	}
	return nil
}

func (m *PlayerManager) IsFull() bool { return m.Count() >= m.capacity }

func (m *PlayerManager) Count() int {
	n := 0
	for _, p := range m.slots {
		if p != nil {
			n++
		}
	}
	return n
}

// Players - игроки в порядке слотов.
func (m *PlayerManager) Players() []*ServerPlayer {
	out := make([]*ServerPlayer, 0, MaxPlayers)
	for _, p := range m.slots {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// LogicUpdate - тик всех игроков. Игрок, у которого в прошлом снимке
// было здоровье, а сейчас нет, помечается погибшим в этом тике.
func (m *PlayerManager) LogicUpdate() {
	for _, p := range m.slots {
		if p == nil {
			continue
		}
		p.deadThisTick = !p.IsAlive() && p.NetworkState.Health > 0
		p.Update(types.FixedDelta)
	}
}

// GetInactivePlayers - сколько игроков уже ушли с уровня.
func (m *PlayerManager) GetInactivePlayers() int {
	n := 0
	for _, p := range m.slots {
		if p != nil && !p.IsActive() {
			n++
		}
	}
	return n
}

// ResurrectNextDeadPlayer оживляет первого мёртвого игрока в точке pos.
// nil - мёртвых нет.
func (m *PlayerManager) ResurrectNextDeadPlayer(pos types.WorldVector) *ServerPlayer {
	for _, p := range m.slots {
		if p == nil || p.IsAlive() {
			continue
		}
		p.AddHealth(100)
		p.Position = pos
		m.log.WithField("player_id", p.ID()).Info("Player resurrected")
		return p
	}
	return nil
}

// States - снимок всех игроков для ServerStatePacket.
func (m *PlayerManager) States() []api.PlayerState {
	out := make([]api.PlayerState, 0, MaxPlayers)
	for _, p := range m.slots {
		if p != nil {
			out = append(out, p.NetworkState.Clone())
		}
	}
	return out
}

// Targets - живые игроки на уровне, за которыми могут следить монстры.
func (m *PlayerManager) Targets() []systems.Target {
	out := make([]systems.Target, 0, MaxPlayers)
	for _, p := range m.slots {
		if p != nil && p.IsAlive() && p.IsActive() {
			out = append(out, systems.Target{ID: p.ID(), Position: p.Position})
		}
	}
	return out
}
