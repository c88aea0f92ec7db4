package engine

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/systems"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// ServerPlayer - авторитетная копия игрока. id совпадает с id пира.
type ServerPlayer struct {
	*domain.Player

	slot                 int
	lastProcessedCommand uint16

	// NetworkState - то, что ушло (или уйдёт) в ближайший снимок.
	NetworkState api.PlayerState
	deadThisTick bool
}

func NewServerPlayer(id byte, name string) *ServerPlayer {
	p := &ServerPlayer{Player: domain.NewPlayer(id, name)}
	p.Player.SetActive(true)
	p.NetworkState = p.State(0)
	return p
}

// Slot - номер слота, по нему клиент выбирает спрайт.
func (p *ServerPlayer) Slot() int { return p.slot }

func (p *ServerPlayer) LastProcessedCommand() uint16 { return p.lastProcessedCommand }

func (p *ServerPlayer) DeadThisTick() bool { return p.deadThisTick }

// ApplyInput применяет команду, если она новее последней обработанной.
// Устаревшие и повторные команды молча отбрасываются. Мёртвый или
// ушедший с уровня игрок не двигается, но номер команды продвигается.
func (p *ServerPlayer) ApplyInput(cmd *api.PlayerInputPacket, grid *domain.Grid, delta float32) bool {
	if types.SeqDiff(int(cmd.ID), int(p.lastProcessedCommand)) <= 0 {
		return false
	}
	p.lastProcessedCommand = cmd.ID
	p.Rotation = cmd.Rotation

	if !p.IsAlive() || !p.IsActive() {
		return true
	}
	if cmd.CorrectionAccepted {
		// клиент уже применил поправку сервера и прислал итог
		p.Position = cmd.Position
		return true
	}
	p.Position = systems.IntegrateMovement(grid, p.Position, cmd.Keys, domain.PlayerSpeed, delta)
	return true
}

// SetActive на сервере сдвигает номер последней команды: иначе клиент,
// который стоял без ввода, не примет следующий снимок.
func (p *ServerPlayer) SetActive(active bool) {
	p.NetworkState.Active = active
	p.lastProcessedCommand = types.NextSeq(p.lastProcessedCommand)
	p.Player.SetActive(active)
}

// ApplyActivate проверяет перезарядку и право открыть объект.
// Выход снимает игрока с уровня.
func (p *ServerPlayer) ApplyActivate(kind enums.ObjectType) bool {
	if !p.TryActivate() {
		return false
	}
	switch kind {
	case enums.ObjectExitPoint:
		p.Player.SetActive(false)
	case enums.ObjectDoorRed:
		return p.HasBagItem(enums.BagKeyRed)
	case enums.ObjectDoorGreen:
		return p.HasBagItem(enums.BagKeyGreen)
	case enums.ObjectDoorBlue:
		return p.HasBagItem(enums.BagKeyBlue)
	}
	return true
}

// Update - перезарядки и снимок сетевого состояния.
func (p *ServerPlayer) Update(delta float32) {
	p.Player.Update(delta)
	p.NetworkState = p.State(p.lastProcessedCommand)
}
