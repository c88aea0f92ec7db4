package client

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/systems"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

const (
	// MaxStoredCommands - сколько неподтверждённых команд помнит клиент.
	MaxStoredCommands = 60

	// порог скорости по оси, после которого нажата клавиша
	inputThreshold float32 = 0.5
)

// ClientPlayer - свой игрок. Двигается сразу по своему вводу, не дожидаясь
// сервера. Снимок сервера обновляет здоровье, счёт, деньги, активность и
// сумку, но позицию не трогает: внешние сдвиги приходят отдельной поправкой.
type ClientPlayer struct {
	*domain.Player
	slot int

	commands *Ring[api.PlayerInputPacket]
	next     api.PlayerInputPacket

	firstState  bool
	lastTick    uint16
	lastCommand uint16

	correction types.WorldVector
	activate   *api.ActivateObjectPacket
	pickup     *api.PickupObjectPacket
}

func NewClientPlayer(name string, accept *api.JoinAcceptPacket) *ClientPlayer {
	p := &ClientPlayer{
		Player:   domain.NewPlayer(accept.ID, name),
		slot:     int(accept.Player),
		commands: NewRing[api.PlayerInputPacket](MaxStoredCommands),
		lastTick: accept.ServerTick,
	}
	p.Player.SetActive(true)
	return p
}

func (p *ClientPlayer) Slot() int { return p.slot }

// StoredCommands - команды, которые сервер ещё не подтвердил.
func (p *ClientPlayer) StoredCommands() int { return p.commands.Len() }

// LastServerTick - тик последнего принятого снимка.
func (p *ClientPlayer) LastServerTick() uint16 { return p.lastTick }

// NextCommand - команда, которая уйдёт на следующем тике.
func (p *ClientPlayer) NextCommand() api.PlayerInputPacket { return p.next }

// SetInput переводит желаемую скорость в клавиши. По каждой оси клавиша
// нажата, если скорость больше 0.5 по модулю.
func (p *ClientPlayer) SetInput(velocity types.WorldVector, rotation float32, fire bool) {
	var keys enums.MovementKeys
	if fire {
		keys |= enums.KeyFire
	}
	if velocity.X < -inputThreshold {
		keys |= enums.KeyLeft
	}
	if velocity.X > inputThreshold {
		keys |= enums.KeyRight
	}
	if velocity.Y < -inputThreshold {
		keys |= enums.KeyUp
	}
	if velocity.Y > inputThreshold {
		keys |= enums.KeyDown
	}
	p.next.Keys = keys
	p.next.Rotation = rotation
	p.Rotation = rotation
}

// SetActivate ставит в очередь взаимодействие с объектом. false - ещё
// не прошла перезарядка.
func (p *ClientPlayer) SetActivate(id int32, kind enums.ObjectType) bool {
	if !p.TryActivate() {
		return false
	}
	p.activate = &api.ActivateObjectPacket{ObjectID: id, Type: kind}
	return true
}

func (p *ClientPlayer) SetPickup(id int32) {
	p.pickup = &api.PickupObjectPacket{PlayerID: int32(p.ID()), ObjectID: id}
}

// AddCorrection копит внешний сдвиг (лента, толчок) до ближайшего тика.
func (p *ClientPlayer) AddCorrection(delta types.WorldVector) {
	p.correction = p.correction.Add(delta)
}

// Update - один тик предсказания. Возвращает пакеты для сервера:
// команду движения и, если были, активацию и подбор.
func (p *ClientPlayer) Update(grid *domain.Grid, delta float32) []api.Packet {
	p.Player.Update(delta)
	if !p.IsActive() {
		return nil
	}

	p.next.ID = types.NextSeq(p.next.ID)
	p.next.ServerTick = p.lastTick
	p.next.CorrectionAccepted = false

	if p.IsAlive() {
		p.Position = systems.IntegrateMovement(grid, p.Position, p.next.Keys, domain.PlayerSpeed, delta)
	}
	if !p.correction.IsZero() {
		p.Position = p.Position.Add(p.correction)
		p.correction = types.WorldVector{}
		p.next.CorrectionAccepted = true
	}
	p.next.Position = p.Position

	cmd := p.next
	p.commands.Add(cmd)
	out := []api.Packet{&cmd}

	if p.activate != nil {
		out = append(out, p.activate)
		p.activate = nil
	}
	if p.pickup != nil {
		out = append(out, p.pickup)
		p.pickup = nil
	}
	return out
}

// ReceiveServerState применяет снимок. Пока сервер не обработал ни одной
// команды, снимки игнорируются. Снимок с тем же тиком или с тем же
// номером последней команды считается повтором. false - снимок отброшен.
func (p *ClientPlayer) ReceiveServerState(state *api.ServerStatePacket, ours api.PlayerState) bool {
	if !p.firstState {
		if state.LastProcessedCommand == 0 {
			return false
		}
		p.firstState = true
	}
	if state.Tick == p.lastTick || state.LastProcessedCommand == p.lastCommand {
		return false
	}
	p.lastTick = state.Tick
	p.lastCommand = state.LastProcessedCommand

	p.ApplyState(ours)

	// подтверждённые команды больше не нужны
	for p.commands.Len() > 0 && types.SeqDiff(int(p.commands.At(0).ID), int(p.lastCommand)) <= 0 {
		p.commands.RemoveFromStart(1)
	}

	if !p.IsAlive() {
		p.SetInput(types.WorldVector{}, 0, false)
	}
	return true
}

// Spawn - телепорт от сервера.
func (p *ClientPlayer) Spawn(pos types.WorldVector) {
	p.correction = types.WorldVector{}
	p.Player.Spawn(pos)
}

// remoteBufferSize - сколько снимков чужого игрока ждут интерполяции.
const remoteBufferSize = 30

// RemotePlayer - чужой игрок. Позиции приходят редко, поэтому клиент
// держит их в буфере и плавно ведёт игрока от снимка к снимку.
type RemotePlayer struct {
	*domain.Player
	slot int

	buffer *Ring[api.PlayerState]
	timer  float32
	moving bool
}

func NewRemotePlayer(pkt *api.PlayerJoinedPacket) *RemotePlayer {
	st := pkt.InitialPlayerState
	p := &RemotePlayer{
		Player: domain.NewPlayer(st.ID, pkt.UserName),
		slot:   int(pkt.Player),
		buffer: NewRing[api.PlayerState](remoteBufferSize),
	}
	p.ApplyState(st)
	p.Position = st.Position
	p.Rotation = st.Rotation
	return p
}

func (p *RemotePlayer) Slot() int      { return p.slot }
func (p *RemotePlayer) IsMoving() bool { return p.moving }
func (p *RemotePlayer) Buffered() int  { return p.buffer.Len() }

// Spawn ставит игрока в точку мимо интерполяции.
func (p *RemotePlayer) Spawn(pos types.WorldVector) {
	p.buffer.Clear()
	p.timer = 0
	p.moving = false
	p.Player.Spawn(pos)
}

// OnPlayerState кладёт снимок в буфер. Старые снимки отбрасываются,
// переполнение (лаг) сбрасывает буфер.
func (p *RemotePlayer) OnPlayerState(s api.PlayerState) {
	p.ApplyState(s)
	p.Rotation = s.Rotation

	if p.buffer.Len() > 0 {
		if types.SeqDiff(int(s.Tick), int(p.buffer.Last().Tick)) <= 0 {
			return
		}
		if p.buffer.IsFull() {
			p.buffer.Clear()
			p.timer = 0
		}
	}
	p.buffer.Add(s)
}

// UpdatePosition ведёт игрока между двумя самыми старыми снимками.
// Меньше двух снимков - стоим на месте.
func (p *RemotePlayer) UpdatePosition(delta float32) {
	if p.buffer.Len() < 2 {
		return
	}
	a, b := p.buffer.At(0), p.buffer.At(1)

	lerpTime := float32(types.SeqDiff(int(b.Tick), int(a.Tick))) * types.FixedDelta
	p.Position = types.Lerp(a.Position, b.Position, p.timer/lerpTime)
	p.moving = a.Position != b.Position

	p.timer += delta
	if p.timer > lerpTime {
		p.buffer.RemoveFromStart(1)
		p.timer -= lerpTime
	}
}
