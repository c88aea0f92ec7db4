package domain

import (
	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

const (
	// NPCMaxSpeed - скорость, при которой переход на клетку занимает один шаг.
	NPCMaxSpeed = 3

	// NPCRefreshRate - период шага NPC, с ним же клиент получает позиции.
	NPCRefreshRate   float32 = 0.2
	blockedPathDelay float32 = 1.0
)

// MovementMode - как NPC выбирает следующую клетку.
type MovementMode int

const (
	// MoveStationary - стоит на месте и поворачивается к цели.
	MoveStationary MovementMode = iota
	// MoveDirect - жадный шаг по прямой к цели.
	MoveDirect
	// MoveSearch - идёт по пути из планировщика A*, по прямой как запасной вариант.
	MoveSearch
)

type npcProfile struct {
	speed  int
	health int
	mode   MovementMode
	stance enums.NPCStance
}

var npcProfiles = map[enums.ObjectType]npcProfile{
	enums.ObjectNPCBug:       {speed: 3, health: 0, mode: MoveDirect, stance: enums.StanceAggressive},
	enums.ObjectNPCMantis:    {speed: 3, health: 3, mode: MoveDirect, stance: enums.StanceAggressive},
	enums.ObjectNPCMercenary: {speed: 2, health: 0, mode: MoveSearch, stance: enums.StanceAggressive},
	enums.ObjectNPCSpider:    {speed: 2, health: 5, mode: MoveSearch, stance: enums.StanceAggressive},
	enums.ObjectNPCTrader:    {speed: 1, health: 1, mode: MoveStationary, stance: enums.StanceNeutral},
}

// NPC - подвижный монстр. Ходит по клеткам: сначала помечает целевую
// клетку как NPC_Intent, затем за (NPCMaxSpeed - speed + 1) шагов
// доезжает до неё и освобождает старую.
type NPC struct {
	WorldObject
	Stance enums.NPCStance

	speed  int
	health int
	mode   MovementMode

	watching   types.WorldVector // точка интереса
	isWatching bool

	hasIntent bool // идёт переход на toCell
	intent    types.WorldVector
	moveCount int
	moveDelta types.WorldVector
	fromCell  types.VectorInt
	toCell    types.VectorInt
	nextCell  types.VectorInt

	blockedTimer types.GameTimer

	// режим поиска
	job            *search.Job
	pathStep       int
	nextOnPath     bool
	pauseSearching bool
}

// NewNPC создаёт NPC заданного вида. Для неизвестного вида вернёт nil.
func NewNPC(id int32, kind enums.ObjectType, pos types.WorldVector) *NPC {
	p, ok := npcProfiles[kind]
	if !ok {
		return nil
	}
	n := &NPC{
		WorldObject:  newWorldObject(id, kind, pos, NPCRefreshRate),
		Stance:       p.stance,
		speed:        p.speed,
		health:       p.health,
		mode:         p.mode,
		blockedTimer: types.NewGameTimer(blockedPathDelay),
	}
	n.canHit = true
	return n
}

func (n *NPC) Speed() int                  { return n.speed }
func (n *NPC) Health() int                 { return n.health }
func (n *NPC) Mode() MovementMode          { return n.mode }
func (n *NPC) Watching() types.WorldVector { return n.watching }
func (n *NPC) IsWatching() bool            { return n.isWatching }
func (n *NPC) HasIntent() bool             { return n.hasIntent }
func (n *NPC) IntentCell() types.VectorInt { return n.toCell }
func (n *NPC) PlannedJob() *search.Job     { return n.job }
func (n *NPC) IsSearchPaused() bool        { return n.pauseSearching }

// SetWatching задаёт точку, к которой NPC будет двигаться.
func (n *NPC) SetWatching(target types.WorldVector) {
	n.watching = target
	n.isWatching = true
}

// OnHit: пока есть здоровье, попадание его уменьшает; попадание
// при нулевом здоровье уничтожает NPC.
func (n *NPC) OnHit(int) bool {
	if n.health > 0 {
		n.health--
		n.MarkDirty()
		return false
	}
	return true
}

// Destroy освобождает клетку под NPC и клетку незавершённого перехода,
// а также отменяет задачу поиска.
func (n *NPC) Destroy() {
	if n.job != nil {
		n.job.Cancel()
		n.job = nil
	}
	if n.hasIntent {
		n.clearOwned(n.fromCell)
		n.clearOwned(n.toCell)
	}
	n.WorldObject.Destroy()
}

// DestroyNotification: препятствие, мешавшее поиску, уничтожено -
// снова можно искать путь.
func (n *NPC) DestroyNotification() {
	n.pauseSearching = false
}

func (n *NPC) Update(delta float32) bool {
	n.blockedTimer.UpdateAsCooldown(delta)

	if n.updateTimer.IsTimeElapsed() {
		n.updateTimer.Reset()
		switch n.mode {
		case MoveStationary:
			if n.isWatching {
				n.Rotation = types.RotationOf(n.watching.Sub(n.Position))
				n.MarkDirty()
			}
		default:
			if n.hasIntent {
				n.step()
			} else {
				n.updateMovement()
			}
		}
	}
	return n.WorldObject.Update(delta)
}

// step продвигает текущий переход. На последнем шаге NPC встаёт точно
// в центр клетки, старая клетка освобождается, и сразу выбирается
// следующий ход.
func (n *NPC) step() {
	n.Position = n.Position.Add(n.moveDelta)
	n.moveCount--
	n.MarkDirty()
	if n.moveCount > 0 {
		return
	}

	n.Position = n.intent
	n.clearOwned(n.fromCell)
	if g := n.grid(); g != nil {
		_ = g.Set(n.toCell, Cell{Type: n.kind, ID: n.id})
	}
	n.hasIntent = false
	n.Flags = 0
	n.updateMovement()
}

func (n *NPC) updateMovement() {
	if !n.isWatching || n.hasIntent {
		return
	}
	g := n.grid()
	if g == nil {
		return
	}
	current, err := g.CellVector(n.Position)
	if err != nil {
		n.isWatching = false
		return
	}

	var ok bool
	if n.mode == MoveSearch && n.env.Search != nil && !n.pauseSearching {
		ok = n.nextPathMove(current)
	} else {
		ok = n.nextDirectMove(current)
	}
	if !ok {
		return
	}

	if n.claim(current) {
		n.blockedTimer.Reset()
		return
	}

	if n.blockedTimer.IsTimeElapsed() {
		n.blockedTimer.Reset()
		if n.nextOnPath {
			n.clearPathJob()
		} else {
			n.isWatching = false
		}
	}
}

// claim занимает nextCell, если она пуста, и начинает переход.
func (n *NPC) claim(current types.VectorInt) bool {
	g := n.grid()
	cell, err := g.Get(n.nextCell)
	if err != nil || !cell.IsEmpty() {
		return false
	}
	_ = g.Set(n.nextCell, Cell{Type: enums.ObjectNPCIntent, ID: n.id})

	n.fromCell = current
	n.toCell = n.nextCell
	n.intent = g.WorldVector(n.toCell.X, n.toCell.Y)
	n.moveCount = NPCMaxSpeed - n.speed + 1
	n.moveDelta = n.intent.Sub(n.Position).Div(float32(n.moveCount))
	n.Rotation = types.RotationOf(n.moveDelta)
	n.hasIntent = true
	n.Flags = 1
	return true
}

// nextDirectMove - жадный шаг: по каждой оси двигаемся, если
// нормированное направление к цели больше 0.5 по модулю.
func (n *NPC) nextDirectMove(current types.VectorInt) bool {
	n.nextOnPath = false
	g := n.grid()
	target, err := g.CellVector(n.watching)
	if err != nil {
		n.isWatching = false
		return false
	}
	velocity := g.WorldVector(target.X, target.Y).Sub(n.Position).Normalize()

	to := current
	if velocity.X < -0.5 {
		to.X--
	}
	if velocity.X > 0.5 {
		to.X++
	}
	if velocity.Y < -0.5 {
		to.Y--
	}
	if velocity.Y > 0.5 {
		to.Y++
	}
	if to == current {
		n.isWatching = false
		return false
	}
	n.nextCell = to
	return true
}

// nextPathMove ведёт NPC по найденному пути. Пока задача в работе,
// NPC стоит на месте.
func (n *NPC) nextPathMove(current types.VectorInt) bool {
	n.nextOnPath = true
	target, err := n.grid().CellVector(n.watching)
	if err != nil {
		n.isWatching = false
		return false
	}

	if n.job == nil {
		job := search.NewJob(current, target)
		if n.env.Search.AddJob(job) == search.Rejected {
			logger.WithComponent("npc").WithFields(logrus.Fields{
				"object_id": n.id,
				"goal":      target.String(),
			}).Warn("Search job rejected, moving directly")
			return n.nextDirectMove(current)
		}
		n.job = job
		n.pathStep = 0
		return false
	}

	if n.job.IsPathBlockedByTransient() {
		if n.env.Notifier != nil {
			for _, tr := range n.job.Transients() {
				if tr.ID >= 0 {
					n.env.Notifier.AddDestroyNotification(n.id, tr.ID)
				}
			}
		}
		n.pauseSearching = true
		n.clearPathJob()
		return n.nextDirectMove(current)
	}

	if !n.job.IsGoal(target) {
		n.clearPathJob()
		return n.nextDirectMove(current)
	}

	if !n.job.IsFinished() {
		if n.job.IsCancelled() {
			// планировщик сбросил задачу (смена карты)
			n.clearPathJob()
		}
		return false
	}
	if !n.job.HasSolution() {
		n.clearPathJob()
		return n.nextDirectMove(current)
	}
	return n.continueOnPath(current)
}

func (n *NPC) continueOnPath(current types.VectorInt) bool {
	arcs := n.job.Solution()
	if current == arcs[len(arcs)-1].Head {
		n.clearPathJob()
		return false
	}
	if n.pathStep+1 < len(arcs) && current == arcs[n.pathStep+1].Head {
		n.pathStep++
	}
	if n.pathStep+1 >= len(arcs) {
		n.clearPathJob()
		return false
	}
	n.nextCell = arcs[n.pathStep+1].Head
	return true
}

func (n *NPC) clearPathJob() {
	if n.job != nil {
		n.job.Cancel()
	}
	n.job = nil
	n.pathStep = 0
	n.isWatching = false
}
