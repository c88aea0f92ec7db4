package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/client"
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
	"github.com/Kelvintronic/inhabited/pkg/dungeon"
	"github.com/Kelvintronic/inhabited/pkg/logger"
	"github.com/Kelvintronic/inhabited/pkg/utils"
)

const (
	// activateRange - с какого расстояния бот трогает двери, сундуки и выход.
	activateRange float32 = 1.4
	// arriveRadius - точка пути считается пройденной.
	arriveRadius float32 = 0.2
	// axisDeadZone - по оси ближе этого бот не жмёт клавишу.
	axisDeadZone float32 = 0.05

	planBudget   = 64
	maxPlanSteps = 64

	// chestEvery - пауза между действиями с сундуком и сумкой, в тиках.
	chestEvery = 10
	// healBelow - при таком здоровье бот лечится из сумки.
	healBelow byte = 50
)

// ErrRejected - сервер не пустил бота.
var ErrRejected = errors.New("join rejected")

type Config struct {
	Seed        uint64
	SenseRange  float32
	FireChance  float64
	ReplanEvery int
	MaxPathCost float64
}

func DefaultConfig() Config {
	return Config{
		SenseRange:  8,
		FireChance:  0.2,
		ReplanEvery: 30,
		MaxPathCost: 60,
	}
}

// Bot - "игрок-компьютер" (headless agent). Подключается к серверу так же,
// как обычный клиент: все решения принимает по своей клиентской копии мира
// и отправляет обычные команды ввода.
//
// Жизненный цикл:
//  1. NewBot -> клиентская логика и свой планировщик путей.
//  2. Start -> JoinPacket.
//  3. Run -> кадры сервера и фиксированные тики в одной горутине.
//  4. Tick -> think выбирает цель, путь и ввод, LogicUpdate отправляет команду.
type Bot struct {
	cfg   Config
	logic *client.Logic

	search *search.Scheduler
	grid   *domain.Grid
	rng    *rand.Rand

	ticks  int
	goal   int32
	path   []types.WorldVector
	wander types.WorldVector

	log *logrus.Entry
}

func NewBot(name string, levels *dungeon.LevelSet, t client.Transport, cfg Config) *Bot {
	def := DefaultConfig()
	if cfg.SenseRange <= 0 {
		cfg.SenseRange = def.SenseRange
	}
	if cfg.ReplanEvery <= 0 {
		cfg.ReplanEvery = def.ReplanEvery
	}
	if cfg.MaxPathCost <= 0 {
		cfg.MaxPathCost = def.MaxPathCost
	}
	return &Bot{
		cfg:    cfg,
		logic:  client.NewLogic(name, levels, t),
		search: search.NewScheduler(search.Config{MaxPathCost: cfg.MaxPathCost}),
		rng:    utils.NewRand(cfg.Seed),
		goal:   -1,
		log:    logger.WithComponent("bot").WithField("name", name),
	}
}

func (b *Bot) Logic() *client.Logic { return b.logic }

// Start отправляет серверу запрос на вход.
func (b *Bot) Start() error {
	b.log.Info("Bot joining")
	return b.logic.Join()
}

// HandleFrame передаёт кадр сервера клиентской логике.
func (b *Bot) HandleFrame(frame []byte) error {
	return b.logic.HandleFrame(frame)
}

// Run крутит бота до отмены ctx или закрытия inbox. Кадры и тики
// обрабатываются в одной горутине, как в обычном клиенте.
func (b *Bot) Run(ctx context.Context, inbox <-chan []byte) error {
	if err := b.Start(); err != nil {
		return err
	}
	ticker := time.NewTicker(time.Second / types.LogicFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Bot stopped")
			return nil
		case frame, ok := <-inbox:
			if !ok {
				b.log.Info("Connection closed, bot stopped")
				return nil
			}
			if err := b.HandleFrame(frame); err != nil {
				b.log.WithError(err).Debug("Frame dropped")
			}
		case <-ticker.C:
			if reason, rejected := b.logic.Rejected(); rejected {
				return fmt.Errorf("%w: %s", ErrRejected, reason)
			}
			if err := b.Tick(); err != nil {
				return err
			}
		}
	}
}

// Tick - один фиксированный тик бота.
func (b *Bot) Tick() error {
	p := b.logic.Player()
	if p == nil {
		return nil
	}
	b.ticks++
	if p.IsAlive() && p.IsActive() {
		b.think(p)
	} else {
		b.path = b.path[:0]
	}
	return b.logic.LogicUpdate()
}

func (b *Bot) think(p *client.ClientPlayer) {
	objects := b.logic.Objects()
	if objects.Grid() != b.grid {
		b.grid = objects.Grid()
		b.search.Initialise(b.grid)
		b.replan(p)
	}

	if b.ticks%chestEvery == 0 {
		b.useChest()
		b.heal(p)
	}

	if o, ok := objects.Nearest(p.Position, activateRange, isActivatable); ok {
		if b.logic.Activate(o) {
			b.log.WithFields(logrus.Fields{"object_id": o.ID(), "type": o.Type().String()}).Debug("Activating")
		}
	}

	velocity := b.steer(p)

	rotation := p.Rotation
	fire := false
	if npc, ok := objects.Nearest(p.Position, b.cfg.SenseRange, isHostile); ok {
		rotation = types.RotationOf(npc.Position.Sub(p.Position))
		fire = b.rng.Float64() < b.cfg.FireChance
	} else if !velocity.IsZero() {
		rotation = types.RotationOf(velocity)
	}
	p.SetInput(velocity, rotation, fire)
}

// steer ведёт бота по пути к цели. Нет цели или пути - бродит.
func (b *Bot) steer(p *client.ClientPlayer) types.WorldVector {
	lost := b.goal >= 0 && (len(b.path) == 0 || b.logic.Objects().Get(b.goal) == nil)
	if lost || b.ticks%b.cfg.ReplanEvery == 0 {
		b.replan(p)
	}

	for len(b.path) > 0 && p.Position.Distance(b.path[0]) < arriveRadius {
		b.path = b.path[1:]
	}
	if len(b.path) > 0 {
		d := b.path[0].Sub(p.Position)
		return types.Vec(axis(d.X), axis(d.Y))
	}

	if b.wander.IsZero() || b.ticks%b.cfg.ReplanEvery == 0 {
		b.wander = utils.RandomDirection(b.rng)
	}
	return b.wander
}

// replan выбирает цель: ближайший предмет, который влезет в сумку,
// иначе выход.
func (b *Bot) replan(p *client.ClientPlayer) {
	objects := b.logic.Objects()
	from := p.Position
	b.goal = -1
	b.path = b.path[:0]

	target, ok := objects.Nearest(from, b.cfg.SenseRange, func(o *client.RemoteObject) bool {
		kind := o.Type()
		if !o.State.Active || !client.IsPickup(kind) {
			return false
		}
		return kind == enums.ObjectCash || p.CanAddBagItem(enums.BagItemFor(kind))
	})
	if !ok {
		target, ok = objects.Nearest(from, float32(b.grid.Width()+b.grid.Height()), func(o *client.RemoteObject) bool {
			return o.Type() == enums.ObjectExitPoint
		})
	}
	if !ok {
		return
	}

	cells := b.findPath(from, target.State.Position)
	if cells == nil {
		return
	}
	b.goal = target.ID()
	for _, c := range cells {
		b.path = append(b.path, b.grid.WorldVector(c.X, c.Y))
	}
	b.path = append(b.path, target.State.Position)
}

// findPath ищет путь до свободной клетки рядом с целью: сама цель для
// поиска непроходима.
func (b *Bot) findPath(from, to types.WorldVector) []types.VectorInt {
	start, err := b.grid.CellVector(from)
	if err != nil {
		return nil
	}
	goal, ok := b.approachCell(start, to)
	if !ok {
		return nil
	}
	if goal == start {
		return []types.VectorInt{}
	}

	job := search.NewJob(start, goal)
	s := b.search.FindSolution(job)
	for i := 0; i < maxPlanSteps && !s.Done(); i++ {
		s.Step(planBudget)
	}
	if !s.Done() {
		job.Cancel()
		return nil
	}
	if !job.HasSolution() {
		return nil
	}

	var cells []types.VectorInt
	for _, a := range job.Solution() {
		if !a.IsStart() {
			cells = append(cells, a.Head)
		}
	}
	return cells
}

// approachCell - свободная соседняя с целью клетка, ближайшая к start.
func (b *Bot) approachCell(start types.VectorInt, to types.WorldVector) (types.VectorInt, bool) {
	target, err := b.grid.CellVector(to)
	if err != nil {
		return types.VectorInt{}, false
	}
	best, found := types.VectorInt{}, false
	bestDist := 0
	for _, d := range [4]types.VectorInt{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}} {
		c := types.VectorInt{X: target.X + d.X, Y: target.Y + d.Y}
		cell, err := b.grid.Get(c)
		if err != nil || !cell.IsEmpty() {
			continue
		}
		dist := abs(c.X-start.X) + abs(c.Y-start.Y)
		if !found || dist < bestDist {
			best, bestDist, found = c, dist, true
		}
	}
	return best, found
}

// useChest забирает первый предмет из захваченного сундука, пустой отпускает.
func (b *Bot) useChest() {
	id, ok := b.logic.OpenChest()
	if !ok {
		return
	}
	chest := b.logic.Objects().Get(id)
	if chest == nil || chest.State.Chest == nil || len(chest.State.Chest.Items) == 0 {
		if err := b.logic.ReleaseChest(); err != nil {
			b.log.WithError(err).Warn("Release chest failed")
		}
		return
	}
	if err := b.logic.TakeItem(0); err != nil {
		b.log.WithError(err).Warn("Take item failed")
	}
}

func (b *Bot) heal(p *client.ClientPlayer) {
	if p.Health() >= healBelow {
		return
	}
	for i, s := range p.Bag() {
		if s.Type == enums.BagHealth {
			if err := b.logic.UseBagItem(i, false); err != nil {
				b.log.WithError(err).Warn("Use health failed")
			}
			return
		}
	}
}

func isActivatable(o *client.RemoteObject) bool {
	if !o.State.Active {
		return false
	}
	t := o.Type()
	if t == enums.ObjectChest {
		return o.State.Chest == nil || !o.State.Chest.IsOpen
	}
	return t.IsDoor() || t == enums.ObjectExitPoint
}

func isHostile(o *client.RemoteObject) bool {
	t := o.Type()
	return o.State.Active && t.IsNPC() && t != enums.ObjectNPCTrader
}

func axis(d float32) float32 {
	switch {
	case d > axisDeadZone:
		return 1
	case d < -axisDeadZone:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
