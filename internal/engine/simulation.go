package engine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/engine/handlers"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/systems"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/dungeon"
	"github.com/Kelvintronic/inhabited/pkg/logger"
	"github.com/Kelvintronic/inhabited/pkg/utils"
)

// PlayerResult - итог игрока на пройденной карте.
type PlayerResult struct {
	ID    byte
	Name  string
	Score uint32
	Cash  uint32
}

// LevelResult уходит слушателю, когда все игроки дошли до выхода.
type LevelResult struct {
	Map     uint16
	Tick    uint16
	Players []PlayerResult
}

// Simulation - авторитетный мир: тик, смена карт, реакции на события
// объектов и пакеты игроков. Весь доступ - из одной горутины.
type Simulation struct {
	cfg    SimulationConfig
	levels *dungeon.LevelSet
	sender network.Sender

	objects *ObjectManager
	players *PlayerManager
	router  *handlers.Router
	rng     *rand.Rand
	seed    uint64

	tick      uint16
	mapID     uint16
	nextMap   int32
	level     *dungeon.Level
	mapPacket *api.MapPacket

	placementFailures int
	onLevelComplete   func(LevelResult)

	log *logrus.Entry
}

// NewSimulation собирает мир и загружает стартовую карту.
func NewSimulation(cfg Config, levels *dungeon.LevelSet, sender network.Sender) (*Simulation, error) {
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := utils.NewRand(seed)

	s := &Simulation{
		cfg:     cfg.Simulation,
		levels:  levels,
		sender:  sender,
		objects: NewObjectManager(search.NewScheduler(cfg.Search), sender, rng),
		players: NewPlayerManager(cfg.Simulation.MaxPlayers),
		router:  handlers.NewRouter(),
		rng:     rng,
		seed:    seed,
		log:     logger.WithComponent("simulation"),
	}
	s.objects.SetEvents(s)
	s.registerHandlers()

	if err := s.setMap(uint16(cfg.Simulation.StartMap)); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"seed": seed, "map": s.mapID, "levels": levels.Count()}).Info("Simulation ready")
	return s, nil
}

// SetLevelListener подписывает на итоги пройденных карт.
func (s *Simulation) SetLevelListener(fn func(LevelResult)) { s.onLevelComplete = fn }

func (s *Simulation) Seed() uint64               { return s.seed }
func (s *Simulation) Tick() uint16               { return s.tick }
func (s *Simulation) Map() uint16                { return s.mapID }
func (s *Simulation) Level() *dungeon.Level      { return s.level }
func (s *Simulation) Objects() *ObjectManager    { return s.objects }
func (s *Simulation) Players() *PlayerManager    { return s.players }
func (s *Simulation) CurrentMap() *api.MapPacket { return s.mapPacket }
func (s *Simulation) PlacementFailures() int     { return s.placementFailures }

// LogicUpdate - один тик симуляции.
func (s *Simulation) LogicUpdate() {
	s.tick = uint16((int(s.tick) + 1) % types.MaxGameSequence)

	s.players.LogicUpdate()

	// сундук на месте гибели, если сумка была не пуста
	for _, p := range s.players.Players() {
		if p.DeadThisTick() && len(p.Bag()) > 0 {
			s.dropDeathChest(p)
		}
	}

	s.pushConveyors()

	s.objects.LogicUpdate(s.players.Targets())

	if int(s.tick)%s.cfg.BroadcastEvery != 0 {
		return
	}

	// все дошли до выхода - следующая карта
	if n := s.players.Count(); n > 0 && s.players.GetInactivePlayers() == n {
		s.advanceLevel()
	}

	s.objects.ProcessUpdateQueue(s.tick)
	s.broadcastState()
}

func (s *Simulation) broadcastState() {
	states := s.players.States()
	for _, p := range s.players.Players() {
		packet := &api.ServerStatePacket{
			Tick:                 s.tick,
			LastProcessedCommand: p.LastProcessedCommand(),
			PlayerStates:         states,
		}
		if err := s.sender.SendToPeer(p.ID(), packet, network.Unreliable); err != nil {
			s.log.WithError(err).WithField("player_id", p.ID()).Debug("State not sent")
		}
	}
}

// dropDeathChest перекладывает сумку погибшего в сундук на месте гибели.
// Если там уже стоит сундук, предметы добавляются в него. Сумка
// очищается только когда предметы легли в сундук.
func (s *Simulation) dropDeathChest(p *ServerPlayer) {
	loot := systems.LootFromBag(p.Bag())
	if len(loot) == 0 {
		return
	}
	log := s.log.WithFields(logrus.Fields{"player_id": p.ID(), "pos": p.Position.String()})

	chest, ok := s.objects.ContainerAt(p.Position).(*domain.Chest)
	if !ok {
		fresh, isChest := s.objects.CreateWorldObject(enums.ObjectChest, p.Position, 1, true, 0).(*domain.Chest)
		if !isChest || !s.objects.AddWorldObject(fresh) {
			log.Warn("Death chest not placed, bag kept")
			return
		}
		chest = fresh
	}
	for _, slot := range loot {
		chest.AddItem(slot.Type, slot.Count)
	}
	p.ClearBag()
	log.WithFields(logrus.Fields{"chest_id": chest.ID(), "items": len(loot)}).Info("Player died, bag dropped")
}

// pushConveyors двигает стоящих на лентах игроков и сообщает каждому
// сдвиг, чтобы клиент поправил предсказанную позицию.
func (s *Simulation) pushConveyors() {
	grid := s.objects.Grid()
	for _, p := range s.players.Players() {
		if !p.IsAlive() || !p.IsActive() {
			continue
		}
		conveyor, ok := s.objects.FunctionalAt(p.Position).(*domain.Conveyor)
		if !ok {
			continue
		}
		delta := conveyor.Push(types.FixedDelta)
		next := p.Position.Add(delta)
		if !systems.IsWalkable(grid, next) {
			continue
		}
		p.Position = next
		s.sendTo(p.ID(), &api.PlayerPositionCorrection{X: delta.X, Y: delta.Y})
	}
}

// advanceLevel выбирает следующую карту: заданную выходом или по кругу.
func (s *Simulation) advanceLevel() {
	s.reportLevel()

	next := uint16(0)
	if s.nextMap > 0 && s.levels.Has(uint16(s.nextMap)) {
		next = uint16(s.nextMap)
	} else if n := int(s.mapID) + 1; n <= s.cfg.MapCount && s.levels.Has(uint16(n)) {
		next = uint16(n)
	}
	if err := s.JumpToMap(next); err != nil {
		s.log.WithError(err).WithField("map", next).Error("Level advance failed")
	}
}

func (s *Simulation) reportLevel() {
	if s.onLevelComplete == nil {
		return
	}
	res := LevelResult{Map: s.mapID, Tick: s.tick}
	for _, p := range s.players.Players() {
		res.Players = append(res.Players, PlayerResult{ID: p.ID(), Name: p.Name, Score: p.Score(), Cash: p.Cash()})
	}
	s.onLevelComplete(res)
}

// JumpToMap загружает карту и переводит на неё всех игроков.
func (s *Simulation) JumpToMap(id uint16) error {
	if err := s.setMap(id); err != nil {
		return err
	}
	// сервер выделенный, поэтому новая карта уходит каждому игроку
	for _, p := range s.players.Players() {
		s.sendTo(p.ID(), s.mapPacket)

		p.NewLevelReset()
		p.SetActive(true)
		p.Spawn(s.level.SpawnPoint(p.Slot()))
		s.sendToAll(&api.SpawnPacket{PlayerID: p.ID(), X: p.Position.X, Y: p.Position.Y})
	}
	return nil
}

// setMap пересоздаёт мир по данным уровня. Двери и ложные стены,
// нарисованные несколькими клетками подряд, становятся одним объектом.
func (s *Simulation) setMap(id uint16) error {
	level, err := s.levels.Get(id)
	if err != nil {
		return fmt.Errorf("set map: %w", err)
	}
	s.level = level
	s.mapID = id
	s.nextMap = 0
	s.mapPacket = level.MapPacket(s.levels.IsCustom())

	s.objects.Reset(level.Geometry())
	grid := s.objects.Grid()

	objects := level.Objects()
	placed, failed := 0, 0
	for y := 0; y < objects.Height(); y++ {
		for x := 0; x < objects.Width(); x++ {
			cell := objects.At(x, y)
			if cell.IsEmpty() || objects.IsException(x, y) {
				continue
			}

			width, horizontal := 1, true
			if cell.Type.IsRunType() {
				width = objects.CountCommonCells(x, y, true)
				if width == 1 {
					if w := objects.CountCommonCells(x, y, false); w > 1 {
						width, horizontal = w, false
					}
				}
			}

			o := s.objects.CreateWorldObject(cell.Type, grid.WorldVector(x, y), width, horizontal, cell.Data)
			if o == nil {
				continue
			}
			if !s.objects.AddWorldObject(o) {
				failed++
				s.log.WithFields(logrus.Fields{"type": cell.Type.String(), "x": x, "y": y}).Warn("Failed to place level object")
				continue
			}
			placed++
		}
	}
	s.placementFailures = failed

	s.log.WithFields(logrus.Fields{"map": id, "name": level.Name, "objects": placed, "failed": failed}).Info("Map loaded")
	return nil
}

// OnBoltHit - снаряд игрока shooter попал в объект id.
func (s *Simulation) OnBoltHit(id int32, shooter byte) {
	o := s.objects.GetByID(id)
	if o == nil {
		return
	}
	base := o.Base()
	if !base.CanHit() {
		return
	}
	kind, pos := base.Type(), base.Position

	if o.OnHit(int(shooter)) {
		s.objects.RemoveObject(id)
		switch kind {
		case enums.ObjectBomb:
			s.objects.Explode(pos)
		case enums.ObjectHeart:
			s.onHeartDestroyed(pos)
		}
	} else {
		s.objects.SetUpdate(id)
	}

	if p := s.players.GetByID(shooter); p != nil {
		p.AddScore(systems.BoltReward(kind))
	}
}

// onHeartDestroyed оживляет первого погибшего игрока, а если таких
// нет - из сердца вылупляется жук.
func (s *Simulation) onHeartDestroyed(pos types.WorldVector) {
	if p := s.players.ResurrectNextDeadPlayer(pos); p != nil {
		s.sendToAll(&api.SpawnPacket{PlayerID: p.ID(), X: pos.X, Y: pos.Y})
		return
	}
	s.spawnBug(pos)
}

func (s *Simulation) spawnBug(pos types.WorldVector) {
	bug := s.objects.CreateWorldObject(enums.ObjectNPCBug, pos, 1, true, 0)
	if !s.objects.AddWorldObject(bug) {
		s.log.WithField("pos", pos.String()).Debug("No room for a bug")
	}
}

// OnMonsterAttack - монстр достал игрока.
func (s *Simulation) OnMonsterAttack(npcID int32, playerID byte) {
	o := s.objects.GetByID(npcID)
	if o == nil {
		return
	}
	p := s.players.GetByID(playerID)
	if p == nil {
		return
	}
	p.SubtractHealth(systems.MonsterDamage(systems.DamageFactor(o.Base().Type())))
}

// OnMonsterWatching - монстр повернулся к цели.
func (s *Simulation) OnMonsterWatching(npcID int32, target types.WorldVector) {
	if npc, ok := s.objects.GetByID(npcID).(*domain.NPC); ok {
		npc.SetWatching(target)
	}
}

// OnSpawnBug - открытое гнездо выпустило жука.
func (s *Simulation) OnSpawnBug(nestID int32, pos types.WorldVector) {
	if s.objects.GetByID(nestID) == nil {
		return
	}
	s.spawnBug(pos)
}

// OnTriggerDeletePoint удаляет объект, стоящий в точке срабатывания.
func (s *Simulation) OnTriggerDeletePoint(pos types.WorldVector) bool {
	id := s.objects.FindObjectByPosition(pos)
	if id < 0 {
		s.log.WithField("pos", pos.String()).Debug("Delete point: nothing there")
		return false
	}
	return s.objects.RemoveObject(id) != nil
}

func (s *Simulation) sendToAll(p api.Packet) {
	s.sender.SendToAll(p, network.ChannelFor(p))
}

func (s *Simulation) sendTo(peer byte, p api.Packet) {
	if err := s.sender.SendToPeer(peer, p, network.ChannelFor(p)); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"peer_id": peer, "packet": p.PacketType().String()}).Debug("Send failed")
	}
}
