package engine

import (
	"math/rand/v2"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/systems"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

// WorldEvents - реакции симуляции на то, что заметили объекты мира.
// ObjectManager собирает события за тик и отдаёт их после обхода.
type WorldEvents interface {
	OnMonsterAttack(npcID int32, playerID byte)
	OnMonsterWatching(npcID int32, target types.WorldVector)
	OnSpawnBug(nestID int32, pos types.WorldVector)
}

type worldEventKind int

const (
	eventAttack worldEventKind = iota
	eventWatch
	eventSpawn
)

type worldEvent struct {
	kind   worldEventKind
	source int32
	player byte
	pos    types.WorldVector
}

// ObjectManager - единственный владелец объектов мира и сетки.
// Работает только в горутине симуляции.
type ObjectManager struct {
	grid   *domain.Grid
	search *search.Scheduler
	ids    *domain.IDAllocator
	env    *domain.Env
	sender network.Sender
	events WorldEvents
	rng    *rand.Rand

	objects     map[int32]domain.Object
	order       []int32 // порядок добавления, от него зависит порядок Update
	containers  map[types.VectorInt]int32
	functionals map[types.VectorInt]int32

	updates []int32
	queued  map[int32]struct{}

	senses   map[int32]*systems.MonsterSense
	spawners map[int32]*systems.NestSpawner

	scratch []int32
	pending []worldEvent

	searchesDone uint64

	log *logrus.Entry
}

func NewObjectManager(sched *search.Scheduler, sender network.Sender, rng *rand.Rand) *ObjectManager {
	m := &ObjectManager{
		search:      sched,
		ids:         domain.NewIDAllocator(),
		sender:      sender,
		rng:         rng,
		objects:     make(map[int32]domain.Object),
		containers:  make(map[types.VectorInt]int32),
		functionals: make(map[types.VectorInt]int32),
		queued:      make(map[int32]struct{}),
		senses:      make(map[int32]*systems.MonsterSense),
		spawners:    make(map[int32]*systems.NestSpawner),
		log:         logger.WithComponent("object_manager"),
	}
	m.env = &domain.Env{Search: sched, Notifier: m}
	return m
}

// SetEvents подключает получателя событий. Без него события теряются.
func (m *ObjectManager) SetEvents(e WorldEvents) { m.events = e }

func (m *ObjectManager) Grid() *domain.Grid { return m.grid }

// Reset удаляет все объекты без рассылки и привязывает менеджер к новой
// сетке. Поиск пути сбрасывается вместе с ней. Счётчик id не сбрасывается.
func (m *ObjectManager) Reset(grid *domain.Grid) {
	clear(m.objects)
	m.order = m.order[:0]
	clear(m.containers)
	clear(m.functionals)
	m.updates = m.updates[:0]
	clear(m.queued)
	clear(m.senses)
	clear(m.spawners)

	m.grid = grid
	m.env.Grid = grid
	m.search.Initialise(grid)
}

// CreateWorldObject - фабрика по типу. Для типов без объекта (стена,
// пустота, метка намерения) возвращает nil, id при этом не тратится.
// data - доп. данные уровня: номер карты у выхода, угол у ленты.
func (m *ObjectManager) CreateWorldObject(kind enums.ObjectType, pos types.WorldVector, width int, horizontal bool, data int32) domain.Object {
	switch kind {
	case enums.ObjectKeyRed:
		return domain.NewKey(m.ids.Next(), pos, 0)
	case enums.ObjectKeyGreen:
		return domain.NewKey(m.ids.Next(), pos, 1)
	case enums.ObjectKeyBlue:
		return domain.NewKey(m.ids.Next(), pos, 2)
	case enums.ObjectBomb:
		return domain.NewBomb(m.ids.Next(), pos)
	case enums.ObjectHeart:
		return domain.NewHeart(m.ids.Next(), pos)
	case enums.ObjectHealth:
		return domain.NewHealth(m.ids.Next(), pos)
	case enums.ObjectCash:
		return domain.NewCash(m.ids.Next(), pos)
	case enums.ObjectBugNest:
		return domain.NewBugNest(m.ids.Next(), pos)
	case enums.ObjectChest:
		return domain.NewChest(m.ids.Next(), pos)
	case enums.ObjectConveyor:
		return domain.NewConveyor(m.ids.Next(), pos, int(data))
	case enums.ObjectFalseWall, enums.ObjectBarricade, enums.ObjectExitPoint:
		return domain.NewGeneric(m.ids.Next(), kind, pos, byte(data), width, horizontal)
	}
	if kind.IsDoor() {
		return domain.NewDoor(m.ids.Next(), kind, pos, width, horizontal)
	}
	if kind.IsNPC() {
		return domain.NewNPC(m.ids.Next(), kind, pos)
	}
	return nil
}

// AddWorldObject размещает объект по его слою. Занятое место - false,
// объект не добавляется и сетка не меняется.
func (m *ObjectManager) AddWorldObject(o domain.Object) bool {
	if o == nil {
		return false
	}
	base := o.Base()
	if _, exists := m.objects[base.ID()]; exists {
		return false
	}

	switch base.Layer() {
	case enums.LayerContainer, enums.LayerFunctional:
		index := m.containers
		if base.Layer() == enums.LayerFunctional {
			index = m.functionals
		}
		key := base.PositionInt()
		if _, taken := index[key]; taken {
			return false
		}
		base.SnapToGrid()
		index[key] = base.ID()

	default:
		if m.grid == nil {
			return false
		}
		base.SnapToGrid()
		cells, ok := m.freeRun(base)
		if !ok {
			return false
		}
		for _, c := range cells {
			_ = m.grid.Set(c, domain.Cell{Type: base.Type(), ID: base.ID(), Data: int32(base.Flags)})
		}
	}

	base.Bind(m.env)
	m.objects[base.ID()] = o
	m.order = append(m.order, base.ID())

	switch t := o.(type) {
	case *domain.NPC:
		if t.Stance != enums.StanceAlly {
			m.senses[base.ID()] = systems.NewMonsterSense()
		}
	case *domain.BugNest:
		m.spawners[base.ID()] = systems.NewNestSpawner()
	}

	m.SetUpdate(base.ID())
	return true
}

// freeRun возвращает клетки, которые займёт объект, если все они свободны.
func (m *ObjectManager) freeRun(base *domain.WorldObject) ([]types.VectorInt, bool) {
	c, err := m.grid.CellVector(base.Position)
	if err != nil {
		return nil, false
	}
	cells := make([]types.VectorInt, 0, base.Width())
	for i := 0; i < base.Width(); i++ {
		cell, err := m.grid.Get(c)
		if err != nil || !cell.IsEmpty() {
			return nil, false
		}
		cells = append(cells, c)
		if base.IsHorizontal() {
			c.X++
		} else {
			c.Y++
		}
	}
	return cells, true
}

// RemoveObject уничтожает объект, будит подписчиков и рассылает удаление.
func (m *ObjectManager) RemoveObject(id int32) domain.Object {
	o, ok := m.objects[id]
	if !ok {
		return nil
	}
	base := o.Base()
	o.Destroy()

	for _, watcher := range base.DestroyNotifications() {
		if w, ok := m.objects[watcher]; ok {
			w.DestroyNotification()
		}
	}

	switch base.Layer() {
	case enums.LayerContainer:
		delete(m.containers, base.PositionInt())
	case enums.LayerFunctional:
		delete(m.functionals, base.PositionInt())
	}

	delete(m.objects, id)
	if i := slices.Index(m.order, id); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	delete(m.senses, id)
	delete(m.spawners, id)

	m.sender.SendToAll(&api.RemoveObjectPacket{ID: id}, network.ReliableOrdered)
	m.log.WithFields(logrus.Fields{"object_id": id, "type": base.Type().String()}).Debug("Object removed")
	return o
}

func (m *ObjectManager) GetByID(id int32) domain.Object {
	return m.objects[id]
}

// FindObjectByPosition - id объекта основного слоя под позицией, -1 если
// пусто или позиция вне карты.
func (m *ObjectManager) FindObjectByPosition(pos types.WorldVector) int32 {
	if m.grid == nil {
		return -1
	}
	cell, err := m.grid.CellAt(pos)
	if err != nil {
		return -1
	}
	return cell.ID
}

// FunctionalAt - лента или другой объект функционального слоя под позицией.
func (m *ObjectManager) FunctionalAt(pos types.WorldVector) domain.Object {
	if id, ok := m.functionals[pos.Floor()]; ok {
		return m.objects[id]
	}
	return nil
}

// ContainerAt - объект слоя контейнеров в клетке pos или nil.
func (m *ObjectManager) ContainerAt(pos types.WorldVector) domain.Object {
	if id, ok := m.containers[pos.Floor()]; ok {
		return m.objects[id]
	}
	return nil
}

// AddDestroyNotification - watcher узнает об уничтожении target.
func (m *ObjectManager) AddDestroyNotification(watcherID, targetID int32) {
	if target, ok := m.objects[targetID]; ok {
		target.Base().AddDestroyNotification(watcherID)
	}
}

// SetUpdate ставит объект в ближайший пакет. Повторы в одном пакете не дублируются.
func (m *ObjectManager) SetUpdate(id int32) {
	if _, ok := m.queued[id]; ok {
		return
	}
	m.queued[id] = struct{}{}
	m.updates = append(m.updates, id)
}

// LogicUpdate - один тик всех объектов. targets - живые активные игроки.
func (m *ObjectManager) LogicUpdate(targets []systems.Target) {
	if m.grid == nil {
		return
	}
	m.search.Tick()
	m.searchesDone += uint64(len(m.search.DrainFinished()))

	m.scratch = append(m.scratch[:0], m.order...)
	m.pending = m.pending[:0]
	for _, id := range m.scratch {
		o, ok := m.objects[id]
		if !ok {
			continue
		}
		if o.Update(types.FixedDelta) {
			m.SetUpdate(id)
		}
		m.sense(id, o, targets)
	}

	if m.events == nil {
		return
	}
	for _, e := range m.pending {
		switch e.kind {
		case eventAttack:
			m.events.OnMonsterAttack(e.source, e.player)
		case eventWatch:
			m.events.OnMonsterWatching(e.source, e.pos)
		case eventSpawn:
			m.events.OnSpawnBug(e.source, e.pos)
		}
	}
}

// sense - органы чувств монстров и таймеры гнёзд.
func (m *ObjectManager) sense(id int32, o domain.Object, targets []systems.Target) {
	switch t := o.(type) {
	case *domain.NPC:
		s := m.senses[id]
		if s == nil {
			return
		}
		res := s.Update(types.FixedDelta, m.grid, t.Position, t.HasIntent(), targets)
		switch res.Action {
		case systems.SenseWatch:
			m.pending = append(m.pending, worldEvent{kind: eventWatch, source: id, pos: res.Target.Position})
		case systems.SenseAttack:
			m.pending = append(m.pending, worldEvent{kind: eventAttack, source: id, player: res.Target.ID})
		}

	case *domain.BugNest:
		sp := m.spawners[id]
		if sp == nil {
			return
		}
		if !t.IsOpen() {
			delete(m.spawners, id)
			return
		}
		if pos, ok := sp.Update(types.FixedDelta, m.rng, t.Position, m.freeForSpawn); ok {
			m.pending = append(m.pending, worldEvent{kind: eventSpawn, source: id, pos: pos})
		}
	}
}

func (m *ObjectManager) freeForSpawn(pos types.WorldVector) bool {
	cell, err := m.grid.CellAt(pos)
	return err == nil && cell.IsEmpty()
}

// ProcessUpdateQueue отправляет накопленные изменения одним пакетом.
// Пустая очередь - ничего не отправляется.
func (m *ObjectManager) ProcessUpdateQueue(tick uint16) bool {
	if len(m.updates) == 0 {
		return false
	}
	states := make([]api.ObjectState, 0, len(m.updates))
	for _, id := range m.updates {
		if o, ok := m.objects[id]; ok {
			states = append(states, o.State())
		}
	}
	m.updates = m.updates[:0]
	clear(m.queued)
	if len(states) == 0 {
		return false
	}

	m.sender.SendToAll(&api.WorldObjectStatePacket{Tick: tick, Objects: states}, network.ReliableOrdered)
	return true
}

// UpdateClient отправляет новому игроку все объекты. Tick 0 - полный дамп.
func (m *ObjectManager) UpdateClient(peer byte) error {
	return m.sender.SendToPeer(peer, &api.WorldObjectStatePacket{Tick: 0, Objects: m.States()}, network.ReliableOrdered)
}

// States - состояние всех объектов в порядке добавления.
func (m *ObjectManager) States() []api.ObjectState {
	states := make([]api.ObjectState, 0, len(m.order))
	for _, id := range m.order {
		states = append(states, m.objects[id].State())
	}
	return states
}

// Explode уничтожает всех NPC в радиусе взрыва. Возвращает число убитых.
func (m *ObjectManager) Explode(center types.WorldVector) int {
	var victims []int32
	for _, id := range m.order {
		base := m.objects[id].Base()
		if base.Type().IsNPC() && domain.InBlast(center, base.Position) {
			victims = append(victims, id)
		}
	}
	for _, id := range victims {
		m.RemoveObject(id)
	}
	if len(victims) > 0 {
		m.log.WithFields(logrus.Fields{"center": center.String(), "killed": len(victims)}).Debug("Explosion")
	}
	return len(victims)
}

// ReleaseLocksHeldBy снимает захваты ушедшего игрока с сундуков.
func (m *ObjectManager) ReleaseLocksHeldBy(p domain.Locker) {
	for _, id := range m.containers {
		o := m.objects[id]
		if o != nil && o.Base().IsHeldBy(p) {
			o.Unlock(p)
			m.SetUpdate(id)
		}
	}
}

func (m *ObjectManager) Count() int { return len(m.objects) }

func (m *ObjectManager) PendingUpdates() int { return len(m.updates) }

func (m *ObjectManager) SearchStats() search.Stats { return m.search.Stats() }

// SearchesDone - сколько задач поиска завершилось с момента запуска.
func (m *ObjectManager) SearchesDone() uint64 { return m.searchesDone }
