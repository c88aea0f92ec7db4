package domain

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/systems/search"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// FirstObjectID - первый id, который получает объект мира.
const FirstObjectID int32 = 42

// IDAllocator выдаёт монотонно растущие id объектов.
// Принадлежит ObjectManager, глобального счётчика нет.
type IDAllocator struct {
	next int32
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: FirstObjectID}
}

// Next возвращает следующий свободный id.
func (a *IDAllocator) Next() int32 {
	id := a.next
	a.next++
	return id
}

// Locker - тот, кто может захватить объект (сундук) для себя.
type Locker interface {
	ID() byte
	IsAlive() bool
}

// Notifier регистрирует подписку "сообщи мне, когда target будет уничтожен".
type Notifier interface {
	AddDestroyNotification(watcherID, targetID int32)
}

// PathFinder - узкий интерфейс планировщика поиска пути, нужный NPC.
type PathFinder interface {
	AddJob(job *search.Job) int
}

// Env - ссылки на мир, которые получает объект после создания.
// Search может быть nil: тогда NPC ходят только по прямой.
type Env struct {
	Grid     *Grid
	Search   PathFinder
	Notifier Notifier
}

// Object - общий набор возможностей всех объектов мира.
// ObjectManager работает только через этот интерфейс.
type Object interface {
	Base() *WorldObject

	// Update продвигает объект на delta секунд.
	// true - состояние изменилось и его нужно разослать клиентам.
	Update(delta float32) bool

	// OnHit возвращает true, если объект должен быть уничтожен.
	OnHit(attackerID int) bool

	// Destroy убирает следы объекта с сетки.
	Destroy()

	Lock(p Locker) bool
	Unlock(p Locker) bool

	// DestroyNotification вызывается, когда уничтожен объект,
	// на который этот объект подписался.
	DestroyNotification()

	State() api.ObjectState
}

// WorldObject - общие данные и поведение по умолчанию.
// Конкретные виды встраивают его и переопределяют нужные методы.
type WorldObject struct {
	id           int32
	kind         enums.ObjectType
	Position     types.WorldVector
	Rotation     float32
	active       bool
	canHit       bool
	layer        enums.ObjectLayer
	width        int
	isHorizontal bool
	Flags        byte

	env         *Env
	updateTimer types.GameTimer
	dirty       bool // внутреннее изменение, нужна рассылка

	locked     bool
	lockHolder Locker

	destroyNotifications []int32
}

// Минимальный период реакции объекта.
const minRefreshRate float32 = 0.2

func newWorldObject(id int32, kind enums.ObjectType, pos types.WorldVector, refreshRate float32) WorldObject {
	if refreshRate < minRefreshRate {
		refreshRate = minRefreshRate
	}
	return WorldObject{
		id:           id,
		kind:         kind,
		Position:     pos,
		active:       true,
		layer:        enums.LayerMain,
		width:        1,
		isHorizontal: true,
		updateTimer:  types.NewGameTimer(refreshRate),
	}
}

func (o *WorldObject) Base() *WorldObject { return o }

func (o *WorldObject) ID() int32                { return o.id }
func (o *WorldObject) Type() enums.ObjectType   { return o.kind }
func (o *WorldObject) IsActive() bool           { return o.active }
func (o *WorldObject) SetActive(active bool)    { o.active = active }
func (o *WorldObject) CanHit() bool             { return o.canHit }
func (o *WorldObject) Layer() enums.ObjectLayer { return o.layer }
func (o *WorldObject) Width() int               { return o.width }
func (o *WorldObject) IsHorizontal() bool       { return o.isHorizontal }
func (o *WorldObject) IsLocked() bool           { return o.locked }

// PositionInt - клетка под объектом без учёта смещения сетки.
func (o *WorldObject) PositionInt() types.VectorInt { return o.Position.Floor() }

// SnapToGrid ставит объект в центр его клетки.
func (o *WorldObject) SnapToGrid() {
	c := o.PositionInt()
	o.Position = types.Vec(float32(c.X)+0.5, float32(c.Y)+0.5)
}

// Bind передаёт объекту ссылки на мир. Вызывается ObjectManager при добавлении.
func (o *WorldObject) Bind(env *Env) { o.env = env }

func (o *WorldObject) grid() *Grid {
	if o.env == nil {
		return nil
	}
	return o.env.Grid
}

// MarkDirty просит разослать объект в ближайшем пакете состояния.
func (o *WorldObject) MarkDirty() { o.dirty = true }

// Update базовой версии: таймер реакции, снятие захвата с мёртвого игрока
// и флаг внутреннего изменения.
func (o *WorldObject) Update(delta float32) bool {
	o.updateTimer.UpdateAsCooldown(delta)

	if o.locked && o.lockHolder != nil && !o.lockHolder.IsAlive() {
		o.locked = false
	}

	if o.dirty {
		o.dirty = false
		return true
	}
	return false
}

func (o *WorldObject) OnHit(int) bool { return false }

// Lock закрепляет объект за игроком. Занятый объект не отдаётся.
func (o *WorldObject) Lock(p Locker) bool {
	if o.locked {
		return false
	}
	o.lockHolder = p
	o.locked = true
	return true
}

// Unlock снимает захват, если его держит этот же игрок.
// Возвращает true, если объект свободен.
func (o *WorldObject) Unlock(p Locker) bool {
	if o.locked && o.lockHolder != nil && p != nil && o.lockHolder.ID() == p.ID() {
		o.locked = false
	}
	return !o.locked
}

// IsHeldBy - держит ли захват именно этот игрок.
func (o *WorldObject) IsHeldBy(p Locker) bool {
	return o.locked && o.lockHolder != nil && p != nil && o.lockHolder.ID() == p.ID()
}

// AddDestroyNotification подписывает объект id на уничтожение этого объекта.
func (o *WorldObject) AddDestroyNotification(id int32) {
	for _, existing := range o.destroyNotifications {
		if existing == id {
			return
		}
	}
	o.destroyNotifications = append(o.destroyNotifications, id)
}

// DestroyNotifications - кому сообщить при уничтожении.
func (o *WorldObject) DestroyNotifications() []int32 { return o.destroyNotifications }

func (o *WorldObject) DestroyNotification() {}

// Destroy освобождает клетки основного слоя, которые принадлежат объекту.
func (o *WorldObject) Destroy() {
	if o.layer != enums.LayerMain {
		return
	}
	g := o.grid()
	if g == nil {
		return
	}
	c, err := g.CellVector(o.Position)
	if err != nil {
		return
	}
	for i := 0; i < o.width; i++ {
		o.clearOwned(c)
		if o.isHorizontal {
			c.X++
		} else {
			c.Y++
		}
	}
}

// clearOwned чистит клетку, только если в ней записан этот объект.
func (o *WorldObject) clearOwned(c types.VectorInt) {
	g := o.grid()
	if g == nil {
		return
	}
	if cell, err := g.Get(c); err == nil && cell.ID == o.id {
		g.Clear(c)
	}
}

// State - сетевое представление объекта.
func (o *WorldObject) State() api.ObjectState {
	return api.ObjectState{
		ID:           o.id,
		Type:         o.kind,
		Position:     o.Position,
		Rotation:     o.Rotation,
		Active:       o.active,
		CanHit:       o.canHit,
		Layer:        o.layer,
		Width:        int32(o.width),
		IsHorizontal: o.isHorizontal,
		Flags:        o.Flags,
	}
}
