package domain

import (
	"math"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// Item - подбираемый предмет (ключ, аптечка, монета) или объект
// без собственного поведения.
type Item struct {
	WorldObject
}

// NewKey создаёт ключ. colour: 0 - красный, 1 - зелёный, 2 - синий.
func NewKey(id int32, pos types.WorldVector, colour int) *Item {
	kind := enums.ObjectKeyRed
	switch colour {
	case 1:
		kind = enums.ObjectKeyGreen
	case 2:
		kind = enums.ObjectKeyBlue
	}
	return &Item{WorldObject: newWorldObject(id, kind, pos, 0.5)}
}

func NewHealth(id int32, pos types.WorldVector) *Item {
	return &Item{WorldObject: newWorldObject(id, enums.ObjectHealth, pos, 0.5)}
}

func NewCash(id int32, pos types.WorldVector) *Item {
	return &Item{WorldObject: newWorldObject(id, enums.ObjectCash, pos, 0.5)}
}

// Breakable уничтожается первым же попаданием (бомба, сердце).
type Breakable struct {
	WorldObject
}

func NewBomb(id int32, pos types.WorldVector) *Breakable {
	b := &Breakable{WorldObject: newWorldObject(id, enums.ObjectBomb, pos, 0.5)}
	b.canHit = true
	return b
}

func NewHeart(id int32, pos types.WorldVector) *Breakable {
	h := &Breakable{WorldObject: newWorldObject(id, enums.ObjectHeart, pos, 0.5)}
	h.canHit = true
	return h
}

func (b *Breakable) OnHit(int) bool { return true }

// BlastRadius - радиус поражения бомбы.
const BlastRadius float32 = 10.0

// InBlast - попадает ли позиция pos во взрыв в точке center.
func InBlast(center, pos types.WorldVector) bool {
	return pos.Distance(center) < BlastRadius
}

// Generic - объект, который только занимает клетки: фальшивая стена,
// баррикада, выход. Flags несут дополнительные данные (например, номер
// карты у выхода).
type Generic struct {
	WorldObject
}

func NewGeneric(id int32, kind enums.ObjectType, pos types.WorldVector, data byte, width int, horizontal bool) *Generic {
	g := &Generic{WorldObject: newWorldObject(id, kind, pos, 0.5)}
	g.Flags = data
	g.setRun(width, horizontal)
	return g
}

func (o *WorldObject) setRun(width int, horizontal bool) {
	if width < 1 {
		width = 1
	}
	o.width = width
	o.isHorizontal = horizontal
}

// Door - дверь любого цвета, может занимать несколько клеток подряд.
type Door struct {
	WorldObject
}

func NewDoor(id int32, kind enums.ObjectType, pos types.WorldVector, width int, horizontal bool) *Door {
	d := &Door{WorldObject: newWorldObject(id, kind, pos, 0.5)}
	d.setRun(width, horizontal)
	return d
}

// RaycastDirection - куда "смотреть" за открытой дверью: в сторону,
// противоположную игроку. Значение - угол поворота в радианах.
func (d *Door) RaycastDirection(playerPos types.WorldVector) float32 {
	if d.isHorizontal {
		if playerPos.Y > d.Position.Y {
			return math.Pi
		}
		return 0
	}
	if playerPos.X > d.Position.X {
		return math.Pi / 2
	}
	return 3 * math.Pi / 2
}

// Conveyor - лента на функциональном слое. Rotation - угол в градусах,
// Flags - скорость.
type Conveyor struct {
	WorldObject
}

// ConveyorUnitSpeed - смещение в секунду на единицу скорости ленты.
const ConveyorUnitSpeed float32 = 1.5

func NewConveyor(id int32, pos types.WorldVector, angle int) *Conveyor {
	c := &Conveyor{WorldObject: newWorldObject(id, enums.ObjectConveyor, pos, 0.5)}
	c.layer = enums.LayerFunctional
	c.Rotation = float32(angle)
	c.Flags = 1
	return c
}

// Destroy ничего не делает: лента не занимает клеток сетки.
func (c *Conveyor) Destroy() {}

// Push - на сколько лента сдвигает стоящего на ней за delta секунд.
func (c *Conveyor) Push(delta float32) types.WorldVector {
	rad := float64(c.Rotation) * math.Pi / 180
	dir := types.Vec(float32(math.Cos(rad)), float32(math.Sin(rad)))
	return dir.Scale(float32(c.Flags) * ConveyorUnitSpeed * delta)
}

// BugNest - гнездо жуков. Три попадания закрывают его, но не уничтожают.
// Flags несут оставшееся здоровье.
type BugNest struct {
	WorldObject
	health byte
	open   bool
}

const nestHealth = 3

func NewBugNest(id int32, pos types.WorldVector) *BugNest {
	n := &BugNest{WorldObject: newWorldObject(id, enums.ObjectBugNest, pos, 0.5), health: nestHealth, open: true}
	n.canHit = true
	n.Flags = nestHealth
	return n
}

func (n *BugNest) IsOpen() bool { return n.open }

func (n *BugNest) OnHit(int) bool {
	if n.health > 0 {
		n.health--
		n.Flags = n.health
		n.MarkDirty()
	}
	return false
}

func (n *BugNest) Update(delta float32) bool {
	if n.health == 0 && n.open {
		n.open = false
		n.MarkDirty()
	}
	return n.WorldObject.Update(delta)
}

// Chest - сундук на слое контейнеров. Пока игрок держит захват,
// сундук открыт и из него можно брать предметы.
type Chest struct {
	WorldObject
	items []api.BagSlot
	open  bool
}

func NewChest(id int32, pos types.WorldVector) *Chest {
	c := &Chest{WorldObject: newWorldObject(id, enums.ObjectChest, pos, 0.5)}
	c.layer = enums.LayerContainer
	return c
}

func (c *Chest) IsOpen() bool { return c.open }

// Items - содержимое сундука (только для чтения).
func (c *Chest) Items() []api.BagSlot { return c.items }

// AddItem кладёт новую стопку предметов.
func (c *Chest) AddItem(item enums.PlayerBagItem, count int32) {
	if count <= 0 {
		return
	}
	c.items = append(c.items, api.BagSlot{Type: item, Count: count})
	c.MarkDirty()
}

// RemoveItem достаёт один предмет из стопки index. Пустой сундук
// освобождается автоматически.
func (c *Chest) RemoveItem(index int) enums.PlayerBagItem {
	if index < 0 || index >= len(c.items) {
		return enums.BagLint
	}
	item := c.items[index].Type
	c.items[index].Count--
	if c.items[index].Count <= 0 {
		c.items = append(c.items[:index], c.items[index+1:]...)
	}
	c.MarkDirty()
	if len(c.items) == 0 {
		c.Unlock(c.lockHolder)
	}
	return item
}

// Lock открывает сундук для игрока. Пустой сундук не открывается.
func (c *Chest) Lock(p Locker) bool {
	if len(c.items) == 0 {
		return false
	}
	if !c.WorldObject.Lock(p) {
		return false
	}
	c.open = true
	c.MarkDirty()
	return true
}

func (c *Chest) Unlock(p Locker) bool {
	if !c.WorldObject.Unlock(p) {
		return false
	}
	if c.open {
		c.open = false
		c.MarkDirty()
	}
	return true
}

func (c *Chest) Update(delta float32) bool {
	// захват мог сняться из-за смерти игрока
	wasLocked := c.locked
	changed := c.WorldObject.Update(delta)
	if wasLocked && !c.locked && c.open {
		c.open = false
		return true
	}
	return changed
}

func (c *Chest) State() api.ObjectState {
	s := c.WorldObject.State()
	s.Chest = &api.ChestData{IsOpen: c.open, Items: append([]api.BagSlot(nil), c.items...)}
	return s
}
