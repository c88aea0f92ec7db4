package client

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// objectBufferSize - сколько позиций NPC ждут интерполяции.
const objectBufferSize = 30

// RemoteObject - объект мира глазами клиента. NPC ведутся плавно по
// позициям, которые сервер шлёт раз в domain.NPCRefreshRate; остальные
// объекты встают туда, куда сказал сервер.
type RemoteObject struct {
	State    api.ObjectState
	Position types.WorldVector

	buffer *Ring[types.WorldVector]
	timer  float32
	cells  []types.VectorInt
}

func newRemoteObject(s api.ObjectState) *RemoteObject {
	return &RemoteObject{
		State:    s,
		Position: s.Position,
		buffer:   NewRing[types.WorldVector](objectBufferSize),
	}
}

func (o *RemoteObject) ID() int32              { return o.State.ID }
func (o *RemoteObject) Type() enums.ObjectType { return o.State.Type }

// apply принимает новое состояние от сервера.
func (o *RemoteObject) apply(s api.ObjectState) {
	o.State = s
	if !s.Type.IsNPC() {
		o.Position = s.Position
		return
	}
	if o.buffer.Len() == 0 {
		o.buffer.Add(o.Position)
	}
	if o.buffer.Last() == s.Position {
		return
	}
	if o.buffer.IsFull() {
		o.buffer.Clear()
		o.timer = 0
	}
	o.buffer.Add(s.Position)
}

// updatePosition - интерполяция между двумя старшими позициями за период
// обновления NPC.
func (o *RemoteObject) updatePosition(delta float32) {
	if o.buffer.Len() < 2 {
		return
	}
	a, b := o.buffer.At(0), o.buffer.At(1)
	o.Position = types.Lerp(a, b, o.timer/domain.NPCRefreshRate)

	o.timer += delta
	if o.timer > domain.NPCRefreshRate {
		o.buffer.RemoveFromStart(1)
		o.timer -= domain.NPCRefreshRate
	}
}

// IsPickup - объект, который подбирают, наступив на него.
func IsPickup(kind enums.ObjectType) bool {
	return kind == enums.ObjectCash || enums.BagItemFor(kind) != enums.BagLint
}

// ObjectManager - клиентская копия объектов мира. Объекты основного слоя
// отражаются в сетке, чтобы предсказание движения упиралось в те же
// двери и монстров, что и на сервере.
type ObjectManager struct {
	objects map[int32]*RemoteObject
	grid    *domain.Grid
}

func NewObjectManager() *ObjectManager {
	return &ObjectManager{objects: make(map[int32]*RemoteObject)}
}

// Reset удаляет все объекты и переключается на новую сетку.
func (m *ObjectManager) Reset(grid *domain.Grid) {
	clear(m.objects)
	m.grid = grid
}

func (m *ObjectManager) Grid() *domain.Grid { return m.grid }
func (m *ObjectManager) Count() int         { return len(m.objects) }

func (m *ObjectManager) Get(id int32) *RemoteObject { return m.objects[id] }

// Apply добавляет новый объект или обновляет известный. true - объект новый.
func (m *ObjectManager) Apply(s api.ObjectState) bool {
	o, ok := m.objects[s.ID]
	if !ok {
		o = newRemoteObject(s)
		m.objects[s.ID] = o
	} else {
		o.apply(s)
	}
	m.place(o)
	return !ok
}

// Remove убирает объект и освобождает его клетки.
func (m *ObjectManager) Remove(id int32) *RemoteObject {
	o, ok := m.objects[id]
	if !ok {
		return nil
	}
	m.vacate(o)
	delete(m.objects, id)
	return o
}

// Update двигает NPC между снимками.
func (m *ObjectManager) Update(delta float32) {
	for _, o := range m.objects {
		o.updatePosition(delta)
	}
}

// PickupAt - подбираемый объект в клетке pos.
func (m *ObjectManager) PickupAt(pos types.WorldVector) (*RemoteObject, bool) {
	cell := pos.Floor()
	for _, o := range m.objects {
		if o.State.Active && IsPickup(o.State.Type) && o.State.Position.Floor() == cell {
			return o, true
		}
	}
	return nil, false
}

// Nearest - ближайший объект в радиусе maxDist, прошедший фильтр.
func (m *ObjectManager) Nearest(pos types.WorldVector, maxDist float32, match func(*RemoteObject) bool) (*RemoteObject, bool) {
	var best *RemoteObject
	bestDist := maxDist
	for _, o := range m.objects {
		if match != nil && !match(o) {
			continue
		}
		if d := pos.Distance(o.Position); d <= bestDist {
			best, bestDist = o, d
		}
	}
	return best, best != nil
}

// place отмечает объект основного слоя в сетке. Чужие клетки не затираются.
func (m *ObjectManager) place(o *RemoteObject) {
	m.vacate(o)
	if m.grid == nil || o.State.Layer != enums.LayerMain {
		return
	}
	c, err := m.grid.CellVector(o.State.Position)
	if err != nil {
		return
	}
	width := max(int(o.State.Width), 1)
	for i := 0; i < width; i++ {
		cell, err := m.grid.Get(c)
		if err != nil {
			break
		}
		if cell.IsEmpty() {
			_ = m.grid.Set(c, domain.Cell{Type: o.State.Type, ID: o.State.ID, Data: int32(o.State.Flags)})
			o.cells = append(o.cells, c)
		}
		if o.State.IsHorizontal {
			c.X++
		} else {
			c.Y++
		}
	}
}

func (m *ObjectManager) vacate(o *RemoteObject) {
	if m.grid != nil {
		for _, c := range o.cells {
			if cell, err := m.grid.Get(c); err == nil && cell.ID == o.State.ID {
				m.grid.Clear(c)
			}
		}
	}
	o.cells = o.cells[:0]
}
