package domain

import (
	"os"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type testLocker struct {
	id    byte
	alive bool
}

func (l *testLocker) ID() byte      { return l.id }
func (l *testLocker) IsAlive() bool { return l.alive }

func TestIDAllocator(t *testing.T) {
	a := NewIDAllocator()
	if got := a.Next(); got != FirstObjectID {
		t.Fatalf("first id = %d", got)
	}
	if got := a.Next(); got != FirstObjectID+1 {
		t.Errorf("second id = %d", got)
	}
}

func TestChest_LockAndTake(t *testing.T) {
	c := NewChest(1, types.Vec(2.5, 2.5))
	p1 := &testLocker{id: 1, alive: true}
	p2 := &testLocker{id: 2, alive: true}

	if c.Lock(p1) {
		t.Fatal("empty chest must not open")
	}

	c.AddItem(enums.BagBomb, 2)
	c.AddItem(enums.BagKeyRed, 1)
	if !c.Lock(p1) || !c.IsOpen() {
		t.Fatal("chest with items did not open")
	}
	if c.Lock(p2) {
		t.Error("second player took a held chest")
	}
	if c.Unlock(p2) {
		t.Error("foreign player released the chest")
	}

	if got := c.RemoveItem(9); got != enums.BagLint {
		t.Errorf("RemoveItem(9) = %v", got)
	}
	if got := c.RemoveItem(0); got != enums.BagBomb || c.Items()[0].Count != 1 {
		t.Errorf("RemoveItem(0) = %v, items %v", got, c.Items())
	}
	c.RemoveItem(0)
	c.RemoveItem(0)
	if len(c.Items()) != 0 || c.IsLocked() || c.IsOpen() {
		t.Errorf("emptied chest: items=%v locked=%v open=%v", c.Items(), c.IsLocked(), c.IsOpen())
	}

	s := c.State()
	if s.Chest == nil || s.Layer != enums.LayerContainer {
		t.Errorf("state = %+v", s)
	}
}

func TestChest_ReleasedWhenHolderDies(t *testing.T) {
	c := NewChest(1, types.Vec(0.5, 0.5))
	p := &testLocker{id: 1, alive: true}
	c.AddItem(enums.BagHealth, 1)
	c.Lock(p)
	c.Update(0.1)

	p.alive = false
	if !c.Update(0.1) {
		t.Error("release was not reported as a change")
	}
	if c.IsLocked() || c.IsOpen() {
		t.Error("chest still held by a dead player")
	}
}

func TestBugNest_ClosesAfterThreeHits(t *testing.T) {
	n := NewBugNest(1, types.Vec(0.5, 0.5))
	for i := 0; i < 5; i++ {
		if n.OnHit(0) {
			t.Fatal("nest must never be destroyed by hits")
		}
	}
	if n.Flags != 0 {
		t.Errorf("flags = %d, want 0", n.Flags)
	}
	if !n.Update(0.1) || n.IsOpen() {
		t.Error("nest did not close")
	}
}

func TestDoor_RaycastDirection(t *testing.T) {
	t.Parallel()

	h := NewDoor(1, enums.ObjectDoor, types.Vec(5.5, 5.5), 3, true)
	v := NewDoor(2, enums.ObjectDoorRed, types.Vec(5.5, 5.5), 2, false)

	tests := []struct {
		name   string
		door   *Door
		player types.WorldVector
		want   types.WorldVector
	}{
		{"horizontal, player above", h, types.Vec(5.5, 7), types.Vec(0, -1)},
		{"horizontal, player below", h, types.Vec(5.5, 4), types.Vec(0, 1)},
		{"vertical, player right", v, types.Vec(7, 5.5), types.Vec(-1, 0)},
		{"vertical, player left", v, types.Vec(4, 5.5), types.Vec(1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types.Heading(tt.door.RaycastDirection(tt.player))
			if got.Distance(tt.want) > 1e-5 {
				t.Errorf("look = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInBlast(t *testing.T) {
	t.Parallel()

	centre := types.Vec(0, 0)
	if !InBlast(centre, types.Vec(9.9, 0)) {
		t.Error("9.9 should be inside the blast")
	}
	if InBlast(centre, types.Vec(10.1, 0)) {
		t.Error("10.1 should be outside the blast")
	}
}

func TestDestroyClearsOnlyOwnedCells(t *testing.T) {
	g := NewGrid(6, 3, types.VectorInt{})
	env := &Env{Grid: g}

	d := NewDoor(50, enums.ObjectDoor, g.WorldVector(1, 1), 3, true)
	d.Bind(env)
	for x := 1; x <= 3; x++ {
		_ = g.Set(types.VectorInt{X: x, Y: 1}, Cell{Type: enums.ObjectDoor, ID: 50})
	}
	// чужая клетка в конце ряда
	_ = g.Set(types.VectorInt{X: 3, Y: 1}, Cell{Type: enums.ObjectWall, ID: 7})

	d.Destroy()
	for x := 1; x <= 2; x++ {
		if !g.At(x, 1).IsEmpty() {
			t.Errorf("cell %d not cleared", x)
		}
	}
	if g.At(3, 1).ID != 7 {
		t.Error("destroy cleared a cell it did not own")
	}

	conv := NewConveyor(51, g.WorldVector(0, 0), 90)
	conv.Bind(env)
	_ = g.Set(types.VectorInt{}, Cell{Type: enums.ObjectWall, ID: 51})
	conv.Destroy()
	if g.At(0, 0).IsEmpty() {
		t.Error("conveyor destroy touched the grid")
	}
}

func TestConveyorPush(t *testing.T) {
	t.Parallel()

	c := NewConveyor(1, types.Vec(0.5, 0.5), 90)
	c.Flags = 2
	push := c.Push(0.5)
	if push.Distance(types.Vec(0, 1.5)) > 1e-5 {
		t.Errorf("push = %v", push)
	}
}
