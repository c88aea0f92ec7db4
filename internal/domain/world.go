package domain

import (
	"errors"
	"fmt"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
)

// ErrOutOfRange - позиция за пределами сетки.
var ErrOutOfRange = errors.New("cell out of range")

// Cell - одна клетка сетки: кто в ней стоит и что это такое.
type Cell struct {
	Type enums.ObjectType `json:"type"`
	Data int32            `json:"data,omitempty"`
	ID   int32            `json:"id"`
}

// EmptyCell - пустая клетка.
var EmptyCell = Cell{Type: enums.ObjectNone, ID: -1}

func (c Cell) IsEmpty() bool { return c.Type == enums.ObjectNone }

// Grid - карта занятости клеток, по ней решается всё движение.
// Клетки адресуются целыми координатами, мировые позиции переводятся
// в них через смещение начала.
//
// Сеткой владеет горутина симуляции, конкурентный доступ не поддерживается.
type Grid struct {
	width, height int
	offset        types.VectorInt
	cells         []Cell // column-major: x*height + y

	// клетки, уже учтённые в длинном объекте (CountCommonCells)
	exceptions map[types.VectorInt]struct{}
}

// NewGrid - пустая сетка width x height, клетка (0,0) лежит в мировой
// точке offset.
func NewGrid(width, height int, offset types.VectorInt) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{
		width:      width,
		height:     height,
		offset:     offset,
		cells:      make([]Cell, width*height),
		exceptions: make(map[types.VectorInt]struct{}),
	}
	for i := range g.cells {
		g.cells[i] = EmptyCell
	}
	return g
}

func (g *Grid) Width() int              { return g.width }
func (g *Grid) Height() int             { return g.height }
func (g *Grid) Offset() types.VectorInt { return g.offset }

func (g *Grid) InBounds(c types.VectorInt) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// At - клетка (x, y) без проверки границ.
func (g *Grid) At(x, y int) Cell {
	return g.cells[x*g.height+y]
}

// TypeAt is At(x, y).Type; it lets the grid serve as a search map.
func (g *Grid) TypeAt(x, y int) enums.ObjectType {
	return g.cells[x*g.height+y].Type
}

// Get - клетка c или ErrOutOfRange.
func (g *Grid) Get(c types.VectorInt) (Cell, error) {
	if !g.InBounds(c) {
		return Cell{}, fmt.Errorf("get %v in %dx%d grid: %w", c, g.width, g.height, ErrOutOfRange)
	}
	return g.At(c.X, c.Y), nil
}

// Set пишет клетку. Координаты за границей - ошибка, а не обрезка.
func (g *Grid) Set(c types.VectorInt, cell Cell) error {
	if !g.InBounds(c) {
		return fmt.Errorf("set %v in %dx%d grid: %w", c, g.width, g.height, ErrOutOfRange)
	}
	g.cells[c.X*g.height+c.Y] = cell
	return nil
}

// Clear освобождает клетку c, если она в пределах сетки.
func (g *Grid) Clear(c types.VectorInt) {
	if g.InBounds(c) {
		g.cells[c.X*g.height+c.Y] = EmptyCell
	}
}

// CellVector переводит мировую позицию в клетку: floor(позиция - смещение).
func (g *Grid) CellVector(pos types.WorldVector) (types.VectorInt, error) {
	c := pos.Sub(types.Vec(float32(g.offset.X), float32(g.offset.Y))).Floor()
	if !g.InBounds(c) {
		return c, fmt.Errorf("position %v maps to %v outside %dx%d grid: %w", pos, c, g.width, g.height, ErrOutOfRange)
	}
	return c, nil
}

// CellAt - клетка под мировой позицией.
func (g *Grid) CellAt(pos types.WorldVector) (Cell, error) {
	c, err := g.CellVector(pos)
	if err != nil {
		return Cell{}, err
	}
	return g.At(c.X, c.Y), nil
}

// WorldVector - мировая позиция центра клетки (x, y).
func (g *Grid) WorldVector(x, y int) types.WorldVector {
	return types.Vec(float32(x+g.offset.X)+0.5, float32(y+g.offset.Y)+0.5)
}

// CountCommonCells считает длину ряда клеток того же типа, что (x, y):
// вправо для горизонтального ряда, вверх для вертикального. Клетки ряда
// длиннее одной помечаются, так что обход всей карты видит ряд один раз.
func (g *Grid) CountCommonCells(x, y int, horizontal bool) int {
	if !g.InBounds(types.VectorInt{X: x, Y: y}) {
		return 0
	}
	kind := g.At(x, y).Type

	count := 0
	cx, cy := x, y
	var run []types.VectorInt
	for g.InBounds(types.VectorInt{X: cx, Y: cy}) && g.At(cx, cy).Type == kind {
		run = append(run, types.VectorInt{X: cx, Y: cy})
		count++
		if horizontal {
			cx++
		} else {
			cy++
		}
	}

	if count > 1 {
		for _, c := range run {
			g.exceptions[c] = struct{}{}
		}
	}
	return count
}

func (g *Grid) IsException(x, y int) bool {
	_, ok := g.exceptions[types.VectorInt{X: x, Y: y}]
	return ok
}

func (g *Grid) ClearExceptions() {
	clear(g.exceptions)
}

// Clone - глубокая копия без таблицы учтённых клеток.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		width:      g.width,
		height:     g.height,
		offset:     g.offset,
		cells:      make([]Cell, len(g.cells)),
		exceptions: make(map[types.VectorInt]struct{}),
	}
	copy(c.cells, g.cells)
	return c
}

// Snapshot - типы клеток по строкам, для отладки.
func (g *Grid) Snapshot() [][]enums.ObjectType {
	rows := make([][]enums.ObjectType, g.height)
	for y := 0; y < g.height; y++ {
		rows[y] = make([]enums.ObjectType, g.width)
		for x := 0; x < g.width; x++ {
			rows[y][x] = g.At(x, y).Type
		}
	}
	return rows
}

// OccupantAt is At(x, y).ID.
func (g *Grid) OccupantAt(x, y int) int32 {
	return g.cells[x*g.height+y].ID
}
