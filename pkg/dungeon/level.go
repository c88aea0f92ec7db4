package dungeon

import (
	"errors"
	"fmt"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// ErrInvalidLevel - документ уровня не прошел схему или сборку.
var ErrInvalidLevel = errors.New("invalid level")

// ErrLevelNotFound - в наборе нет карты с таким номером.
var ErrLevelNotFound = errors.New("level not found")

// levelDoc - уровень в том виде, в каком он лежит в YAML.
type levelDoc struct {
	ID   uint16     `yaml:"id"`
	Name string     `yaml:"name"`
	Rows []string   `yaml:"rows"`
	Data []cellData `yaml:"data"`
}

type cellData struct {
	X     int   `yaml:"x"`
	Y     int   `yaml:"y"`
	Value int32 `yaml:"value"`
}

// Level - собранный уровень: стены, массив объектов, точки появления
// и выхода. Клетка (0,0) лежит в начале мировых координат, как и у
// карты, пришедшей клиенту в MapPacket. Сетки уровня неизменяемы,
// наружу отдаются копии.
type Level struct {
	ID     uint16
	Name   string
	Width  int
	Height int

	Spawn types.WorldVector
	Exit  types.WorldVector

	walls   *domain.Grid
	objects *domain.Grid
}

// slotOffsets раздвигает игроков вокруг точки появления: вверх,
// вправо, вниз, влево по номеру слота.
var slotOffsets = [...]types.WorldVector{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

func buildLevel(doc levelDoc) (*Level, error) {
	height := len(doc.Rows)
	if height == 0 {
		return nil, fmt.Errorf("level %d has no rows: %w", doc.ID, ErrInvalidLevel)
	}
	width := len(doc.Rows[0])

	l := &Level{
		ID:      doc.ID,
		Name:    doc.Name,
		Width:   width,
		Height:  height,
		walls:   domain.NewGrid(width, height, types.VectorInt{}),
		objects: domain.NewGrid(width, height, types.VectorInt{}),
	}

	spawns, exits := 0, 0
	for y, row := range doc.Rows {
		if len(row) != width {
			return nil, fmt.Errorf("level %d row %d has %d cells, want %d: %w", doc.ID, y, len(row), width, ErrInvalidLevel)
		}
		for x := 0; x < width; x++ {
			c := types.VectorInt{X: x, Y: y}
			switch ch := row[x]; ch {
			case GlyphFloor, GlyphBlank:
			case GlyphWall:
				_ = l.walls.Set(c, domain.Cell{Type: enums.ObjectWall, ID: -1})
			case GlyphSpawn:
				spawns++
				l.Spawn = l.walls.WorldVector(x, y)
			default:
				kind, data, ok := Lookup(ch)
				if !ok {
					return nil, fmt.Errorf("level %d cell %v: unknown glyph %q: %w", doc.ID, c, ch, ErrInvalidLevel)
				}
				if kind == enums.ObjectExitPoint {
					if exits == 0 {
						l.Exit = l.walls.WorldVector(x, y)
					}
					exits++
				}
				_ = l.objects.Set(c, domain.Cell{Type: kind, Data: data, ID: -1})
			}
		}
	}
	if spawns != 1 {
		return nil, fmt.Errorf("level %d has %d spawn points, want 1: %w", doc.ID, spawns, ErrInvalidLevel)
	}
	if exits == 0 {
		return nil, fmt.Errorf("level %d has no exit: %w", doc.ID, ErrInvalidLevel)
	}

	for _, d := range doc.Data {
		c := types.VectorInt{X: d.X, Y: d.Y}
		cell, err := l.objects.Get(c)
		if err != nil {
			return nil, fmt.Errorf("level %d data: %w", doc.ID, errors.Join(err, ErrInvalidLevel))
		}
		if cell.IsEmpty() {
			return nil, fmt.Errorf("level %d data at %v: no object there: %w", doc.ID, c, ErrInvalidLevel)
		}
		cell.Data = d.Value
		_ = l.objects.Set(c, cell)
	}
	return l, nil
}

// Geometry - свежая сетка со стенами уровня, на ней живет симуляция.
func (l *Level) Geometry() *domain.Grid { return l.walls.Clone() }

// Objects - свежий массив объектов уровня. Копия нужна потому, что
// CountCommonCells помечает уже учтенные клетки.
func (l *Level) Objects() *domain.Grid { return l.objects.Clone() }

// SpawnPoint - точка появления игрока в слоте slot.
func (l *Level) SpawnPoint(slot int) types.WorldVector { return SpawnFor(l.Spawn, slot) }

// SpawnFor сдвигает общую точку появления на смещение слота. Клиент
// пользовательской карты знает только саму точку из MapPacket.
func SpawnFor(spawn types.WorldVector, slot int) types.WorldVector {
	if slot < 0 || slot >= len(slotOffsets) {
		return spawn
	}
	return spawn.Add(slotOffsets[slot])
}

// MapPacket описывает уровень для клиента. Встроенные карты клиент
// знает по номеру, пользовательские уходят целиком.
func (l *Level) MapPacket(custom bool) *api.MapPacket {
	p := &api.MapPacket{IsCustom: custom, Map: l.ID}
	if !custom {
		return p
	}
	p.SpawnPoint = l.Spawn
	p.ExitPoint = l.Exit
	p.Width = int32(l.Width)
	p.Height = int32(l.Height)
	p.Cells = make([]enums.ObjectType, 0, l.Width*l.Height)
	for x := 0; x < l.Width; x++ {
		for y := 0; y < l.Height; y++ {
			p.Cells = append(p.Cells, l.walls.TypeAt(x, y))
		}
	}
	return p
}

// GridFromMap восстанавливает стены из пользовательской карты на клиенте.
func GridFromMap(p *api.MapPacket) *domain.Grid {
	g := domain.NewGrid(int(p.Width), int(p.Height), types.VectorInt{})
	for x := 0; x < int(p.Width); x++ {
		for y := 0; y < int(p.Height); y++ {
			if p.Cell(x, y) == enums.ObjectWall {
				_ = g.Set(types.VectorInt{X: x, Y: y}, domain.Cell{Type: enums.ObjectWall, ID: -1})
			}
		}
	}
	return g
}
