package systems

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	// BoltRange - максимальная дальность выстрела игрока.
	BoltRange float32 = 12.0
	boltStep  float32 = 0.25
)

// HasLineOfSight проверяет прямую видимость между двумя клетками.
// Использует алгоритм Брезенхэма (только целочисленная арифметика).
// Стартовая и конечная клетки не проверяются.
func HasLineOfSight(g *domain.Grid, from, to types.VectorInt) bool {
	if from == to {
		return true
	}

	x0, y0 := from.X, from.Y
	dx := abs(to.X - x0)
	dy := abs(to.Y - y0)
	sx, sy := sign(to.X-x0), sign(to.Y-y0)
	err := dx - dy

	for {
		cur := types.VectorInt{X: x0, Y: y0}
		if cur != from && cur != to {
			// 1. Граница карты
			if !g.InBounds(cur) {
				losLog(from, to).WithField("blocking_point", cur).
					Debug("Line of sight blocked by map bounds")
				return false
			}
			// 2. Стена
			if g.TypeAt(x0, y0) == enums.ObjectWall {
				losLog(from, to).WithField("blocking_point", cur).
					Debug("Line of sight blocked by wall")
				return false
			}
		}

		if x0 == to.X && y0 == to.Y {
			return true
		}

		e2 := err * 2
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// CanSee - то же самое для мировых координат. Точки вне карты не видны.
func CanSee(g *domain.Grid, from, to types.WorldVector) bool {
	a, err := g.CellVector(from)
	if err != nil {
		return false
	}
	b, err := g.CellVector(to)
	if err != nil {
		return false
	}
	return HasLineOfSight(g, a, b)
}

// BoltHit - клетка, в которую попал снаряд.
type BoltHit struct {
	Cell types.VectorInt
	ID   int32
	Type enums.ObjectType
}

// CastBolt ведёт снаряд из origin в направлении rotation шагами по 0.25.
// Клетка стрелка пропускается, как и отметки намерений NPC.
// Первая занятая клетка останавливает снаряд; стена его поглощает.
// ok=false, если снаряд ни во что не попал.
func CastBolt(g *domain.Grid, origin types.WorldVector, rotation float32) (hit BoltHit, ok bool) {
	start, err := g.CellVector(origin)
	if err != nil {
		return BoltHit{}, false
	}
	dir := types.Heading(rotation)

	for d := boltStep; d <= BoltRange; d += boltStep {
		c, err := g.CellVector(origin.Add(dir.Scale(d)))
		if err != nil {
			return BoltHit{}, false
		}
		if c == start {
			continue
		}
		cell := g.At(c.X, c.Y)
		switch cell.Type {
		case enums.ObjectNone, enums.ObjectNPCIntent:
			continue
		case enums.ObjectWall:
			return BoltHit{Cell: c, ID: cell.ID, Type: cell.Type}, false
		}
		logger.Log.WithFields(logrus.Fields{
			"component": "physics_system",
			"origin":    origin,
			"cell":      c,
			"object_id": cell.ID,
			"type":      cell.Type,
		}).Debug("Bolt hit")
		return BoltHit{Cell: c, ID: cell.ID, Type: cell.Type}, true
	}
	return BoltHit{}, false
}

func losLog(from, to types.VectorInt) *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"component": "physics_system",
		"function":  "HasLineOfSight",
		"start_pos": from,
		"end_pos":   to,
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}
