package systems

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
)

// collisionMargin чуть меньше радиуса игрока, чтобы он проходил в
// коридор шириной в одну клетку.
const collisionMargin = domain.PlayerRadius * 0.9

// blocksPlayer - в такие клетки игрок зайти не может.
func blocksPlayer(t enums.ObjectType) bool {
	switch t {
	case enums.ObjectWall, enums.ObjectBarricade, enums.ObjectBugNest, enums.ObjectNPCIntent:
		return true
	}
	return t.IsDoor() || t.IsNPC()
}

// IsWalkable проверяет, что квадрат вокруг pos не задевает препятствий.
// Всё, что вне карты, считается стеной.
func IsWalkable(g *domain.Grid, pos types.WorldVector) bool {
	for _, corner := range [4]types.WorldVector{
		{X: pos.X - collisionMargin, Y: pos.Y - collisionMargin},
		{X: pos.X + collisionMargin, Y: pos.Y - collisionMargin},
		{X: pos.X - collisionMargin, Y: pos.Y + collisionMargin},
		{X: pos.X + collisionMargin, Y: pos.Y + collisionMargin},
	} {
		cell, err := g.CellAt(corner)
		if err != nil || blocksPlayer(cell.Type) {
			return false
		}
	}
	return true
}

// IntegrateMovement двигает игрока по нажатым клавишам на speed*delta.
// Оси проверяются по отдельности: упёршись в стену, игрок скользит вдоль неё.
func IntegrateMovement(g *domain.Grid, pos types.WorldVector, keys enums.MovementKeys, speed, delta float32) types.WorldVector {
	step := domain.MoveVector(keys).Scale(speed * delta)
	if step.IsZero() {
		return pos
	}
	if g == nil {
		return pos.Add(step)
	}

	next := pos
	if step.X != 0 {
		if try := types.Vec(next.X+step.X, next.Y); IsWalkable(g, try) {
			next = try
		}
	}
	if step.Y != 0 {
		if try := types.Vec(next.X, next.Y+step.Y); IsWalkable(g, try) {
			next = try
		}
	}
	return next
}
