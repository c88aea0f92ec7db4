package domain

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

const (
	PlayerMaxHealth byte    = 100
	PlayerRadius    float32 = 0.5
	PlayerSpeed     float32 = 4.0

	MaxBagSlots     = 5
	MaxBagSlotItems = 5

	shootCooldown    float32 = 0.3
	activateCooldown float32 = 0.5

	// HealthPackAmount - сколько лечит аптечка из сумки.
	HealthPackAmount byte = 50
)

// Player - общая часть игрока для сервера и клиента.
// Серверная копия меняется только симуляцией, клиентская - предсказанием.
type Player struct {
	id   byte
	Name string

	Position types.WorldVector
	Rotation float32

	health byte
	score  uint32
	cash   uint32
	active bool
	bag    []api.BagSlot

	shootTimer    types.GameTimer
	activateTimer types.GameTimer
}

func NewPlayer(id byte, name string) *Player {
	return &Player{
		id:            id,
		Name:          name,
		health:        PlayerMaxHealth,
		shootTimer:    types.NewGameTimer(shootCooldown),
		activateTimer: types.NewGameTimer(activateCooldown),
	}
}

func (p *Player) ID() byte       { return p.id }
func (p *Player) Health() byte   { return p.health }
func (p *Player) Score() uint32  { return p.score }
func (p *Player) Cash() uint32   { return p.cash }
func (p *Player) IsActive() bool { return p.active }
func (p *Player) IsAlive() bool  { return p.health > 0 }

// Bag возвращает копию сумки.
func (p *Player) Bag() []api.BagSlot { return append([]api.BagSlot(nil), p.bag...) }

func (p *Player) IsBagFull() bool { return len(p.bag) >= MaxBagSlots }

// Spawn ставит игрока в точку и активирует его.
func (p *Player) Spawn(pos types.WorldVector) {
	p.Position = pos
	p.active = true
}

func (p *Player) SetActive(active bool) { p.active = active }

func (p *Player) AddScore(points uint32) { p.score += points }
func (p *Player) AddCash()               { p.cash++ }

// SubtractCash списывает сумму, если её хватает.
func (p *Player) SubtractCash(amount uint32) bool {
	if amount > p.cash {
		return false
	}
	p.cash -= amount
	return true
}

// AddHealth лечит, не превышая PlayerMaxHealth.
func (p *Player) AddHealth(amount byte) {
	if int(p.health)+int(amount) > int(PlayerMaxHealth) {
		p.health = PlayerMaxHealth
		return
	}
	p.health += amount
}

// SubtractHealth наносит урон, здоровье не уходит ниже нуля.
func (p *Player) SubtractHealth(amount byte) {
	if amount > p.health {
		p.health = 0
		return
	}
	p.health -= amount
}

// SetHealth - только для применения авторитетного состояния на клиенте.
func (p *Player) SetHealth(h byte) {
	if h <= PlayerMaxHealth {
		p.health = h
	}
}

// AddBagItem кладёт предмет в стопку того же типа или в новый слот.
func (p *Player) AddBagItem(item enums.PlayerBagItem) bool {
	for i := range p.bag {
		if p.bag[i].Type != item {
			continue
		}
		if p.bag[i].Count >= MaxBagSlotItems {
			return false
		}
		p.bag[i].Count++
		return true
	}
	if len(p.bag) >= MaxBagSlots {
		return false
	}
	p.bag = append(p.bag, api.BagSlot{Type: item, Count: 1})
	return true
}

// CanAddBagItem - поместится ли ещё один такой предмет.
func (p *Player) CanAddBagItem(item enums.PlayerBagItem) bool {
	for _, s := range p.bag {
		if s.Type == item {
			return s.Count < MaxBagSlotItems
		}
	}
	return len(p.bag) < MaxBagSlots
}

// RemoveBagItem убирает один предмет данного типа.
func (p *Player) RemoveBagItem(item enums.PlayerBagItem) bool {
	for i := range p.bag {
		if p.bag[i].Type == item {
			p.takeFromSlot(i)
			return true
		}
	}
	return false
}

func (p *Player) HasBagItem(item enums.PlayerBagItem) bool {
	for _, s := range p.bag {
		if s.Type == item {
			return true
		}
	}
	return false
}

func (p *Player) takeFromSlot(i int) {
	p.bag[i].Count--
	if p.bag[i].Count <= 0 {
		p.bag = append(p.bag[:i], p.bag[i+1:]...)
	}
}

// SetBag - замена сумки авторитетной копией.
func (p *Player) SetBag(bag []api.BagSlot) { p.bag = append(p.bag[:0], bag...) }

// ClearBag опустошает сумку и возвращает прежнее содержимое.
func (p *Player) ClearBag() []api.BagSlot {
	old := p.bag
	p.bag = nil
	return old
}

// ApplyPickup: монета увеличивает счёт денег, остальное идёт в сумку.
func (p *Player) ApplyPickup(kind enums.ObjectType) bool {
	if kind == enums.ObjectCash {
		p.AddCash()
		return true
	}
	item := enums.BagItemFor(kind)
	if item == enums.BagLint {
		return false
	}
	return p.AddBagItem(item)
}

// ApplyUseBagItem использует или выбрасывает предмет из слота.
// Для неверного слота возвращает BagLint.
func (p *Player) ApplyUseBagItem(slot int, drop bool) enums.PlayerBagItem {
	if slot < 0 || slot >= len(p.bag) {
		return enums.BagLint
	}
	item := p.bag[slot].Type
	if !drop && item == enums.BagHealth {
		p.AddHealth(HealthPackAmount)
	}
	p.takeFromSlot(slot)
	return item
}

// NewLevelReset: на новом уровне игрок снова активен, ключи сгорают.
func (p *Player) NewLevelReset() {
	p.active = true
	kept := p.bag[:0]
	for _, s := range p.bag {
		if !s.Type.IsKey() {
			kept = append(kept, s)
		}
	}
	p.bag = kept
}

// ApplyShoot - можно ли стрелять (и сразу перезаряжает).
func (p *Player) ApplyShoot() bool {
	if !p.shootTimer.IsTimeElapsed() {
		return false
	}
	p.shootTimer.Reset()
	return true
}

// TryActivate - проверка перезарядки взаимодействия.
func (p *Player) TryActivate() bool {
	if !p.activateTimer.IsTimeElapsed() {
		return false
	}
	p.activateTimer.Reset()
	return true
}

// Update продвигает таймеры перезарядки.
func (p *Player) Update(delta float32) {
	p.shootTimer.UpdateAsCooldown(delta)
	p.activateTimer.UpdateAsCooldown(delta)
}

// LookVector - направление взгляда.
func (p *Player) LookVector() types.WorldVector { return types.Heading(p.Rotation) }

// MoveVector переводит нажатые клавиши в нормированное направление.
// Вверх - минус y, как на клиенте.
func MoveVector(keys enums.MovementKeys) types.WorldVector {
	var v types.WorldVector
	if keys.Has(enums.KeyLeft) {
		v.X--
	}
	if keys.Has(enums.KeyRight) {
		v.X++
	}
	if keys.Has(enums.KeyUp) {
		v.Y--
	}
	if keys.Has(enums.KeyDown) {
		v.Y++
	}
	return v.Normalize()
}

// State собирает сетевое состояние игрока. tick - номер последней
// обработанной команды.
func (p *Player) State(tick uint16) api.PlayerState {
	return api.PlayerState{
		ID:       p.id,
		Position: p.Position,
		Rotation: p.Rotation,
		Health:   p.health,
		Score:    p.score,
		Cash:     p.cash,
		Tick:     tick,
		Active:   p.active,
		Bag:      p.Bag(),
	}
}

// ApplyState переносит авторитетные поля снимка на клиентскую копию.
// Позиция и поворот не трогаются: ими управляет предсказание.
func (p *Player) ApplyState(s api.PlayerState) {
	p.health = min(s.Health, PlayerMaxHealth)
	p.score = s.Score
	p.cash = s.Cash
	p.active = s.Active
	p.bag = append(p.bag[:0], s.Bag...)
}
