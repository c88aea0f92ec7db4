package systems

import (
	"errors"
	"fmt"

	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
)

var (
	ErrBagFull    = errors.New("bag is full")
	ErrNotHolder  = errors.New("chest is locked by another player")
	ErrEmptySlot  = errors.New("chest slot is empty")
	ErrChestEmpty = errors.New("chest is empty")
)

// --- TAKE ---

// TakeFromChest перекладывает предмет из слота сундука в сумку игрока.
// Брать может только тот, кто держит замок сундука.
// Если сундук опустел, он сам освобождается (emptied=true).
func TakeFromChest(chest *domain.Chest, p *domain.Player, slot int) (item enums.PlayerBagItem, emptied bool, err error) {
	if !chest.IsLocked() || !chest.IsHeldBy(p) {
		return enums.BagLint, false, ErrNotHolder
	}
	items := chest.Items()
	if len(items) == 0 {
		return enums.BagLint, false, ErrChestEmpty
	}
	if slot < 0 || slot >= len(items) {
		return enums.BagLint, false, fmt.Errorf("slot %d of %d: %w", slot, len(items), ErrEmptySlot)
	}
	if !p.CanAddBagItem(items[slot].Type) {
		return enums.BagLint, false, ErrBagFull
	}

	item = chest.RemoveItem(slot)
	if item == enums.BagLint {
		return enums.BagLint, false, ErrEmptySlot
	}
	p.AddBagItem(item)
	return item, len(chest.Items()) == 0, nil
}
