package systems

import (
	"errors"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
)

func TestTakeFromChest(t *testing.T) {
	chest := domain.NewChest(42, types.Vec(1, 1))
	chest.AddItem(enums.BagBomb, 1)
	chest.AddItem(enums.BagKeyBlue, 1)

	owner := domain.NewPlayer(0, "owner")
	other := domain.NewPlayer(1, "other")

	if !chest.Lock(owner) {
		t.Fatal("Lock failed")
	}
	if _, _, err := TakeFromChest(chest, other, 0); !errors.Is(err, ErrNotHolder) {
		t.Errorf("other player err = %v, want ErrNotHolder", err)
	}
	if _, _, err := TakeFromChest(chest, owner, 7); !errors.Is(err, ErrEmptySlot) {
		t.Errorf("bad slot err = %v, want ErrEmptySlot", err)
	}

	item, emptied, err := TakeFromChest(chest, owner, 0)
	if err != nil || item != enums.BagBomb || emptied {
		t.Fatalf("take 0 = %v, %v, %v", item, emptied, err)
	}
	item, emptied, err = TakeFromChest(chest, owner, 0)
	if err != nil || item != enums.BagKeyBlue || !emptied {
		t.Fatalf("take last = %v, %v, %v", item, emptied, err)
	}
	if chest.IsLocked() || chest.IsOpen() {
		t.Error("empty chest should release itself")
	}
	if !owner.HasBagItem(enums.BagBomb) || !owner.HasBagItem(enums.BagKeyBlue) {
		t.Errorf("bag = %v", owner.Bag())
	}
}

func TestTakeFromChest_BagFull(t *testing.T) {
	chest := domain.NewChest(42, types.Vec(1, 1))
	chest.AddItem(enums.BagBomb, 1)

	p := domain.NewPlayer(0, "p")
	for range domain.MaxBagSlotItems {
		p.AddBagItem(enums.BagBomb)
	}
	chest.Lock(p)

	if _, _, err := TakeFromChest(chest, p, 0); !errors.Is(err, ErrBagFull) {
		t.Errorf("err = %v, want ErrBagFull", err)
	}
	if len(chest.Items()) != 1 {
		t.Error("item must stay in the chest when the bag is full")
	}
}
