package enums

// PlayerBagItem shares its first values with ObjectType so an item can be
// dropped back into the world by a plain conversion.
type PlayerBagItem int32

const (
	BagLint PlayerBagItem = iota
	BagBomb
	BagHealth
	BagKeyRed
	BagKeyGreen
	BagKeyBlue
)

func (i PlayerBagItem) String() string {
	switch i {
	case BagBomb:
		return "BOMB"
	case BagHealth:
		return "HEALTH"
	case BagKeyRed:
		return "KEY_RED"
	case BagKeyGreen:
		return "KEY_GREEN"
	case BagKeyBlue:
		return "KEY_BLUE"
	}
	return "LINT"
}

func (i PlayerBagItem) IsKey() bool {
	return i == BagKeyRed || i == BagKeyGreen || i == BagKeyBlue
}

// ObjectType returns the world object an item turns into when dropped.
func (i PlayerBagItem) ObjectType() ObjectType { return ObjectType(i) }

// BagItemFor maps a pickup to its bag item; Lint means it does not go in the bag.
func BagItemFor(t ObjectType) PlayerBagItem {
	switch t {
	case ObjectBomb:
		return BagBomb
	case ObjectHealth:
		return BagHealth
	case ObjectKeyRed:
		return BagKeyRed
	case ObjectKeyGreen:
		return BagKeyGreen
	case ObjectKeyBlue:
		return BagKeyBlue
	}
	return BagLint
}
