package enums

type NPCStance uint8

const (
	StanceAggressive NPCStance = iota
	StanceNeutral
	StanceAlly
)

// MovementKeys is the input bitmask carried by every player command.
type MovementKeys uint8

const (
	KeyLeft  MovementKeys = 1 << 1
	KeyRight MovementKeys = 1 << 2
	KeyUp    MovementKeys = 1 << 3
	KeyDown  MovementKeys = 1 << 4
	KeyFire  MovementKeys = 1 << 5
)

func (k MovementKeys) Has(flag MovementKeys) bool { return k&flag != 0 }
