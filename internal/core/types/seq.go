package types

const (
	// MaxGameSequence is the shared wraparound space of ticks and command ids.
	MaxGameSequence  = 1024
	halfGameSequence = MaxGameSequence / 2

	// LogicFPS is the fixed simulation rate.
	LogicFPS = 30
	// FixedDelta is the duration of one tick in seconds.
	FixedDelta float32 = 1.0 / LogicFPS
)

// SeqDiff compares two sequence numbers modulo MaxGameSequence.
// A positive result means a is newer than b.
func SeqDiff(a, b int) int {
	return ((a-b+halfGameSequence*3)%MaxGameSequence+MaxGameSequence)%MaxGameSequence - halfGameSequence
}

// NextSeq advances a sequence number with wraparound.
func NextSeq(a uint16) uint16 {
	return uint16((int(a) + 1) % MaxGameSequence)
}
