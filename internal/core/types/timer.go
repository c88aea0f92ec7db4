package types

// GameTimer is a cooldown counter advanced by the fixed tick delta.
type GameTimer struct {
	max  float32
	time float32
}

func NewGameTimer(max float32) GameTimer {
	return GameTimer{max: max}
}

// UpdateAsCooldown accumulates delta until the timer elapses.
func (t *GameTimer) UpdateAsCooldown(delta float32) {
	t.time += delta
}

func (t *GameTimer) IsTimeElapsed() bool { return t.time >= t.max }

func (t *GameTimer) Reset() { t.time = 0 }

// Expire forces the timer into the elapsed state.
func (t *GameTimer) Expire() { t.time = t.max }

func (t *GameTimer) Max() float32 { return t.max }

func (t *GameTimer) SetMax(max float32) { t.max = max }

func (t *GameTimer) Elapsed() float32 { return t.time }
