package engine

import "time"

// maxCatchUpTicks - сколько тиков догоняем за один кадр после паузы.
// Остаток отбрасывается, чтобы не уйти в спираль.
const maxCatchUpTicks = 5

// LogicTimer - фиксированный шаг поверх неровного реального времени.
// Накопленное время расходуется целыми тиками, остаток переходит
// на следующий кадр.
type LogicTimer struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
	started     bool

	action func()
}

func NewLogicTimer(tickRate int, action func()) *LogicTimer {
	if tickRate <= 0 {
		tickRate = 30
	}
	return &LogicTimer{
		step:   time.Second / time.Duration(tickRate),
		action: action,
	}
}

func (t *LogicTimer) Step() time.Duration { return t.step }

// Start запоминает точку отсчёта.
func (t *LogicTimer) Start(now time.Time) {
	t.last = now
	t.accumulator = 0
	t.started = true
}

// Update выполняет столько тиков, сколько накопилось к моменту now.
// Возвращает число выполненных тиков.
func (t *LogicTimer) Update(now time.Time) int {
	if !t.started {
		t.Start(now)
		return 0
	}
	elapsed := now.Sub(t.last)
	t.last = now
	if elapsed < 0 {
		elapsed = 0
	}
	t.accumulator += elapsed

	ticks := 0
	for t.accumulator >= t.step {
		t.accumulator -= t.step
		t.action()
		ticks++
		if ticks == maxCatchUpTicks {
			t.accumulator = 0
			break
		}
	}
	return ticks
}

// LerpAlpha - доля следующего тика, уже прошедшая в реальном времени.
func (t *LogicTimer) LerpAlpha() float32 {
	return float32(t.accumulator) / float32(t.step)
}
