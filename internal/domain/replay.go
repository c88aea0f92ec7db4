package domain

// ReplayEvent - что произошло с пиром в записанном кадре.
type ReplayEvent uint8

const (
	ReplayConnected ReplayEvent = iota
	ReplayDisconnected
	ReplayPacket
)

// ReplayRecord - одно входящее событие транспорта.
// Tick - сколько тиков симуляции прошло к моменту обработки.
type ReplayRecord struct {
	Tick    uint32
	Peer    byte
	Event   ReplayEvent
	Channel uint8
	Frame   []byte // только для ReplayPacket
}

// ReplaySession - полная запись партии
type ReplaySession struct {
	ID        string
	Seed      uint64 // зерно генератора симуляции
	Timestamp int64
	StartMap  uint16
	Records   []ReplayRecord
}

// Ticks - номер последнего записанного тика.
func (s *ReplaySession) Ticks() uint32 {
	if len(s.Records) == 0 {
		return 0
	}
	return s.Records[len(s.Records)-1].Tick
}
