package network

import (
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// Channel - способ доставки пакета. Websocket сам по себе надёжен и
// упорядочен, поэтому канал здесь - только политика очереди отправки.
type Channel byte

const (
	// ReliableOrdered - вход/выход, смена карты, инвентарь, замки.
	ReliableOrdered Channel = iota
	// Unreliable - частые снимки состояния, потеря допустима.
	Unreliable
	// ReliableUnordered - выстрелы: порядок не важен, доставка обязательна.
	ReliableUnordered
)

func (c Channel) String() string {
	switch c {
	case ReliableOrdered:
		return "RELIABLE_ORDERED"
	case Unreliable:
		return "UNRELIABLE"
	case ReliableUnordered:
		return "RELIABLE_UNORDERED"
	}
	return "UNKNOWN"
}

// Reliable - пакет нельзя выбросить при переполнении очереди.
func (c Channel) Reliable() bool { return c != Unreliable }

// ChannelFor возвращает канал, которым пакет этого вида ходит по протоколу.
// Пакеты объектов несут только изменения, поэтому они надёжные.
func ChannelFor(p api.Packet) Channel { return ChannelForType(p.PacketType()) }

// ChannelForType - то же по заголовку кадра, без разбора тела.
func ChannelForType(t api.PacketType) Channel {
	switch t {
	case api.PacketMovement, api.PacketServerState:
		return Unreliable
	case api.PacketShoot:
		return ReliableUnordered
	}
	return ReliableOrdered
}

// Sender - то, чем симуляция отправляет пакеты. Реализуется Hub,
// в тестах подменяется записывающей заглушкой.
type Sender interface {
	SendToAll(p api.Packet, ch Channel)
	SendToPeer(peer byte, p api.Packet, ch Channel) error
}
