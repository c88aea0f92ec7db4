package network

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

var (
	ErrHubFull      = errors.New("no free peer ids")
	ErrPeerNotFound = errors.New("peer not found")
	ErrRateLimited  = errors.New("inbound rate limit exceeded")
	ErrInboxFull    = errors.New("inbox is full")
	ErrSendOverflow = errors.New("send queue overflow")
)

// HubConfig - ограничения транспорта.
type HubConfig struct {
	InboundRate  float64 `toml:"inbound_rate"`  // пакетов в секунду на пира
	InboundBurst int     `toml:"inbound_burst"` // запас токенов
	SendQueue    int     `toml:"send_queue"`    // кадров в очереди отправки
	InboxSize    int     `toml:"inbox_size"`    // пакетов, ждущих симуляцию
	MaxPeers     int     `toml:"max_peers"`
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		InboundRate:  120,
		InboundBurst: 60,
		SendQueue:    256,
		InboxSize:    4096,
		MaxPeers:     32,
	}
}

// EventKind - что случилось с пиром.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventPacket
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventPacket:
		return "PACKET"
	}
	return "UNKNOWN"
}

// Event - запись во входящей очереди. Frame заполнен только для EventPacket.
type Event struct {
	Kind  EventKind
	Peer  byte
	Frame []byte
}

// Peer - одно соединение. Исходящие кадры читает транспорт из Outbound().
type Peer struct {
	id      byte
	session string

	mu     sync.Mutex
	send   chan []byte
	closed bool

	limiter *rate.Limiter
}

func (p *Peer) ID() byte        { return p.id }
func (p *Peer) Session() string { return p.session }

// Outbound - очередь кадров на отправку. Закрывается, когда пир удалён.
func (p *Peer) Outbound() <-chan []byte { return p.send }

// offer кладёт кадр без ожидания. false - очередь полна или пир закрыт.
func (p *Peer) offer(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

func (p *Peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

// Stats - счётчики транспорта для /debug.
type Stats struct {
	Peers             int    `json:"peers"`
	Received          uint64 `json:"received"`
	RateLimited       uint64 `json:"rateLimited"`
	InboxDropped      uint64 `json:"inboxDropped"`
	Sent              uint64 `json:"sent"`
	UnreliableDropped uint64 `json:"unreliableDropped"`
	PeersDropped      uint64 `json:"peersDropped"`
}

// Hub - реестр пиров и граница между сетевыми горутинами и симуляцией.
// Транспорт вызывает Register/Deliver/Unregister из своих горутин,
// симуляция раз в кадр забирает события через Poll и отправляет пакеты
// через SendToAll/SendToPeer.
type Hub struct {
	cfg HubConfig

	mu    sync.RWMutex
	peers map[byte]*Peer

	inboxMu sync.Mutex
	inbox   []Event
	queued  int // пакетов в inbox

	received          atomic.Uint64
	rateLimited       atomic.Uint64
	inboxDropped      atomic.Uint64
	sent              atomic.Uint64
	unreliableDropped atomic.Uint64
	peersDropped      atomic.Uint64

	log *logrus.Entry
}

func NewHub(cfg HubConfig) *Hub {
	def := DefaultHubConfig()
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = def.InboundRate
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = def.InboundBurst
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = def.SendQueue
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.MaxPeers <= 0 || cfg.MaxPeers > 255 {
		cfg.MaxPeers = def.MaxPeers
	}
	return &Hub{
		cfg:   cfg,
		peers: make(map[byte]*Peer),
		log:   logger.WithComponent("hub"),
	}
}

// Register заводит пира с наименьшим свободным id начиная с 1.
// id 0 не выдаётся: на выделенном сервере нет хоста.
func (h *Hub) Register(session string) (*Peer, error) {
	h.mu.Lock()
	if len(h.peers) >= h.cfg.MaxPeers {
		h.mu.Unlock()
		return nil, fmt.Errorf("register %s: %d peers: %w", session, h.cfg.MaxPeers, ErrHubFull)
	}
	var id byte
	for candidate := 1; candidate <= 255; candidate++ {
		if _, taken := h.peers[byte(candidate)]; !taken {
			id = byte(candidate)
			break
		}
	}
	if id == 0 {
		h.mu.Unlock()
		return nil, fmt.Errorf("register %s: %w", session, ErrHubFull)
	}
	p := &Peer{
		id:      id,
		session: session,
		send:    make(chan []byte, h.cfg.SendQueue),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.InboundRate), h.cfg.InboundBurst),
	}
	h.peers[id] = p
	h.mu.Unlock()

	h.push(Event{Kind: EventConnected, Peer: id})
	h.log.WithFields(logrus.Fields{"peer_id": id, "session": session}).Info("Peer connected")
	return p, nil
}

// Unregister удаляет пира и закрывает его очередь. Повторный вызов безопасен.
func (h *Hub) Unregister(id byte) {
	h.mu.Lock()
	p, ok := h.peers[id]
	if ok {
		delete(h.peers, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	p.close()
	h.push(Event{Kind: EventDisconnected, Peer: id})
	h.log.WithFields(logrus.Fields{"peer_id": id, "session": p.session}).Info("Peer disconnected")
}

// Deliver принимает входящий кадр от транспорта. Кадры сверх лимита
// пира отбрасываются.
func (h *Hub) Deliver(id byte, frame []byte) error {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("deliver to %d: %w", id, ErrPeerNotFound)
	}
	if !p.limiter.Allow() {
		h.rateLimited.Add(1)
		return fmt.Errorf("peer %d: %w", id, ErrRateLimited)
	}

	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()
	if h.queued >= h.cfg.InboxSize {
		h.inboxDropped.Add(1)
		return fmt.Errorf("peer %d: %w", id, ErrInboxFull)
	}
	h.inbox = append(h.inbox, Event{Kind: EventPacket, Peer: id, Frame: frame})
	h.queued++
	h.received.Add(1)
	return nil
}

// push добавляет служебное событие. Они не ограничиваются размером очереди.
func (h *Hub) push(e Event) {
	h.inboxMu.Lock()
	h.inbox = append(h.inbox, e)
	h.inboxMu.Unlock()
}

// Poll забирает всё накопленное в порядке поступления.
func (h *Hub) Poll() []Event {
	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()
	events := h.inbox
	h.inbox = nil
	h.queued = 0
	return events
}

// SendToPeer отправляет пакет одному пиру.
func (h *Hub) SendToPeer(id byte, p api.Packet, ch Channel) error {
	h.mu.RLock()
	peer, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send %s to %d: %w", p.PacketType(), id, ErrPeerNotFound)
	}
	if !h.enqueue(peer, api.Marshal(p), ch) {
		h.Unregister(id)
		return fmt.Errorf("send %s to %d: %w", p.PacketType(), id, ErrSendOverflow)
	}
	return nil
}

// SendToAll кодирует пакет один раз и раздаёт всем пирам.
func (h *Hub) SendToAll(p api.Packet, ch Channel) {
	frame := api.Marshal(p)

	var overflowed []byte
	h.mu.RLock()
	for id, peer := range h.peers {
		if !h.enqueue(peer, frame, ch) {
			overflowed = append(overflowed, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range overflowed {
		h.Unregister(id)
	}
}

// enqueue применяет политику канала. false - надёжный кадр не влез,
// пира нужно отключить.
func (h *Hub) enqueue(p *Peer, frame []byte, ch Channel) bool {
	if p.offer(frame) {
		h.sent.Add(1)
		return true
	}
	if !ch.Reliable() {
		h.unreliableDropped.Add(1)
		return true
	}
	h.peersDropped.Add(1)
	h.log.WithFields(logrus.Fields{
		"peer_id": p.id,
		"channel": ch.String(),
	}).Warn("Send queue overflow on reliable channel, dropping peer")
	return false
}

func (h *Hub) HasPeer(id byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.peers[id]
	return ok
}

func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) Stats() Stats {
	return Stats{
		Peers:             h.PeerCount(),
		Received:          h.received.Load(),
		RateLimited:       h.rateLimited.Load(),
		InboxDropped:      h.inboxDropped.Load(),
		Sent:              h.sent.Load(),
		UnreliableDropped: h.unreliableDropped.Load(),
		PeersDropped:      h.peersDropped.Load(),
	}
}
