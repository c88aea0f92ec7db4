package engine

import (
	"os"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/dungeon"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

func TestMain(m *testing.M) {
	// Глобальный логгер нужен до запуска тестов
	logger.Init()

	os.Exit(m.Run())
}

// sent - один исходящий пакет. broadcast - ушёл всем.
type sent struct {
	peer      byte
	broadcast bool
	packet    api.Packet
	channel   network.Channel
}

// recordingSender запоминает всё, что отправила симуляция.
type recordingSender struct {
	out []sent
}

func (r *recordingSender) SendToAll(p api.Packet, ch network.Channel) {
	r.out = append(r.out, sent{broadcast: true, packet: p, channel: ch})
}

func (r *recordingSender) SendToPeer(peer byte, p api.Packet, ch network.Channel) error {
	r.out = append(r.out, sent{peer: peer, packet: p, channel: ch})
	return nil
}

func (r *recordingSender) reset() { r.out = r.out[:0] }

// to - пакеты, которые дошли бы до пира (личные и общие).
func (r *recordingSender) to(peer byte) []api.Packet {
	var out []api.Packet
	for _, s := range r.out {
		if s.broadcast || s.peer == peer {
			out = append(out, s.packet)
		}
	}
	return out
}

// packetsOf - все отправленные пакеты типа T.
func packetsOf[T api.Packet](r *recordingSender) []T {
	var out []T
	for _, s := range r.out {
		if p, ok := s.packet.(T); ok {
			out = append(out, p)
		}
	}
	return out
}

func firstOf[T api.Packet](packets []api.Packet) (T, bool) {
	for _, p := range packets {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

func testConfig() Config {
	cfg := NewConfig()
	cfg.Simulation.Seed = 7
	cfg.Storage = StorageConfig{}
	return cfg
}

func newTestSim(t *testing.T, mutate func(*Config)) (*Simulation, *recordingSender) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	levels, err := dungeon.Default()
	if err != nil {
		t.Fatalf("dungeon.Default: %v", err)
	}
	out := &recordingSender{}
	sim, err := NewSimulation(cfg, levels, out)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return sim, out
}

func send(sim *Simulation, peer byte, p api.Packet) {
	sim.HandleFrame(peer, api.Marshal(p))
}

func join(t *testing.T, sim *Simulation, peer byte, name string) *ServerPlayer {
	t.Helper()
	send(sim, peer, &api.JoinPacket{UserName: name})
	p := sim.Players().GetByID(peer)
	if p == nil {
		t.Fatalf("peer %d did not join", peer)
	}
	return p
}

func runTicks(sim *Simulation, n int) {
	for i := 0; i < n; i++ {
		sim.LogicUpdate()
	}
}

// objectOfType - id первого объекта нужного типа на текущей карте.
func objectOfType(t *testing.T, sim *Simulation, kind enums.ObjectType) int32 {
	t.Helper()
	for _, s := range sim.Objects().States() {
		if s.Type == kind {
			return s.ID
		}
	}
	t.Fatalf("no %s on map %d", kind, sim.Map())
	return -1
}

// cooldownTicks - с запасом больше перезарядки взаимодействия.
const cooldownTicks = 20
