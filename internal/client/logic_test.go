package client

import (
	"errors"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/engine"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/dungeon"
)

// recordingTransport запоминает всё, что клиент отправил серверу.
type recordingTransport struct {
	sent []api.Packet
	err  error
}

func (r *recordingTransport) Send(frame []byte) error {
	if r.err != nil {
		return r.err
	}
	p, err := api.Unmarshal(frame)
	if err != nil {
		return err
	}
	r.sent = append(r.sent, p)
	return nil
}

func lastSent[T api.Packet](r *recordingTransport) (T, bool) {
	for i := len(r.sent) - 1; i >= 0; i-- {
		if p, ok := r.sent[i].(T); ok {
			return p, true
		}
	}
	var zero T
	return zero, false
}

func testLevels(t *testing.T) *dungeon.LevelSet {
	t.Helper()
	levels, err := dungeon.Default()
	if err != nil {
		t.Fatalf("dungeon.Default: %v", err)
	}
	return levels
}

func newTestLogic(t *testing.T) (*Logic, *recordingTransport) {
	t.Helper()
	tr := &recordingTransport{}
	return NewLogic("ann", testLevels(t), tr), tr
}

func deliver(t *testing.T, l *Logic, p api.Packet) {
	t.Helper()
	if err := l.HandleFrame(api.Marshal(p)); err != nil {
		t.Fatalf("HandleFrame(%T): %v", p, err)
	}
}

func acceptAnn(t *testing.T, l *Logic) {
	t.Helper()
	deliver(t, l, &api.JoinAcceptPacket{ID: 1, ServerTick: 20, Player: 0, Map: 1})
}

func TestLogicJoin(t *testing.T) {
	l, tr := newTestLogic(t)
	if err := l.Join(); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if j, ok := lastSent[*api.JoinPacket](tr); !ok || j.UserName != "ann" {
		t.Fatalf("join packet = %+v", j)
	}

	// до JoinAccept ничего не шлётся
	if err := l.LogicUpdate(); err != nil || len(tr.sent) != 1 {
		t.Errorf("LogicUpdate before join: %v, sent %d", err, len(tr.sent))
	}
	err := l.HandleFrame(api.Marshal(&api.SpawnPacket{PlayerID: 1}))
	if !errors.Is(err, ErrNotJoined) {
		t.Errorf("spawn before join: %v", err)
	}

	acceptAnn(t, l)
	level, _ := testLevels(t).Get(1)
	if l.Player() == nil || l.Map() != 1 || l.LastServerTick() != 20 {
		t.Fatalf("after accept: player %v map %d tick %d", l.Player(), l.Map(), l.LastServerTick())
	}
	if want := dungeon.SpawnFor(level.Spawn, 0); l.Player().Position != want {
		t.Errorf("spawned at %v, want %v", l.Player().Position, want)
	}
	if l.Objects().Grid().Width() != level.Width {
		t.Error("grid not switched to the level")
	}
}

func TestLogicJoinRejectAndUnknownMap(t *testing.T) {
	l, _ := newTestLogic(t)
	deliver(t, l, &api.JoinRejectPacket{ID: 5, Reason: "server full"})
	if reason, ok := l.Rejected(); !ok || reason != "server full" {
		t.Errorf("Rejected() = %q, %v", reason, ok)
	}

	l2, _ := newTestLogic(t)
	err := l2.HandleFrame(api.Marshal(&api.JoinAcceptPacket{ID: 1, Map: 900}))
	if !errors.Is(err, ErrUnknownMap) {
		t.Errorf("unknown map error = %v", err)
	}
}

func TestLogicRemotePlayers(t *testing.T) {
	l, _ := newTestLogic(t)
	acceptAnn(t, l)

	bob := api.PlayerState{ID: 2, Position: types.Vec(9, 9), Health: 100, Active: true}
	deliver(t, l, &api.PlayerJoinedPacket{UserName: "bob", NewPlayer: true, Player: 1, InitialPlayerState: bob})
	deliver(t, l, &api.PlayerJoinedPacket{UserName: "cid", Player: 2, InitialPlayerState: api.PlayerState{ID: 3, Position: types.Vec(4, 4), Health: 60}})

	if l.RemoteCount() != 2 {
		t.Fatalf("RemoteCount = %d", l.RemoteCount())
	}
	// новый игрок встаёт на точку своего слота, старый остаётся где был
	level, _ := testLevels(t).Get(1)
	if got := l.Remote(2).Position; got != dungeon.SpawnFor(level.Spawn, 1) {
		t.Errorf("new remote at %v", got)
	}
	if got := l.Remote(3).Position; got != types.Vec(4, 4) {
		t.Errorf("existing remote at %v", got)
	}

	deliver(t, l, &api.SpawnPacket{PlayerID: 3, X: 1, Y: 2})
	if got := l.Remote(3).Position; got != types.Vec(1, 2) {
		t.Errorf("spawned remote at %v", got)
	}

	deliver(t, l, &api.PlayerLeftPacket{ID: 2})
	if l.Remote(2) != nil || l.RemoteCount() != 1 {
		t.Error("left player kept")
	}
}

func TestLogicServerStateOrdering(t *testing.T) {
	l, tr := newTestLogic(t)
	acceptAnn(t, l)
	for i := 0; i < 3; i++ {
		if err := l.LogicUpdate(); err != nil {
			t.Fatal(err)
		}
	}
	cmd, _ := lastSent[*api.PlayerInputPacket](tr)
	if cmd.ID != 3 || cmd.ServerTick != 20 {
		t.Fatalf("last command = %+v", cmd)
	}

	state := func(tick, last uint16, score uint32) *api.ServerStatePacket {
		return &api.ServerStatePacket{Tick: tick, LastProcessedCommand: last,
			PlayerStates: []api.PlayerState{{ID: 1, Health: 100, Score: score, Active: true}}}
	}
	deliver(t, l, state(22, 2, 5))
	if l.Player().Score() != 5 || l.Player().StoredCommands() != 1 {
		t.Errorf("score %d stored %d", l.Player().Score(), l.Player().StoredCommands())
	}

	// опоздавший снимок
	deliver(t, l, state(21, 3, 99))
	if l.Player().Score() != 5 || l.LastServerTick() != 22 {
		t.Errorf("late state applied: score %d tick %d", l.Player().Score(), l.LastServerTick())
	}

	// тик сервера переходит через ноль
	deliver(t, l, state(500, 3, 6))
	deliver(t, l, state(1000, 4, 6))
	deliver(t, l, state(3, 4, 7))
	if l.LastServerTick() != 3 {
		t.Errorf("tick after wrap = %d", l.LastServerTick())
	}
}

func TestLogicObjectsAndChest(t *testing.T) {
	l, tr := newTestLogic(t)
	acceptAnn(t, l)

	chest := api.ObjectState{ID: 42, Type: enums.ObjectChest, Position: types.Vec(5.5, 5.5), Active: true,
		Layer: enums.LayerContainer, Width: 1, Chest: &api.ChestData{Items: []api.BagSlot{{Type: enums.BagBomb, Count: 1}}}}
	cash := api.ObjectState{ID: 43, Type: enums.ObjectCash, Position: l.Player().Position, Active: true, Width: 1}
	deliver(t, l, &api.WorldObjectStatePacket{Objects: []api.ObjectState{chest, cash}})
	if l.Objects().Count() != 2 {
		t.Fatalf("objects = %d", l.Objects().Count())
	}
	if got := l.Objects().Get(42).State.Chest; got == nil || len(got.Items) != 1 {
		t.Errorf("chest contents = %+v", got)
	}

	// игрок стоит на деньгах - подбор уходит один раз
	if err := l.LogicUpdate(); err != nil {
		t.Fatal(err)
	}
	if p, ok := lastSent[*api.PickupObjectPacket](tr); !ok || p.ObjectID != 43 {
		t.Errorf("pickup = %+v", p)
	}
	n := len(tr.sent)
	if err := l.LogicUpdate(); err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != n+1 {
		t.Errorf("pickup repeated: %d packets", len(tr.sent)-n)
	}

	if err := l.TakeItem(0); !errors.Is(err, ErrNoChest) {
		t.Errorf("TakeItem without a chest: %v", err)
	}
	deliver(t, l, &api.ActivateObjectPacket{ObjectID: 42, Type: enums.ObjectChest})
	if id, ok := l.OpenChest(); !ok || id != 42 {
		t.Fatalf("OpenChest = %d, %v", id, ok)
	}
	if err := l.TakeItem(0); err != nil {
		t.Fatal(err)
	}
	if p, ok := lastSent[*api.TakeItemPacket](tr); !ok || p.ChestID != 42 || p.SlotIndex != 0 {
		t.Errorf("take item = %+v", p)
	}

	deliver(t, l, &api.ReleaseObjectLockPacket{ObjectID: 42})
	if _, ok := l.OpenChest(); ok {
		t.Error("chest still open after release")
	}

	deliver(t, l, &api.ActivateObjectPacket{ObjectID: 42, Type: enums.ObjectChest})
	if err := l.ReleaseChest(); err != nil {
		t.Fatal(err)
	}
	if p, ok := lastSent[*api.ReleaseObjectLockPacket](tr); !ok || p.ObjectID != 42 {
		t.Errorf("release = %+v", p)
	}

	deliver(t, l, &api.RemoveObjectPacket{ID: 43})
	if l.Objects().Get(43) != nil {
		t.Error("removed object kept")
	}
}

func TestLogicNewMapAndCorrection(t *testing.T) {
	l, tr := newTestLogic(t)
	acceptAnn(t, l)
	l.Player().AddBagItem(enums.BagKeyRed)
	l.Player().AddBagItem(enums.BagBomb)
	deliver(t, l, &api.WorldObjectStatePacket{Objects: []api.ObjectState{
		{ID: 42, Type: enums.ObjectCash, Position: types.Vec(2.5, 2.5), Active: true, Width: 1},
	}})

	custom := &api.MapPacket{IsCustom: true, Map: 7, SpawnPoint: types.Vec(2.5, 2.5), Width: 4, Height: 4,
		Cells: make([]enums.ObjectType, 16)}
	custom.Cells[0] = enums.ObjectWall
	deliver(t, l, custom)

	if l.Map() != 7 || l.Objects().Count() != 0 || l.Objects().Grid().Width() != 4 {
		t.Errorf("map %d objects %d", l.Map(), l.Objects().Count())
	}
	if l.Objects().Grid().TypeAt(0, 0) != enums.ObjectWall {
		t.Error("custom walls not rebuilt")
	}
	if l.Player().HasBagItem(enums.BagKeyRed) || !l.Player().HasBagItem(enums.BagBomb) {
		t.Error("keys must burn on a new level, other items stay")
	}
	if want := dungeon.SpawnFor(types.Vec(2.5, 2.5), 0); l.Player().Position != want {
		t.Errorf("spawned at %v, want %v", l.Player().Position, want)
	}

	deliver(t, l, &api.PlayerPositionCorrection{X: 0.5, Y: 0})
	start := l.Player().Position
	if err := l.LogicUpdate(); err != nil {
		t.Fatal(err)
	}
	cmd, _ := lastSent[*api.PlayerInputPacket](tr)
	if !cmd.CorrectionAccepted || cmd.Position != start.Add(types.Vec(0.5, 0)) {
		t.Errorf("cmd after correction = %+v", cmd)
	}
}

func TestLogicSendError(t *testing.T) {
	l, tr := newTestLogic(t)
	acceptAnn(t, l)
	tr.err = errors.New("closed")
	if err := l.LogicUpdate(); err == nil {
		t.Error("transport error lost")
	}
}

// loopback соединяет клиентов с настоящей симуляцией без сети.
type loopback struct {
	t       *testing.T
	sim     *engine.Simulation
	clients map[byte]*Logic
}

func (lb *loopback) deliver(c *Logic, p api.Packet) {
	if err := c.HandleFrame(api.Marshal(p)); err != nil {
		lb.t.Errorf("client %s: %v", p.PacketType(), err)
	}
}

func (lb *loopback) SendToAll(p api.Packet, _ network.Channel) {
	for _, c := range lb.clients {
		lb.deliver(c, p)
	}
}

func (lb *loopback) SendToPeer(peer byte, p api.Packet, _ network.Channel) error {
	if c, ok := lb.clients[peer]; ok {
		lb.deliver(c, p)
	}
	return nil
}

type peerTransport struct {
	peer byte
	lb   *loopback
}

func (p peerTransport) Send(frame []byte) error {
	p.lb.sim.HandleFrame(p.peer, frame)
	return nil
}

func newLoopback(t *testing.T) *loopback {
	t.Helper()
	cfg := engine.NewConfig()
	cfg.Simulation.Seed = 7
	cfg.Storage = engine.StorageConfig{}
	lb := &loopback{t: t, clients: make(map[byte]*Logic)}
	sim, err := engine.NewSimulation(cfg, testLevels(t), lb)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	lb.sim = sim
	return lb
}

func (lb *loopback) connect(peer byte, name string) *Logic {
	lb.t.Helper()
	c := NewLogic(name, testLevels(lb.t), peerTransport{peer: peer, lb: lb})
	lb.clients[peer] = c
	if err := c.Join(); err != nil {
		lb.t.Fatalf("Join: %v", err)
	}
	return c
}

func (lb *loopback) tick(n int) {
	for i := 0; i < n; i++ {
		for _, c := range lb.clients {
			if err := c.LogicUpdate(); err != nil {
				lb.t.Fatalf("LogicUpdate: %v", err)
			}
		}
		lb.sim.LogicUpdate()
	}
}

func TestClientFollowsSimulation(t *testing.T) {
	lb := newLoopback(t)
	ann := lb.connect(1, "ann")
	if ann.Player() == nil {
		t.Fatal("ann not accepted")
	}
	if got, want := ann.Objects().Count(), len(lb.sim.Objects().States()); got != want {
		t.Errorf("client objects = %d, server %d", got, want)
	}
	server := lb.sim.Players().GetByID(1)
	if ann.Player().Position != server.Position {
		t.Errorf("client spawn %v, server %v", ann.Player().Position, server.Position)
	}

	bob := lb.connect(2, "bob")
	if ann.RemoteCount() != 1 || bob.RemoteCount() != 1 {
		t.Fatalf("remotes: ann %d bob %d", ann.RemoteCount(), bob.RemoteCount())
	}

	ann.Player().SetInput(types.Vec(1, 0), 0, false)
	lb.tick(15)
	ann.Player().SetInput(types.Vec(0, 0), 0, false)
	lb.tick(30)

	// предсказание совпало с сервером
	pos := ann.Player().Position
	if !near(pos.X, server.Position.X) || !near(pos.Y, server.Position.Y) {
		t.Errorf("client at %v, server at %v", pos, server.Position)
	}
	if pos == lb.sim.Level().SpawnPoint(0) {
		t.Error("player did not move")
	}
	if n := ann.Player().StoredCommands(); n > lb.sim.Players().Count()*2 {
		t.Errorf("unacknowledged commands = %d", n)
	}

	// bob видит ann там же
	remote := bob.Remote(1)
	if remote == nil {
		t.Fatal("bob does not know ann")
	}
	if !near(remote.Position.X, server.Position.X) || !near(remote.Position.Y, server.Position.Y) {
		t.Errorf("bob sees ann at %v, server %v", remote.Position, server.Position)
	}

	delete(lb.clients, 2)
	lb.sim.OnPeerDisconnected(2)
	if ann.RemoteCount() != 0 {
		t.Error("PlayerLeft not applied")
	}
}
