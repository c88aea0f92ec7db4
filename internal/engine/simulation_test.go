package engine

import (
	"math"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestJoinSendsWelcome(t *testing.T) {
	sim, out := newTestSim(t, nil)

	ann := join(t, sim, 1, "ann")
	if want := sim.Level().SpawnPoint(0); ann.Position != want {
		t.Errorf("spawn = %v, want %v", ann.Position, want)
	}

	accept, ok := firstOf[*api.JoinAcceptPacket](out.to(1))
	if !ok || accept.ID != 1 || accept.Player != 0 || accept.Map != 0 {
		t.Fatalf("JoinAccept = %+v (found %v)", accept, ok)
	}
	if m, ok := firstOf[*api.MapPacket](out.to(1)); !ok || m.Map != 0 || m.IsCustom {
		t.Errorf("MapPacket = %+v (found %v)", m, ok)
	}
	dump, ok := firstOf[*api.WorldObjectStatePacket](out.to(1))
	if !ok || dump.Tick != 0 || len(dump.Objects) != sim.Objects().Count() {
		t.Errorf("object dump = %+v (found %v)", dump, ok)
	}

	out.reset()
	bob := join(t, sim, 2, "bob")
	if bob.Slot() != 1 {
		t.Errorf("second slot = %d", bob.Slot())
	}
	toAnn, ok := firstOf[*api.PlayerJoinedPacket](out.to(1))
	if !ok || !toAnn.NewPlayer || toAnn.UserName != "bob" {
		t.Errorf("old player got %+v", toAnn)
	}
	toBob, ok := firstOf[*api.PlayerJoinedPacket](out.to(2))
	if !ok || toBob.NewPlayer || toBob.UserName != "ann" {
		t.Errorf("newcomer got %+v", toBob)
	}
}

func TestJoinRejectedWhenFull(t *testing.T) {
	sim, out := newTestSim(t, func(c *Config) { c.Simulation.MaxPlayers = 1 })
	join(t, sim, 1, "ann")
	out.reset()

	send(sim, 2, &api.JoinPacket{UserName: "bob"})

	reject, ok := firstOf[*api.JoinRejectPacket](out.to(2))
	if !ok || reject.Reason != RejectServerFull {
		t.Fatalf("JoinReject = %+v (found %v)", reject, ok)
	}
	if sim.Players().Count() != 1 || sim.Players().GetByID(2) != nil {
		t.Error("rejected peer was added")
	}
}

func TestPacketsBeforeJoinIgnored(t *testing.T) {
	sim, out := newTestSim(t, nil)

	send(sim, 5, &api.PlayerInputPacket{ID: 1, Keys: enums.KeyRight})
	send(sim, 5, &api.PickupObjectPacket{ObjectID: 42})
	sim.HandleFrame(5, []byte{0xFF})

	if sim.Players().Count() != 0 || len(out.out) != 0 {
		t.Errorf("unjoined peer changed the world: players %d, sent %d", sim.Players().Count(), len(out.out))
	}
}

func TestRepeatedJoinIgnored(t *testing.T) {
	sim, out := newTestSim(t, nil)
	ann := join(t, sim, 1, "ann")
	ann.AddScore(30)
	ann.AddBagItem(enums.BagBomb)
	out.reset()

	send(sim, 1, &api.JoinPacket{UserName: "ann"})

	if sim.Players().Count() != 1 || sim.Players().GetByID(1) != ann {
		t.Fatal("repeated join replaced the player")
	}
	if ann.Score() != 30 || !ann.HasBagItem(enums.BagBomb) {
		t.Errorf("repeated join reset the player: score %d, bag %v", ann.Score(), ann.Bag())
	}
	if len(out.out) != 0 {
		t.Errorf("repeated join sent %d packets", len(out.out))
	}
}

// Игрок жмёт вправо: позиция растёт на speed*FixedDelta, ближайший
// снимок подтверждает команду.
func TestInputMovesPlayerAndIsAcknowledged(t *testing.T) {
	sim, out := newTestSim(t, nil)
	p := join(t, sim, 1, "ann")
	start := p.Position

	send(sim, 1, &api.PlayerInputPacket{ID: 1, Keys: enums.KeyRight})

	if want := start.X + 4.0*types.FixedDelta; !near(p.Position.X, want) || p.Position.Y != start.Y {
		t.Errorf("position = %v, want x %.4f", p.Position, want)
	}

	out.reset()
	runTicks(sim, 2)
	states := packetsOf[*api.ServerStatePacket](out)
	if len(states) == 0 {
		t.Fatal("no server state after a broadcast tick")
	}
	if states[0].LastProcessedCommand != 1 {
		t.Errorf("LastProcessedCommand = %d, want 1", states[0].LastProcessedCommand)
	}
	for _, s := range out.out {
		if _, ok := s.packet.(*api.ServerStatePacket); ok && s.channel != network.Unreliable {
			t.Errorf("server state sent on %s", s.channel)
		}
	}
}

func TestInputIsIdempotent(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	p := join(t, sim, 1, "ann")

	cmd := &api.PlayerInputPacket{ID: 1, Keys: enums.KeyDown}
	send(sim, 1, cmd)
	once := p.Position
	send(sim, 1, cmd)
	if p.Position != once {
		t.Errorf("duplicate command moved the player: %v -> %v", once, p.Position)
	}

	// старая команда после новой тоже ничего не меняет
	send(sim, 1, &api.PlayerInputPacket{ID: 3, Keys: enums.KeyDown})
	moved := p.Position
	send(sim, 1, &api.PlayerInputPacket{ID: 2, Keys: enums.KeyUp})
	if p.Position != moved || p.LastProcessedCommand() != 3 {
		t.Errorf("stale command applied: pos %v last %d", p.Position, p.LastProcessedCommand())
	}
}

// Оба игрока дошли до выхода: уровень меняется, все объекты новой
// карты размещены, итог карты уходит слушателю.
func TestAllPlayersAtExitAdvanceLevel(t *testing.T) {
	sim, out := newTestSim(t, nil)
	var results []LevelResult
	sim.SetLevelListener(func(r LevelResult) { results = append(results, r) })

	ann := join(t, sim, 1, "ann")
	bob := join(t, sim, 2, "bob")
	runTicks(sim, cooldownTicks)

	exit := objectOfType(t, sim, enums.ObjectExitPoint)
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: exit, Type: enums.ObjectExitPoint})
	if ann.IsActive() {
		t.Fatal("player still active after reaching the exit")
	}
	runTicks(sim, 2)
	if sim.Map() != 0 {
		t.Fatal("level advanced with one player still playing")
	}

	send(sim, 2, &api.ActivateObjectPacket{ObjectID: exit, Type: enums.ObjectExitPoint})
	if bob.IsActive() || sim.Players().GetInactivePlayers() != 2 {
		t.Fatal("both players should be inactive")
	}
	out.reset()
	runTicks(sim, 2)

	if sim.Map() != 1 {
		t.Fatalf("map = %d, want 1", sim.Map())
	}
	if sim.PlacementFailures() != 0 {
		t.Errorf("placement failures = %d", sim.PlacementFailures())
	}
	if !ann.IsActive() || !bob.IsActive() {
		t.Error("players not reactivated on the new map")
	}
	if ann.Position != sim.Level().SpawnPoint(ann.Slot()) {
		t.Errorf("ann at %v, want spawn", ann.Position)
	}
	if m, ok := firstOf[*api.MapPacket](out.to(2)); !ok || m.Map != 1 {
		t.Errorf("new map packet = %+v", m)
	}
	if len(packetsOf[*api.SpawnPacket](out)) != 2 {
		t.Error("expected a spawn packet per player")
	}

	if len(results) != 1 || results[0].Map != 0 || len(results[0].Players) != 2 {
		t.Fatalf("level results = %+v", results)
	}
}

func TestJumpToMapSendsMapToEveryPlayer(t *testing.T) {
	sim, out := newTestSim(t, nil)
	join(t, sim, 1, "ann")
	join(t, sim, 2, "bob")
	out.reset()

	if err := sim.JumpToMap(1); err != nil {
		t.Fatal(err)
	}
	for _, id := range []byte{1, 2} {
		m, ok := firstOf[*api.MapPacket](out.to(id))
		if !ok || m.Map != 1 {
			t.Errorf("peer %d MapPacket = %+v (found %v)", id, m, ok)
		}
	}
}

func TestExitFlagsChooseNextMap(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	if err := sim.JumpToMap(4); err != nil {
		t.Fatal(err)
	}
	join(t, sim, 1, "ann")
	runTicks(sim, cooldownTicks)

	exit := objectOfType(t, sim, enums.ObjectExitPoint)
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: exit, Type: enums.ObjectExitPoint})
	runTicks(sim, 2)
	if sim.Map() != 5 {
		t.Fatalf("exit 5 led to map %d", sim.Map())
	}

	// последняя карта ротации возвращает в лобби
	runTicks(sim, cooldownTicks)
	exit = objectOfType(t, sim, enums.ObjectExitPoint)
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: exit, Type: enums.ObjectExitPoint})
	runTicks(sim, 2)
	if sim.Map() != 0 {
		t.Errorf("after the last map got %d, want 0", sim.Map())
	}
}

func TestEveryLevelPlacesAllObjects(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	for _, id := range []uint16{0, 1, 2, 3, 4, 5} {
		if err := sim.JumpToMap(id); err != nil {
			t.Fatalf("JumpToMap(%d): %v", id, err)
		}
		if sim.PlacementFailures() != 0 {
			t.Errorf("map %d: %d objects not placed", id, sim.PlacementFailures())
		}
		if sim.Objects().Count() == 0 {
			t.Errorf("map %d has no objects", id)
		}
	}
	if err := sim.JumpToMap(42); err == nil {
		t.Error("JumpToMap(42) succeeded")
	}
}

func TestDoorRunsBecomeOneObject(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	if err := sim.JumpToMap(1); err != nil {
		t.Fatal(err)
	}
	grid := sim.Objects().Grid()
	top, bottom := grid.At(7, 2), grid.At(7, 3)
	if top.Type != enums.ObjectDoor || top.ID != bottom.ID {
		t.Fatalf("door cells = %+v / %+v", top, bottom)
	}
	door := sim.Objects().GetByID(top.ID).Base()
	if door.Width() != 2 || door.IsHorizontal() {
		t.Errorf("door width %d horizontal %v", door.Width(), door.IsHorizontal())
	}
}

func TestActivateDoor(t *testing.T) {
	sim, out := newTestSim(t, nil)
	if err := sim.JumpToMap(1); err != nil {
		t.Fatal(err)
	}
	join(t, sim, 1, "ann")
	runTicks(sim, cooldownTicks)
	grid := sim.Objects().Grid()

	red := grid.At(15, 2).ID
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: red, Type: enums.ObjectDoorRed})
	if sim.Objects().GetByID(red) == nil {
		t.Fatal("red door opened without a key")
	}

	runTicks(sim, cooldownTicks)
	door := grid.At(7, 2).ID
	out.reset()
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: door, Type: enums.ObjectDoor})
	if sim.Objects().GetByID(door) != nil {
		t.Fatal("door not removed")
	}
	if !grid.At(7, 2).IsEmpty() || !grid.At(7, 3).IsEmpty() {
		t.Error("door cells not cleared")
	}
	if len(packetsOf[*api.RevealAreaPacket](out)) != 1 || len(packetsOf[*api.RemoveObjectPacket](out)) != 1 {
		t.Errorf("sent %d packets, want reveal + remove", len(out.out))
	}
}

func TestPickupItems(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	p := join(t, sim, 1, "ann")

	health := objectOfType(t, sim, enums.ObjectHealth)
	cash := objectOfType(t, sim, enums.ObjectCash)
	send(sim, 1, &api.PickupObjectPacket{PlayerID: 1, ObjectID: health})
	send(sim, 1, &api.PickupObjectPacket{PlayerID: 1, ObjectID: cash})

	if !p.HasBagItem(enums.BagHealth) || p.Cash() != 1 {
		t.Errorf("bag %v cash %d", p.Bag(), p.Cash())
	}
	if sim.Objects().GetByID(health) != nil || sim.Objects().GetByID(cash) != nil {
		t.Error("picked up objects still in the world")
	}
}

func TestDropBagItem(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	p := join(t, sim, 1, "ann")
	p.AddBagItem(enums.BagBomb)
	before := sim.Objects().Count()

	send(sim, 1, &api.ActivateBagItemPacket{Slot: 0, Drop: true})

	if p.HasBagItem(enums.BagBomb) {
		t.Error("dropped bomb still in the bag")
	}
	if sim.Objects().Count() != before+1 {
		t.Fatalf("objects %d -> %d", before, sim.Objects().Count())
	}
	ahead := p.Position.Add(p.LookVector().Scale(dropDistance))
	if id := sim.Objects().FindObjectByPosition(ahead); id < 0 || sim.Objects().GetByID(id).Base().Type() != enums.ObjectBomb {
		t.Errorf("no bomb ahead of the player at %v", ahead)
	}

	// второй раз туда же не положить - бомба вернётся в сумку
	p.AddBagItem(enums.BagBomb)
	send(sim, 1, &api.ActivateBagItemPacket{Slot: 0, Drop: true})
	if !p.HasBagItem(enums.BagBomb) {
		t.Error("bomb lost when the drop cell was taken")
	}
}

func TestChestLockAndTake(t *testing.T) {
	sim, out := newTestSim(t, nil)
	if err := sim.JumpToMap(2); err != nil {
		t.Fatal(err)
	}
	ann := join(t, sim, 1, "ann")
	join(t, sim, 2, "bob")
	runTicks(sim, cooldownTicks)

	id := objectOfType(t, sim, enums.ObjectChest)
	chest := sim.Objects().GetByID(id).(interface {
		AddItem(enums.PlayerBagItem, int32)
		IsOpen() bool
	})
	chest.AddItem(enums.BagBomb, 1)
	chest.AddItem(enums.BagKeyRed, 1)

	out.reset()
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: id, Type: enums.ObjectChest})
	if !chest.IsOpen() {
		t.Fatal("chest not opened")
	}
	if echo, ok := firstOf[*api.ActivateObjectPacket](out.to(1)); !ok || echo.ObjectID != id {
		t.Error("lock not confirmed to the activator")
	}

	// чужой сундук не отдаёт предметы
	send(sim, 2, &api.TakeItemPacket{ChestID: id, SlotIndex: 0})
	if p := sim.Players().GetByID(2); len(p.Bag()) != 0 {
		t.Error("non-holder took an item")
	}

	send(sim, 1, &api.TakeItemPacket{ChestID: id, SlotIndex: 0})
	out.reset()
	send(sim, 1, &api.TakeItemPacket{ChestID: id, SlotIndex: 0})
	if !ann.HasBagItem(enums.BagBomb) || !ann.HasBagItem(enums.BagKeyRed) {
		t.Errorf("bag = %v", ann.Bag())
	}
	if chest.IsOpen() {
		t.Error("empty chest still open")
	}
	if rel, ok := firstOf[*api.ReleaseObjectLockPacket](out.to(1)); !ok || rel.ObjectID != id {
		t.Error("no release packet after the chest emptied")
	}
}

func TestDisconnectReleasesChest(t *testing.T) {
	sim, out := newTestSim(t, nil)
	if err := sim.JumpToMap(2); err != nil {
		t.Fatal(err)
	}
	join(t, sim, 1, "ann")
	runTicks(sim, cooldownTicks)

	id := objectOfType(t, sim, enums.ObjectChest)
	o := sim.Objects().GetByID(id)
	o.(*domain.Chest).AddItem(enums.BagHealth, 1)
	send(sim, 1, &api.ActivateObjectPacket{ObjectID: id, Type: enums.ObjectChest})
	if !o.Base().IsLocked() {
		t.Fatal("chest not locked")
	}

	out.reset()
	sim.OnPeerDisconnected(1)
	if o.Base().IsLocked() {
		t.Error("chest still locked by a gone player")
	}
	if left := packetsOf[*api.PlayerLeftPacket](out); len(left) != 1 || left[0].ID != 1 {
		t.Errorf("PlayerLeft = %+v", left)
	}
	if sim.Players().Count() != 0 {
		t.Error("player not removed")
	}
	sim.OnPeerDisconnected(1) // повтор безопасен
}

func TestDeathDropsChest(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	p := join(t, sim, 1, "ann")
	runTicks(sim, 1)
	p.AddBagItem(enums.BagBomb)
	p.AddBagItem(enums.BagBomb)

	p.SubtractHealth(255)
	runTicks(sim, 1)

	if len(p.Bag()) != 0 {
		t.Errorf("bag after death = %v", p.Bag())
	}
	found := false
	for _, s := range sim.Objects().States() {
		if s.Type == enums.ObjectChest && s.Position.Floor() == p.Position.Floor() {
			found = s.Chest != nil && len(s.Chest.Items) == 1 && s.Chest.Items[0].Count == 2
		}
	}
	if !found {
		t.Error("no death chest with the bag contents")
	}

	// второй тик мёртвым сундук не повторяет
	before := sim.Objects().Count()
	runTicks(sim, 1)
	if sim.Objects().Count() != before {
		t.Error("death chest dropped twice")
	}
}

func TestDeathsOnOneCellShareChest(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	ann := join(t, sim, 1, "ann")
	bob := join(t, sim, 2, "bob")
	runTicks(sim, 1)

	ann.AddBagItem(enums.BagBomb)
	ann.AddBagItem(enums.BagBomb)
	bob.AddBagItem(enums.BagHealth)
	bob.AddBagItem(enums.BagKeyRed)
	bob.Position = ann.Position

	ann.SubtractHealth(255)
	bob.SubtractHealth(255)
	runTicks(sim, 1)

	if len(ann.Bag()) != 0 || len(bob.Bag()) != 0 {
		t.Errorf("bags after death: ann %v, bob %v", ann.Bag(), bob.Bag())
	}

	chests := 0
	got := map[enums.PlayerBagItem]int32{}
	for _, st := range sim.Objects().States() {
		if st.Type != enums.ObjectChest || st.Position.Floor() != ann.Position.Floor() {
			continue
		}
		chests++
		if st.Chest == nil {
			t.Fatal("chest without payload")
		}
		for _, slot := range st.Chest.Items {
			got[slot.Type] += slot.Count
		}
	}
	if chests != 1 {
		t.Fatalf("chests on the death cell = %d, want 1", chests)
	}
	want := map[enums.PlayerBagItem]int32{enums.BagBomb: 2, enums.BagHealth: 1, enums.BagKeyRed: 1}
	for item, n := range want {
		if got[item] != n {
			t.Errorf("chest has %d x %s, want %d", got[item], item, n)
		}
	}
	if len(got) != len(want) {
		t.Errorf("chest items = %v, want %v", got, want)
	}
}

func TestConveyorPushesPlayer(t *testing.T) {
	sim, out := newTestSim(t, nil)
	if err := sim.JumpToMap(2); err != nil {
		t.Fatal(err)
	}
	p := join(t, sim, 1, "ann")
	p.Position = types.Vec(4.5, 4.5)
	out.reset()

	runTicks(sim, 1)

	want := 4.5 + 1.5*types.FixedDelta
	if !near(p.Position.X, want) || p.Position.Y != 4.5 {
		t.Errorf("position = %v, want x %.4f", p.Position, want)
	}
	corr, ok := firstOf[*api.PlayerPositionCorrection](out.to(1))
	if !ok || !near(corr.X, 1.5*types.FixedDelta) {
		t.Errorf("correction = %+v (found %v)", corr, ok)
	}
}

func TestBoltHitsAndScores(t *testing.T) {
	sim, out := newTestSim(t, nil)
	if err := sim.JumpToMap(1); err != nil {
		t.Fatal(err)
	}
	p := join(t, sim, 1, "ann")
	bug := objectOfType(t, sim, enums.ObjectNPCBug)

	out.reset()
	sim.OnBoltHit(bug, 1)
	if sim.Objects().GetByID(bug) != nil {
		t.Fatal("bug survived a bolt")
	}
	if p.Score() != 20 {
		t.Errorf("score = %d, want 20", p.Score())
	}
	if len(packetsOf[*api.RemoveObjectPacket](out)) != 1 {
		t.Error("bug removal not broadcast")
	}

	// в стену не попасть
	sim.OnBoltHit(-1, 1)
	if p.Score() != 20 {
		t.Error("score changed on a miss")
	}
}

func TestFireBroadcastsShot(t *testing.T) {
	sim, out := newTestSim(t, nil)
	join(t, sim, 1, "ann")
	runTicks(sim, cooldownTicks)
	out.reset()

	send(sim, 1, &api.PlayerInputPacket{ID: 1, Keys: enums.KeyFire})
	send(sim, 1, &api.PlayerInputPacket{ID: 2, Keys: enums.KeyFire})

	var shots int
	for _, s := range out.out {
		if _, ok := s.packet.(*api.ShootPacket); ok {
			shots++
			if s.channel != network.ReliableUnordered {
				t.Errorf("shot sent on %s", s.channel)
			}
		}
	}
	if shots != 1 {
		t.Errorf("shots = %d, want 1 (cooldown)", shots)
	}
}

func TestHeartResurrectsDeadPlayer(t *testing.T) {
	sim, out := newTestSim(t, nil)
	if err := sim.JumpToMap(4); err != nil {
		t.Fatal(err)
	}
	ann := join(t, sim, 1, "ann")
	join(t, sim, 2, "bob")
	ann.SubtractHealth(255)

	heart := objectOfType(t, sim, enums.ObjectHeart)
	pos := sim.Objects().GetByID(heart).Base().Position
	out.reset()
	sim.OnBoltHit(heart, 2)

	if !ann.IsAlive() || ann.Position != pos {
		t.Errorf("ann alive %v at %v, want %v", ann.IsAlive(), ann.Position, pos)
	}
	if sp, ok := firstOf[*api.SpawnPacket](out.to(2)); !ok || sp.PlayerID != 1 {
		t.Errorf("spawn packet = %+v", sp)
	}
}

func TestTriggerDeletePoint(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	health := objectOfType(t, sim, enums.ObjectHealth)
	pos := sim.Objects().GetByID(health).Base().Position

	if !sim.OnTriggerDeletePoint(pos) {
		t.Fatal("nothing deleted")
	}
	if sim.Objects().GetByID(health) != nil {
		t.Error("object still present")
	}
	if sim.OnTriggerDeletePoint(pos) {
		t.Error("second delete reported success")
	}
}
