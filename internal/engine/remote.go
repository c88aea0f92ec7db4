package engine

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
	"github.com/Kelvintronic/inhabited/internal/engine/handlers"
	"github.com/Kelvintronic/inhabited/internal/network"
	"github.com/Kelvintronic/inhabited/internal/systems"
	"github.com/Kelvintronic/inhabited/pkg/api"
)

// ErrNotJoined - пакет от пира, который ещё не вошёл в игру.
var ErrNotJoined = errors.New("peer has not joined")

// ErrAlreadyJoined - повторный Join от пира, у которого уже есть игрок.
var ErrAlreadyJoined = errors.New("peer already joined")

// RejectServerFull - причина отказа, когда все слоты заняты.
const RejectServerFull = "server full"

// dropDistance - на каком расстоянии перед игроком ложится выброшенный предмет.
const dropDistance float32 = 1.5

func (s *Simulation) registerHandlers() {
	s.router.Handle(handlers.MessageRoute(api.KindJoin), handlers.WithPacket(s.onJoin))
	s.router.Handle(handlers.Route(api.PacketMovement), handlers.WithPacket(withPlayer(s, s.onInput)))
	s.router.Handle(handlers.Route(api.PacketActivate), handlers.WithPacket(withPlayer(s, s.onActivate)))
	s.router.Handle(handlers.MessageRoute(api.KindReleaseObjectLock), handlers.WithPacket(withPlayer(s, s.onReleaseObjectLock)))
	s.router.Handle(handlers.MessageRoute(api.KindPickupObject), handlers.WithPacket(withPlayer(s, s.onPickup)))
	s.router.Handle(handlers.MessageRoute(api.KindActivateBagItem), handlers.WithPacket(withPlayer(s, s.onActivateBagItem)))
	s.router.Handle(handlers.MessageRoute(api.KindTakeItem), handlers.WithPacket(withPlayer(s, s.onTakeItem)))
}

// withPlayer пропускает пакет только от вошедшего игрока.
func withPlayer[T api.Packet](s *Simulation, h func(p *ServerPlayer, pkt T) error) handlers.TypedHandlerFunc[T] {
	return func(peer byte, pkt T) error {
		p := s.players.GetByID(peer)
		if p == nil {
			return ErrNotJoined
		}
		return h(p, pkt)
	}
}

// HandleEvent - вход для событий транспорта. Ошибки пакетов
// логируются и не останавливают тик.
func (s *Simulation) HandleEvent(e network.Event) {
	switch e.Kind {
	case network.EventConnected:
		s.log.WithField("peer_id", e.Peer).Debug("Peer connected")
	case network.EventDisconnected:
		s.OnPeerDisconnected(e.Peer)
	case network.EventPacket:
		s.HandleFrame(e.Peer, e.Frame)
	}
}

// HandleFrame разбирает и применяет один кадр от пира.
func (s *Simulation) HandleFrame(peer byte, frame []byte) {
	if err := s.router.Dispatch(peer, frame); err != nil {
		entry := s.log.WithError(err).WithField("peer_id", peer)
		if errors.Is(err, ErrNotJoined) {
			entry.Debug("Packet before join ignored")
			return
		}
		if errors.Is(err, ErrAlreadyJoined) {
			entry.Debug("Repeated join ignored")
			return
		}
		entry.Warn("Packet dropped")
	}
}

func (s *Simulation) onJoin(peer byte, pkt *api.JoinPacket) error {
	// повтор не должен сбрасывать счёт и сумку живого игрока
	if s.players.GetByID(peer) != nil {
		return ErrAlreadyJoined
	}
	player := NewServerPlayer(peer, pkt.UserName)
	if !s.players.AddPlayer(player) {
		s.sendTo(peer, &api.JoinRejectPacket{ID: peer, ServerTick: s.tick, Reason: RejectServerFull})
		s.log.WithFields(logrus.Fields{"peer_id": peer, "name": pkt.UserName}).Info("Join rejected: server full")
		return nil
	}

	player.Spawn(s.level.SpawnPoint(player.Slot()))
	player.NetworkState = player.State(player.LastProcessedCommand())

	s.sendTo(peer, &api.JoinAcceptPacket{ID: peer, ServerTick: s.tick, Player: int32(player.Slot()), Map: s.mapID})

	// старым игрокам - о новом
	joined := &api.PlayerJoinedPacket{
		UserName:           player.Name,
		NewPlayer:          true,
		Health:             player.Health(),
		Score:              player.Score(),
		Player:             int32(player.Slot()),
		ServerTick:         s.tick,
		InitialPlayerState: player.NetworkState,
	}
	others := s.players.Players()
	for _, other := range others {
		if other.ID() != peer {
			s.sendTo(other.ID(), joined)
		}
	}

	// новому - о старых
	for _, other := range others {
		if other.ID() == peer {
			continue
		}
		s.sendTo(peer, &api.PlayerJoinedPacket{
			UserName:           other.Name,
			NewPlayer:          false,
			Health:             other.Health(),
			Score:              other.Score(),
			Player:             int32(other.Slot()),
			ServerTick:         s.tick,
			InitialPlayerState: other.NetworkState,
		})
	}

	// хоста среди пиров нет (id с 1), карту получают все
	s.sendTo(peer, s.mapPacket)
	if err := s.objects.UpdateClient(peer); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"player_id": peer, "name": player.Name, "slot": player.Slot()}).Info("Player joined")
	return nil
}

// OnPeerDisconnected убирает игрока и сообщает остальным.
func (s *Simulation) OnPeerDisconnected(peer byte) {
	p := s.players.RemovePlayer(peer)
	if p == nil {
		return
	}
	s.objects.ReleaseLocksHeldBy(p)
	s.sendToAll(&api.PlayerLeftPacket{ID: peer})
	s.log.WithFields(logrus.Fields{"player_id": peer, "name": p.Name}).Info("Player left")
}

func (s *Simulation) onInput(p *ServerPlayer, cmd *api.PlayerInputPacket) error {
	if !p.ApplyInput(cmd, s.objects.Grid(), types.FixedDelta) {
		return nil
	}
	if cmd.Keys&enums.KeyFire == 0 || !p.IsAlive() || !p.IsActive() {
		return nil
	}
	if !p.ApplyShoot() {
		return nil
	}

	s.sendToAll(&api.ShootPacket{
		ShooterID:    int32(p.ID()),
		IsNPCShooter: false,
		Direction:    p.Rotation,
		ServerTick:   s.tick,
		DamageFactor: 1,
	})
	if hit, ok := systems.CastBolt(s.objects.Grid(), p.Position, p.Rotation); ok {
		s.OnBoltHit(hit.ID, p.ID())
	}
	return nil
}

func (s *Simulation) onActivate(p *ServerPlayer, pkt *api.ActivateObjectPacket) error {
	o := s.objects.GetByID(pkt.ObjectID)
	if o == nil {
		return nil
	}
	base := o.Base()
	if !base.IsActive() {
		return nil
	}
	// решает настоящий тип объекта, а не тот, что прислал клиент
	if !p.ApplyActivate(base.Type()) {
		return nil
	}

	switch kind := base.Type(); {
	case kind == enums.ObjectExitPoint:
		s.nextMap = int32(base.Flags)
		s.log.WithFields(logrus.Fields{"player_id": p.ID(), "exit_id": base.ID()}).Info("Player reached exit")

	case kind.IsDoor():
		door, ok := o.(*domain.Door)
		if !ok {
			return nil
		}
		direction := door.RaycastDirection(p.Position)
		s.objects.RemoveObject(base.ID())
		s.sendToAll(&api.RevealAreaPacket{Position: p.Position, Direction: direction})

	case kind == enums.ObjectChest:
		if o.Lock(p.Player) {
			s.objects.SetUpdate(base.ID())
			s.sendTo(p.ID(), pkt)
		}
	}
	return nil
}

func (s *Simulation) onReleaseObjectLock(p *ServerPlayer, pkt *api.ReleaseObjectLockPacket) error {
	o := s.objects.GetByID(pkt.ObjectID)
	if o == nil {
		return nil
	}
	o.Unlock(p.Player)
	s.objects.SetUpdate(pkt.ObjectID)
	return nil
}

func (s *Simulation) onPickup(p *ServerPlayer, pkt *api.PickupObjectPacket) error {
	o := s.objects.GetByID(pkt.ObjectID)
	if o == nil || !o.Base().IsActive() {
		return nil
	}
	if p.ApplyPickup(o.Base().Type()) {
		s.objects.RemoveObject(pkt.ObjectID)
	}
	return nil
}

func (s *Simulation) onActivateBagItem(p *ServerPlayer, pkt *api.ActivateBagItemPacket) error {
	item := p.ApplyUseBagItem(int(pkt.Slot), pkt.Drop)
	if item == enums.BagLint {
		return nil
	}

	if pkt.Drop {
		pos := p.Position.Add(p.LookVector().Normalize().Scale(dropDistance))
		dropped := s.objects.CreateWorldObject(item.ObjectType(), pos, 1, true, 0)
		if !s.objects.AddWorldObject(dropped) {
			// места нет - предмет возвращается в сумку
			p.AddBagItem(item)
		}
		return nil
	}

	if item == enums.BagBomb {
		s.objects.Explode(p.Position)
	}
	return nil
}

func (s *Simulation) onTakeItem(p *ServerPlayer, pkt *api.TakeItemPacket) error {
	chest, ok := s.objects.GetByID(pkt.ChestID).(*domain.Chest)
	if !ok {
		return nil
	}
	_, emptied, err := systems.TakeFromChest(chest, p.Player, int(pkt.SlotIndex))
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"player_id": p.ID(), "chest_id": pkt.ChestID}).Debug("Take refused")
		return nil
	}
	s.objects.SetUpdate(chest.ID())
	if emptied {
		s.sendTo(p.ID(), &api.ReleaseObjectLockPacket{ObjectID: chest.ID()})
	}
	return nil
}
