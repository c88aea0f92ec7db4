package client

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/engine/handlers"
	"github.com/Kelvintronic/inhabited/pkg/api"
	"github.com/Kelvintronic/inhabited/pkg/dungeon"
	"github.com/Kelvintronic/inhabited/pkg/logger"
)

var (
	// ErrNotJoined - пакет, которому нужен свой игрок, пришёл до JoinAccept.
	ErrNotJoined = errors.New("client has not joined")
	// ErrUnknownMap - сервер прислал номер карты, которой нет в наборе клиента.
	ErrUnknownMap = errors.New("unknown map")
	// ErrNoChest - действие с сундуком без захваченного сундука.
	ErrNoChest = errors.New("no chest is open")
)

// serverPeer - от кого приходят все кадры клиента.
const serverPeer byte = 0

// Transport - канал до сервера. Один кадр - один пакет.
type Transport interface {
	Send(frame []byte) error
}

// Logic - клиентская половина игры: разбирает пакеты сервера, ведёт
// предсказание своего игрока и интерполяцию остальных. Не
// потокобезопасна, всё вызывается из одной горутины.
type Logic struct {
	name      string
	levels    *dungeon.LevelSet
	transport Transport
	router    *handlers.Router

	player  *ClientPlayer
	remotes map[byte]*RemotePlayer
	objects *ObjectManager

	mapID          uint16
	spawn          types.WorldVector
	lastServerTick uint16

	rejected   string
	openChest  int32
	lastPickup int32
	shots      int

	log *logrus.Entry
}

func NewLogic(name string, levels *dungeon.LevelSet, t Transport) *Logic {
	l := &Logic{
		name:       name,
		levels:     levels,
		transport:  t,
		router:     handlers.NewRouter(),
		remotes:    make(map[byte]*RemotePlayer),
		objects:    NewObjectManager(),
		openChest:  -1,
		lastPickup: -1,
		log:        logger.WithComponent("client").WithField("name", name),
	}
	l.registerHandlers()
	return l
}

func (l *Logic) registerHandlers() {
	l.router.Handle(handlers.MessageRoute(api.KindJoinAccept), handlers.WithPacket(l.onJoinAccept))
	l.router.Handle(handlers.MessageRoute(api.KindJoinReject), handlers.WithPacket(l.onJoinReject))
	l.router.Handle(handlers.MessageRoute(api.KindPlayerJoined), handlers.WithPacket(joined(l, l.onPlayerJoined)))
	l.router.Handle(handlers.MessageRoute(api.KindPlayerLeft), handlers.WithPacket(l.onPlayerLeft))
	l.router.Handle(handlers.Route(api.PacketSpawn), handlers.WithPacket(joined(l, l.onSpawn)))
	l.router.Handle(handlers.Route(api.PacketServerState), handlers.WithPacket(joined(l, l.onServerState)))
	l.router.Handle(handlers.Route(api.PacketWorldObjectState), handlers.WithPacket(l.onWorldObjectState))
	l.router.Handle(handlers.MessageRoute(api.KindRemoveObject), handlers.WithPacket(l.onRemoveObject))
	l.router.Handle(handlers.Route(api.PacketNewMap), handlers.WithPacket(joined(l, l.onNewMap)))
	l.router.Handle(handlers.Route(api.PacketShoot), handlers.WithPacket(l.onShoot))
	l.router.Handle(handlers.Route(api.PacketActivate), handlers.WithPacket(l.onActivate))
	l.router.Handle(handlers.MessageRoute(api.KindReleaseObjectLock), handlers.WithPacket(l.onReleaseObjectLock))
	l.router.Handle(handlers.MessageRoute(api.KindPositionCorrection), handlers.WithPacket(joined(l, l.onPositionCorrection)))
	l.router.Handle(handlers.MessageRoute(api.KindRevealArea), handlers.WithPacket(l.onRevealArea))
}

// joined пропускает пакет, только если свой игрок уже создан.
func joined[T api.Packet](l *Logic, h func(pkt T) error) handlers.TypedHandlerFunc[T] {
	return func(_ byte, pkt T) error {
		if l.player == nil {
			return ErrNotJoined
		}
		return h(pkt)
	}
}

func (l *Logic) Player() *ClientPlayer              { return l.player }
func (l *Logic) Remote(id byte) *RemotePlayer       { return l.remotes[id] }
func (l *Logic) RemoteCount() int                   { return len(l.remotes) }
func (l *Logic) Objects() *ObjectManager            { return l.objects }
func (l *Logic) Map() uint16                        { return l.mapID }
func (l *Logic) LastServerTick() uint16             { return l.lastServerTick }
func (l *Logic) Shots() int                         { return l.shots }
func (l *Logic) Rejected() (reason string, ok bool) { return l.rejected, l.rejected != "" }

// OpenChest - сундук, захваченный своим игроком.
func (l *Logic) OpenChest() (int32, bool) { return l.openChest, l.openChest >= 0 }

// Join отправляет серверу имя игрока.
func (l *Logic) Join() error {
	return l.send(&api.JoinPacket{UserName: l.name})
}

// HandleFrame разбирает один кадр сервера.
func (l *Logic) HandleFrame(frame []byte) error {
	return l.router.Dispatch(serverPeer, frame)
}

// LogicUpdate - один фиксированный тик клиента.
func (l *Logic) LogicUpdate() error {
	if l.player == nil {
		return nil
	}

	if l.player.IsAlive() && l.player.IsActive() {
		if o, ok := l.objects.PickupAt(l.player.Position); ok && o.ID() != l.lastPickup {
			l.player.SetPickup(o.ID())
			l.lastPickup = o.ID()
		}
	}

	var errs []error
	for _, p := range l.player.Update(l.objects.Grid(), types.FixedDelta) {
		if err := l.send(p); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range l.remotes {
		r.UpdatePosition(types.FixedDelta)
	}
	l.objects.Update(types.FixedDelta)
	return errors.Join(errs...)
}

// Activate просит сервер открыть дверь, сундук или выход.
func (l *Logic) Activate(o *RemoteObject) bool {
	if l.player == nil || o == nil {
		return false
	}
	return l.player.SetActivate(o.ID(), o.Type())
}

// TakeItem забирает предмет из захваченного сундука.
func (l *Logic) TakeItem(slot int) error {
	chest, ok := l.OpenChest()
	if !ok {
		return fmt.Errorf("take item: %w", ErrNoChest)
	}
	return l.send(&api.TakeItemPacket{ChestID: chest, SlotIndex: int32(slot)})
}

// ReleaseChest отпускает захваченный сундук.
func (l *Logic) ReleaseChest() error {
	chest, ok := l.OpenChest()
	if !ok {
		return nil
	}
	l.openChest = -1
	return l.send(&api.ReleaseObjectLockPacket{ObjectID: chest})
}

// UseBagItem применяет или выбрасывает предмет из слота сумки.
func (l *Logic) UseBagItem(slot int, drop bool) error {
	return l.send(&api.ActivateBagItemPacket{Slot: int32(slot), Drop: drop})
}

func (l *Logic) send(p api.Packet) error {
	if err := l.transport.Send(api.Marshal(p)); err != nil {
		return fmt.Errorf("send %s: %w", p.PacketType(), err)
	}
	return nil
}

// setMap переключает сетку на встроенную карту id.
func (l *Logic) setMap(id uint16) error {
	level, err := l.levels.Get(id)
	if err != nil {
		return fmt.Errorf("map %d: %w", id, ErrUnknownMap)
	}
	l.mapID = id
	l.spawn = level.Spawn
	l.objects.Reset(level.Geometry())
	return nil
}

func (l *Logic) onJoinAccept(_ byte, p *api.JoinAcceptPacket) error {
	l.lastServerTick = p.ServerTick
	l.player = NewClientPlayer(l.name, p)
	if err := l.setMap(p.Map); err != nil {
		return err
	}
	l.player.Spawn(dungeon.SpawnFor(l.spawn, l.player.Slot()))
	l.log.WithFields(logrus.Fields{"player_id": p.ID, "slot": p.Player, "map": p.Map}).Info("Join accepted")
	return nil
}

func (l *Logic) onJoinReject(_ byte, p *api.JoinRejectPacket) error {
	l.lastServerTick = p.ServerTick
	l.rejected = p.Reason
	l.log.WithField("reason", p.Reason).Warn("Join rejected")
	return nil
}

func (l *Logic) onPlayerJoined(p *api.PlayerJoinedPacket) error {
	r := NewRemotePlayer(p)
	if p.NewPlayer {
		r.Spawn(dungeon.SpawnFor(l.spawn, r.Slot()))
	}
	l.remotes[r.ID()] = r
	l.log.WithFields(logrus.Fields{"player_id": r.ID(), "remote": r.Name}).Debug("Player joined")
	return nil
}

func (l *Logic) onPlayerLeft(_ byte, p *api.PlayerLeftPacket) error {
	if r, ok := l.remotes[p.ID]; ok {
		delete(l.remotes, p.ID)
		l.log.WithFields(logrus.Fields{"player_id": p.ID, "remote": r.Name}).Debug("Player left")
	}
	return nil
}

func (l *Logic) onSpawn(p *api.SpawnPacket) error {
	pos := types.Vec(p.X, p.Y)
	if p.PlayerID == l.player.ID() {
		l.player.Spawn(pos)
		return nil
	}
	if r, ok := l.remotes[p.PlayerID]; ok {
		r.Spawn(pos)
	}
	return nil
}

// onServerState применяет только снимки новее последнего.
func (l *Logic) onServerState(p *api.ServerStatePacket) error {
	if types.SeqDiff(int(p.Tick), int(l.lastServerTick)) <= 0 {
		return nil
	}
	l.lastServerTick = p.Tick
	for _, st := range p.PlayerStates {
		if st.ID == l.player.ID() {
			l.player.ReceiveServerState(p, st)
			continue
		}
		if r, ok := l.remotes[st.ID]; ok {
			r.OnPlayerState(st)
		}
	}
	return nil
}

func (l *Logic) onWorldObjectState(_ byte, p *api.WorldObjectStatePacket) error {
	for _, s := range p.Objects {
		l.objects.Apply(s)
	}
	return nil
}

func (l *Logic) onRemoveObject(_ byte, p *api.RemoveObjectPacket) error {
	l.objects.Remove(p.ID)
	if l.openChest == p.ID {
		l.openChest = -1
	}
	if l.lastPickup == p.ID {
		l.lastPickup = -1
	}
	return nil
}

// onNewMap - смена уровня: объекты уходят, ключи сгорают, свой игрок
// встаёт на точку появления своего слота.
func (l *Logic) onNewMap(p *api.MapPacket) error {
	if p.IsCustom {
		l.mapID = p.Map
		l.spawn = p.SpawnPoint
		l.objects.Reset(dungeon.GridFromMap(p))
	} else if err := l.setMap(p.Map); err != nil {
		return err
	}
	l.openChest, l.lastPickup = -1, -1
	l.player.NewLevelReset()
	l.player.Spawn(dungeon.SpawnFor(l.spawn, l.player.Slot()))
	l.log.WithFields(logrus.Fields{"map": p.Map, "custom": p.IsCustom}).Info("New map")
	return nil
}

func (l *Logic) onShoot(_ byte, p *api.ShootPacket) error {
	l.shots++
	return nil
}

// onActivate - сервер подтвердил захват сундука.
func (l *Logic) onActivate(_ byte, p *api.ActivateObjectPacket) error {
	if p.Type == enums.ObjectChest {
		l.openChest = p.ObjectID
	}
	return nil
}

func (l *Logic) onReleaseObjectLock(_ byte, p *api.ReleaseObjectLockPacket) error {
	if l.openChest == p.ObjectID {
		l.openChest = -1
	}
	return nil
}

func (l *Logic) onPositionCorrection(p *api.PlayerPositionCorrection) error {
	l.player.AddCorrection(types.Vec(p.X, p.Y))
	return nil
}

// onRevealArea - туман войны на клиенте без экрана не рисуется.
func (l *Logic) onRevealArea(_ byte, p *api.RevealAreaPacket) error {
	l.log.WithField("pos", p.Position.String()).Debug("Area revealed")
	return nil
}
