package api

import (
	"fmt"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
)

// PacketType - первый байт каждого кадра.
type PacketType byte

const (
	PacketMovement PacketType = iota
	PacketActivate
	PacketSpawn
	PacketServerState
	PacketSerialized
	PacketShoot
	PacketMessage
	PacketWorldObjectState
	PacketNewMap

	packetTypeCount
)

func (t PacketType) String() string {
	switch t {
	case PacketMovement:
		return "MOVEMENT"
	case PacketActivate:
		return "ACTIVATE"
	case PacketSpawn:
		return "SPAWN"
	case PacketServerState:
		return "SERVER_STATE"
	case PacketSerialized:
		return "SERIALIZED"
	case PacketShoot:
		return "SHOOT"
	case PacketMessage:
		return "MESSAGE"
	case PacketWorldObjectState:
		return "WORLD_OBJECT_STATE"
	case PacketNewMap:
		return "NEW_MAP"
	}
	return fmt.Sprintf("PACKET(%d)", byte(t))
}

// MessageKind - второй байт кадра PacketSerialized.
type MessageKind byte

const (
	KindJoin MessageKind = iota
	KindJoinAccept
	KindJoinReject
	KindPlayerJoined
	KindPlayerLeft
	KindRemoveObject
	KindReleaseObjectLock
	KindPickupObject
	KindActivateBagItem
	KindTakeItem
	KindPositionCorrection
	KindRevealArea

	messageKindCount
)

// Packet - всё, что уходит одним кадром.
//
// Порядок полей в MarshalTo и есть протокол. Пакеты внутри кадра
// PacketSerialized дополнительно реализуют Message.
type Packet interface {
	PacketType() PacketType
	MarshalTo(w *Writer)
	UnmarshalFrom(r *Reader)
}

// Message - пакет, который едет в кадре PacketSerialized.
type Message interface {
	Packet
	Kind() MessageKind
}

// serialized даёт PacketType всем Message.
type serialized struct{}

func (serialized) PacketType() PacketType { return PacketSerialized }

// ---------------------------------------------------------------------------
// Клиент -> сервер
// ---------------------------------------------------------------------------

// JoinPacket - первое сообщение клиента.
type JoinPacket struct {
	serialized
	UserName string `json:"userName"`
}

func (*JoinPacket) Kind() MessageKind         { return KindJoin }
func (p *JoinPacket) MarshalTo(w *Writer)     { w.PutString(p.UserName) }
func (p *JoinPacket) UnmarshalFrom(r *Reader) { p.UserName = r.Text() }

// PlayerInputPacket - команда клиента, уходит каждый тик без гарантии доставки.
type PlayerInputPacket struct {
	ID                 uint16             `json:"id"`
	Keys               enums.MovementKeys `json:"keys"`
	Position           types.WorldVector  `json:"position"`
	Rotation           float32            `json:"rotation"`
	CorrectionAccepted bool               `json:"correctionAccepted"`
	ServerTick         uint16             `json:"serverTick"`
}

func (*PlayerInputPacket) PacketType() PacketType { return PacketMovement }

func (p *PlayerInputPacket) MarshalTo(w *Writer) {
	w.PutUint16(p.ID)
	w.PutByte(byte(p.Keys))
	w.PutVector(p.Position)
	w.PutFloat32(p.Rotation)
	w.PutBool(p.CorrectionAccepted)
	w.PutUint16(p.ServerTick)
}

func (p *PlayerInputPacket) UnmarshalFrom(r *Reader) {
	p.ID = r.Uint16()
	p.Keys = enums.MovementKeys(r.Byte())
	p.Position = r.Vector()
	p.Rotation = r.Float32()
	p.CorrectionAccepted = r.Bool()
	p.ServerTick = r.Uint16()
}

// ActivateObjectPacket - просьба открыть дверь или сундук либо выйти.
// Когда сундук захвачен, сервер возвращает этот же пакет.
type ActivateObjectPacket struct {
	ObjectID int32            `json:"objectId"`
	Type     enums.ObjectType `json:"type"`
}

func (*ActivateObjectPacket) PacketType() PacketType { return PacketActivate }

func (p *ActivateObjectPacket) MarshalTo(w *Writer) {
	w.PutInt32(p.ObjectID)
	w.PutInt32(int32(p.Type))
}

func (p *ActivateObjectPacket) UnmarshalFrom(r *Reader) {
	p.ObjectID = r.Int32()
	p.Type = enums.ObjectType(r.Int32())
}

// ReleaseObjectLockPacket ходит в обе стороны: клиент отпускает сундук,
// сервер сообщает, что захват снят.
type ReleaseObjectLockPacket struct {
	serialized
	ObjectID int32 `json:"objectId"`
}

func (*ReleaseObjectLockPacket) Kind() MessageKind         { return KindReleaseObjectLock }
func (p *ReleaseObjectLockPacket) MarshalTo(w *Writer)     { w.PutInt32(p.ObjectID) }
func (p *ReleaseObjectLockPacket) UnmarshalFrom(r *Reader) { p.ObjectID = r.Int32() }

type PickupObjectPacket struct {
	serialized
	PlayerID int32 `json:"playerId"`
	ObjectID int32 `json:"objectId"`
}

func (*PickupObjectPacket) Kind() MessageKind { return KindPickupObject }

func (p *PickupObjectPacket) MarshalTo(w *Writer) {
	w.PutInt32(p.PlayerID)
	w.PutInt32(p.ObjectID)
}

func (p *PickupObjectPacket) UnmarshalFrom(r *Reader) {
	p.PlayerID = r.Int32()
	p.ObjectID = r.Int32()
}

type TakeItemPacket struct {
	serialized
	ChestID   int32 `json:"chestId"`
	SlotIndex int32 `json:"slotIndex"`
}

func (*TakeItemPacket) Kind() MessageKind { return KindTakeItem }

func (p *TakeItemPacket) MarshalTo(w *Writer) {
	w.PutInt32(p.ChestID)
	w.PutInt32(p.SlotIndex)
}

func (p *TakeItemPacket) UnmarshalFrom(r *Reader) {
	p.ChestID = r.Int32()
	p.SlotIndex = r.Int32()
}

type ActivateBagItemPacket struct {
	serialized
	Slot int32 `json:"slot"`
	Drop bool  `json:"drop"`
}

func (*ActivateBagItemPacket) Kind() MessageKind { return KindActivateBagItem }

func (p *ActivateBagItemPacket) MarshalTo(w *Writer) {
	w.PutInt32(p.Slot)
	w.PutBool(p.Drop)
}

func (p *ActivateBagItemPacket) UnmarshalFrom(r *Reader) {
	p.Slot = r.Int32()
	p.Drop = r.Bool()
}

// ---------------------------------------------------------------------------
// Сервер -> клиент
// ---------------------------------------------------------------------------

type JoinAcceptPacket struct {
	serialized
	ID         byte   `json:"id"`
	ServerTick uint16 `json:"serverTick"`
	Player     int32  `json:"player"` // номер слота, от него зависит спрайт
	Map        uint16 `json:"map"`
}

func (*JoinAcceptPacket) Kind() MessageKind { return KindJoinAccept }

func (p *JoinAcceptPacket) MarshalTo(w *Writer) {
	w.PutByte(p.ID)
	w.PutUint16(p.ServerTick)
	w.PutInt32(p.Player)
	w.PutUint16(p.Map)
}

func (p *JoinAcceptPacket) UnmarshalFrom(r *Reader) {
	p.ID = r.Byte()
	p.ServerTick = r.Uint16()
	p.Player = r.Int32()
	p.Map = r.Uint16()
}

type JoinRejectPacket struct {
	serialized
	ID         byte   `json:"id"`
	ServerTick uint16 `json:"serverTick"`
	Reason     string `json:"reason"`
}

func (*JoinRejectPacket) Kind() MessageKind { return KindJoinReject }

func (p *JoinRejectPacket) MarshalTo(w *Writer) {
	w.PutByte(p.ID)
	w.PutUint16(p.ServerTick)
	w.PutString(p.Reason)
}

func (p *JoinRejectPacket) UnmarshalFrom(r *Reader) {
	p.ID = r.Byte()
	p.ServerTick = r.Uint16()
	p.Reason = r.Text()
}

// PlayerJoinedPacket знакомит остальных с игроком.
// NewPlayer = false, если игрок уже был в игре.
type PlayerJoinedPacket struct {
	serialized
	UserName           string      `json:"userName"`
	NewPlayer          bool        `json:"newPlayer"`
	Health             byte        `json:"health"`
	Score              uint32      `json:"score"`
	Player             int32       `json:"player"`
	ServerTick         uint16      `json:"serverTick"`
	InitialPlayerState PlayerState `json:"initialPlayerState"`
}

func (*PlayerJoinedPacket) Kind() MessageKind { return KindPlayerJoined }

func (p *PlayerJoinedPacket) MarshalTo(w *Writer) {
	w.PutString(p.UserName)
	w.PutBool(p.NewPlayer)
	w.PutByte(p.Health)
	w.PutUint32(p.Score)
	w.PutInt32(p.Player)
	w.PutUint16(p.ServerTick)
	p.InitialPlayerState.MarshalTo(w)
}

func (p *PlayerJoinedPacket) UnmarshalFrom(r *Reader) {
	p.UserName = r.Text()
	p.NewPlayer = r.Bool()
	p.Health = r.Byte()
	p.Score = r.Uint32()
	p.Player = r.Int32()
	p.ServerTick = r.Uint16()
	p.InitialPlayerState.UnmarshalFrom(r)
}

type PlayerLeftPacket struct {
	serialized
	ID byte `json:"id"`
}

func (*PlayerLeftPacket) Kind() MessageKind         { return KindPlayerLeft }
func (p *PlayerLeftPacket) MarshalTo(w *Writer)     { w.PutByte(p.ID) }
func (p *PlayerLeftPacket) UnmarshalFrom(r *Reader) { p.ID = r.Byte() }

// SpawnPacket телепортирует игрока. Клиент сбрасывает буфер интерполяции.
type SpawnPacket struct {
	PlayerID byte    `json:"playerId"`
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
}

func (*SpawnPacket) PacketType() PacketType { return PacketSpawn }

func (p *SpawnPacket) MarshalTo(w *Writer) {
	w.PutByte(p.PlayerID)
	w.PutFloat32(p.X)
	w.PutFloat32(p.Y)
}

func (p *SpawnPacket) UnmarshalFrom(r *Reader) {
	p.PlayerID = r.Byte()
	p.X = r.Float32()
	p.Y = r.Float32()
}

type RemoveObjectPacket struct {
	serialized
	ID int32 `json:"id"`
}

func (*RemoveObjectPacket) Kind() MessageKind         { return KindRemoveObject }
func (p *RemoveObjectPacket) MarshalTo(w *Writer)     { w.PutInt32(p.ID) }
func (p *RemoveObjectPacket) UnmarshalFrom(r *Reader) { p.ID = r.Int32() }

// PlayerPositionCorrection - сдвиг, который клиент прибавляет к своей
// позиции. Так приходят внешние толчки, например от ленты.
type PlayerPositionCorrection struct {
	serialized
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (*PlayerPositionCorrection) Kind() MessageKind { return KindPositionCorrection }

func (p *PlayerPositionCorrection) MarshalTo(w *Writer) {
	w.PutFloat32(p.X)
	w.PutFloat32(p.Y)
}

func (p *PlayerPositionCorrection) UnmarshalFrom(r *Reader) {
	p.X = r.Float32()
	p.Y = r.Float32()
}

// RevealAreaPacket - снять туман за открытой дверью.
type RevealAreaPacket struct {
	serialized
	Position  types.WorldVector `json:"position"`
	Direction float32           `json:"direction"`
}

func (*RevealAreaPacket) Kind() MessageKind { return KindRevealArea }

func (p *RevealAreaPacket) MarshalTo(w *Writer) {
	w.PutVector(p.Position)
	w.PutFloat32(p.Direction)
}

func (p *RevealAreaPacket) UnmarshalFrom(r *Reader) {
	p.Position = r.Vector()
	p.Direction = r.Float32()
}

// ShootPacket - выстрел. Доставка гарантирована, порядок нет.
type ShootPacket struct {
	ShooterID    int32   `json:"shooterId"`
	IsNPCShooter bool    `json:"isNpcShooter"`
	Direction    float32 `json:"direction"`
	ServerTick   uint16  `json:"serverTick"`
	DamageFactor int32   `json:"damageFactor"`
}

func (*ShootPacket) PacketType() PacketType { return PacketShoot }

func (p *ShootPacket) MarshalTo(w *Writer) {
	w.PutInt32(p.ShooterID)
	w.PutBool(p.IsNPCShooter)
	w.PutFloat32(p.Direction)
	w.PutUint16(p.ServerTick)
	w.PutInt32(p.DamageFactor)
}

func (p *ShootPacket) UnmarshalFrom(r *Reader) {
	p.ShooterID = r.Int32()
	p.IsNPCShooter = r.Bool()
	p.Direction = r.Float32()
	p.ServerTick = r.Uint16()
	p.DamageFactor = r.Int32()
}

// ServerStatePacket - снимок игроков, свой для каждого получателя.
type ServerStatePacket struct {
	Tick                 uint16        `json:"tick"`
	LastProcessedCommand uint16        `json:"lastProcessedCommand"`
	PlayerStates         []PlayerState `json:"playerStates"`
}

func (*ServerStatePacket) PacketType() PacketType { return PacketServerState }

func (p *ServerStatePacket) MarshalTo(w *Writer) {
	w.PutUint16(p.Tick)
	w.PutUint16(p.LastProcessedCommand)
	w.PutInt32(int32(len(p.PlayerStates)))
	for i := range p.PlayerStates {
		p.PlayerStates[i].MarshalTo(w)
	}
}

func (p *ServerStatePacket) UnmarshalFrom(r *Reader) {
	p.Tick = r.Uint16()
	p.LastProcessedCommand = r.Uint16()
	n := r.Count(playerStateMinSize)
	p.PlayerStates = make([]PlayerState, n)
	for i := range p.PlayerStates {
		p.PlayerStates[i].UnmarshalFrom(r)
	}
}

// WorldObjectStatePacket - пачка изменений объектов.
// Tick 0 - полный список при входе.
type WorldObjectStatePacket struct {
	Tick    uint16        `json:"tick"`
	Objects []ObjectState `json:"objects"`
}

func (*WorldObjectStatePacket) PacketType() PacketType { return PacketWorldObjectState }

func (p *WorldObjectStatePacket) MarshalTo(w *Writer) {
	w.PutUint16(p.Tick)
	w.PutInt32(int32(len(p.Objects)))
	for i := range p.Objects {
		p.Objects[i].MarshalTo(w)
	}
}

func (p *WorldObjectStatePacket) UnmarshalFrom(r *Reader) {
	p.Tick = r.Uint16()
	n := r.Count(objectStateMinSize)
	p.Objects = make([]ObjectState, n)
	for i := range p.Objects {
		p.Objects[i].UnmarshalFrom(r)
	}
}

// MapPacket называет встроенную карту или передаёт свою по клеткам.
// Клетки лежат по столбцам: index = x*Height + y.
type MapPacket struct {
	IsCustom   bool               `json:"isCustom"`
	Map        uint16             `json:"map"`
	SpawnPoint types.WorldVector  `json:"spawnPoint"`
	ExitPoint  types.WorldVector  `json:"exitPoint"`
	Width      int32              `json:"width"`
	Height     int32              `json:"height"`
	Cells      []enums.ObjectType `json:"cells,omitempty"`
}

func (*MapPacket) PacketType() PacketType { return PacketNewMap }

func (p *MapPacket) MarshalTo(w *Writer) {
	w.PutBool(p.IsCustom)
	if !p.IsCustom {
		w.PutUint16(p.Map)
		return
	}
	w.PutVector(p.SpawnPoint)
	w.PutVector(p.ExitPoint)
	w.PutInt32(p.Width)
	w.PutInt32(p.Height)
	for _, c := range p.Cells {
		w.PutInt32(int32(c))
	}
}

func (p *MapPacket) UnmarshalFrom(r *Reader) {
	p.IsCustom = r.Bool()
	if !p.IsCustom {
		p.Map = r.Uint16()
		return
	}
	p.SpawnPoint = r.Vector()
	p.ExitPoint = r.Vector()
	p.Width = r.Int32()
	p.Height = r.Int32()
	if r.Err() != nil {
		return
	}
	if p.Width < 0 || p.Height < 0 || int64(p.Width)*int64(p.Height) > int64(r.Remaining()/4) {
		r.err = fmt.Errorf("map %dx%d: %w", p.Width, p.Height, ErrCountOverflow)
		return
	}
	p.Cells = make([]enums.ObjectType, int(p.Width)*int(p.Height))
	for i := range p.Cells {
		p.Cells[i] = enums.ObjectType(r.Int32())
	}
}

// Cell returns the custom map cell at (x, y).
func (p *MapPacket) Cell(x, y int) enums.ObjectType {
	return p.Cells[x*int(p.Height)+y]
}
