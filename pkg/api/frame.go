package api

import "fmt"

var packetFactories = map[PacketType]func() Packet{
	PacketMovement:         func() Packet { return &PlayerInputPacket{} },
	PacketActivate:         func() Packet { return &ActivateObjectPacket{} },
	PacketSpawn:            func() Packet { return &SpawnPacket{} },
	PacketServerState:      func() Packet { return &ServerStatePacket{} },
	PacketShoot:            func() Packet { return &ShootPacket{} },
	PacketWorldObjectState: func() Packet { return &WorldObjectStatePacket{} },
	PacketNewMap:           func() Packet { return &MapPacket{} },
}

var messageFactories = map[MessageKind]func() Message{
	KindJoin:               func() Message { return &JoinPacket{} },
	KindJoinAccept:         func() Message { return &JoinAcceptPacket{} },
	KindJoinReject:         func() Message { return &JoinRejectPacket{} },
	KindPlayerJoined:       func() Message { return &PlayerJoinedPacket{} },
	KindPlayerLeft:         func() Message { return &PlayerLeftPacket{} },
	KindRemoveObject:       func() Message { return &RemoveObjectPacket{} },
	KindReleaseObjectLock:  func() Message { return &ReleaseObjectLockPacket{} },
	KindPickupObject:       func() Message { return &PickupObjectPacket{} },
	KindActivateBagItem:    func() Message { return &ActivateBagItemPacket{} },
	KindTakeItem:           func() Message { return &TakeItemPacket{} },
	KindPositionCorrection: func() Message { return &PlayerPositionCorrection{} },
	KindRevealArea:         func() Message { return &RevealAreaPacket{} },
}

// Header identifies a frame without decoding its body.
type Header struct {
	Type PacketType
	Kind MessageKind // only meaningful for PacketSerialized
}

// Marshal encodes p into a fresh frame.
func Marshal(p Packet) []byte {
	w := NewWriter(64)
	AppendPacket(w, p)
	return w.Bytes()
}

// AppendPacket writes the frame header and body of p to w.
func AppendPacket(w *Writer, p Packet) {
	w.PutByte(byte(p.PacketType()))
	if m, ok := p.(Message); ok {
		w.PutByte(byte(m.Kind()))
	}
	p.MarshalTo(w)
}

// PeekHeader reads the frame header only.
func PeekHeader(frame []byte) (Header, error) {
	r := NewReader(frame)
	h := Header{Type: PacketType(r.Byte())}
	if h.Type == PacketSerialized {
		h.Kind = MessageKind(r.Byte())
	}
	if err := r.Err(); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	return h, nil
}

// Unmarshal decodes a complete frame and validates the result.
func Unmarshal(frame []byte) (Packet, error) {
	r := NewReader(frame)
	pt := PacketType(r.Byte())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var p Packet
	if pt == PacketSerialized {
		kind := MessageKind(r.Byte())
		newMsg, ok := messageFactories[kind]
		if !ok {
			return nil, fmt.Errorf("message kind %d: %w", kind, ErrUnknownPacket)
		}
		p = newMsg()
	} else {
		newPacket, ok := packetFactories[pt]
		if !ok {
			return nil, fmt.Errorf("%s: %w", pt, ErrUnknownPacket)
		}
		p = newPacket()
	}

	p.UnmarshalFrom(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %T: %w", p, err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("decode %T: %d bytes: %w", p, r.Remaining(), ErrTrailingBytes)
	}

	if v, ok := p.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validate %T: %w", p, err)
		}
	}
	return p, nil
}
