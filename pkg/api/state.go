package api

import (
	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
)

// BagSlot is one stack in a player's bag or a chest.
type BagSlot struct {
	Type  enums.PlayerBagItem `json:"type"`
	Count int32               `json:"count"`
}

const bagSlotSize = 8

func putBag(w *Writer, bag []BagSlot) {
	w.PutInt32(int32(len(bag)))
	for _, s := range bag {
		w.PutInt32(int32(s.Type))
		w.PutInt32(s.Count)
	}
}

func readBag(r *Reader) []BagSlot {
	n := r.Count(bagSlotSize)
	if n == 0 {
		return nil
	}
	bag := make([]BagSlot, n)
	for i := range bag {
		bag[i].Type = enums.PlayerBagItem(r.Int32())
		bag[i].Count = r.Int32()
	}
	return bag
}

// PlayerState is the replicated view of one player.
type PlayerState struct {
	ID       byte              `json:"id"`
	Position types.WorldVector `json:"position"`
	Rotation float32           `json:"rotation"`
	Health   byte              `json:"health"`
	Score    uint32            `json:"score"`
	Cash     uint32            `json:"cash"`
	Tick     uint16            `json:"tick"`
	Active   bool              `json:"active"`
	Bag      []BagSlot         `json:"bag"`
}

// minimum encoded size of a PlayerState with an empty bag
const playerStateMinSize = 1 + 8 + 4 + 1 + 4 + 4 + 2 + 1 + 4

func (s *PlayerState) MarshalTo(w *Writer) {
	w.PutByte(s.ID)
	w.PutVector(s.Position)
	w.PutFloat32(s.Rotation)
	w.PutByte(s.Health)
	w.PutUint32(s.Score)
	w.PutUint32(s.Cash)
	w.PutUint16(s.Tick)
	w.PutBool(s.Active)
	putBag(w, s.Bag)
}

func (s *PlayerState) UnmarshalFrom(r *Reader) {
	s.ID = r.Byte()
	s.Position = r.Vector()
	s.Rotation = r.Float32()
	s.Health = r.Byte()
	s.Score = r.Uint32()
	s.Cash = r.Uint32()
	s.Tick = r.Uint16()
	s.Active = r.Bool()
	s.Bag = readBag(r)
}

// Clone copies the bag so the snapshot survives later bag mutation.
func (s PlayerState) Clone() PlayerState {
	if s.Bag != nil {
		s.Bag = append([]BagSlot(nil), s.Bag...)
	}
	return s
}

// ChestData is the payload appended to a chest's ObjectState.
type ChestData struct {
	IsOpen bool      `json:"isOpen"`
	Items  []BagSlot `json:"items"`
}

// ObjectState is the replicated form of a world object.
type ObjectState struct {
	ID           int32             `json:"id"`
	Type         enums.ObjectType  `json:"type"`
	Position     types.WorldVector `json:"position"`
	Rotation     float32           `json:"rotation"`
	Active       bool              `json:"active"`
	CanHit       bool              `json:"canHit"`
	Layer        enums.ObjectLayer `json:"layer"`
	Width        int32             `json:"width"`
	IsHorizontal bool              `json:"isHorizontal"`
	Flags        byte              `json:"flags"`

	// Chest is set only for ObjectChest.
	Chest *ChestData `json:"chest,omitempty"`
}

const objectStateMinSize = 4 + 4 + 8 + 4 + 1 + 1 + 4 + 4 + 1 + 1

func (o *ObjectState) MarshalTo(w *Writer) {
	w.PutInt32(o.ID)
	w.PutInt32(int32(o.Type))
	w.PutVector(o.Position)
	w.PutFloat32(o.Rotation)
	w.PutBool(o.Active)
	w.PutBool(o.CanHit)
	w.PutInt32(int32(o.Layer))
	w.PutInt32(o.Width)
	w.PutBool(o.IsHorizontal)
	w.PutByte(o.Flags)

	if o.Type == enums.ObjectChest {
		chest := o.Chest
		if chest == nil {
			chest = &ChestData{}
		}
		w.PutBool(chest.IsOpen)
		putBag(w, chest.Items)
	}
}

func (o *ObjectState) UnmarshalFrom(r *Reader) {
	o.ID = r.Int32()
	o.Type = enums.ObjectType(r.Int32())
	o.Position = r.Vector()
	o.Rotation = r.Float32()
	o.Active = r.Bool()
	o.CanHit = r.Bool()
	o.Layer = enums.ObjectLayer(r.Int32())
	o.Width = r.Int32()
	o.IsHorizontal = r.Bool()
	o.Flags = r.Byte()

	o.Chest = nil
	if o.Type == enums.ObjectChest {
		o.Chest = &ChestData{IsOpen: r.Bool()}
		o.Chest.Items = readBag(r)
	}
}
