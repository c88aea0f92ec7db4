package api

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
)

// Validator is implemented by packets that can reject their own content.
type Validator interface {
	Validate() error
}

const (
	MaxUserNameLen = 32
	// MaxBagSlots mirrors the player bag size; slot indexes beyond it are bogus.
	MaxBagSlots = 5
)

const validKeys = enums.KeyLeft | enums.KeyRight | enums.KeyUp | enums.KeyDown | enums.KeyFire

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidPacket)
}

func finite(v ...float32) bool {
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}

func (p *JoinPacket) Validate() error {
	name := strings.TrimSpace(p.UserName)
	if name == "" {
		return invalid("userName is required")
	}
	if len(name) > MaxUserNameLen {
		return invalid("userName longer than %d bytes", MaxUserNameLen)
	}
	return nil
}

func (p *PlayerInputPacket) Validate() error {
	if int(p.ID) >= types.MaxGameSequence {
		return invalid("command id %d out of sequence space", p.ID)
	}
	if p.Keys&^validKeys != 0 {
		return invalid("unknown movement bits %08b", byte(p.Keys&^validKeys))
	}
	if !finite(p.Position.X, p.Position.Y, p.Rotation) {
		return invalid("non-finite position or rotation")
	}
	return nil
}

func (p *ActivateObjectPacket) Validate() error {
	if !p.Type.IsValid() {
		return invalid("object type %d", p.Type)
	}
	return nil
}

func (p *TakeItemPacket) Validate() error {
	if p.SlotIndex < 0 {
		return invalid("negative slot %d", p.SlotIndex)
	}
	return nil
}

func (p *ActivateBagItemPacket) Validate() error {
	if p.Slot < 0 || p.Slot >= MaxBagSlots {
		return invalid("bag slot %d", p.Slot)
	}
	return nil
}

func (p *MapPacket) Validate() error {
	if !p.IsCustom {
		return nil
	}
	if p.Width <= 0 || p.Height <= 0 {
		return invalid("custom map %dx%d", p.Width, p.Height)
	}
	for _, c := range p.Cells {
		if !c.IsValid() {
			return invalid("custom map cell type %d", c)
		}
	}
	return nil
}

func (p *ShootPacket) Validate() error {
	if !finite(p.Direction) {
		return invalid("non-finite direction")
	}
	return nil
}
