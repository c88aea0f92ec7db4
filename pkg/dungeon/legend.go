package dungeon

import (
	"fmt"
	"strings"

	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
	"github.com/Kelvintronic/inhabited/internal/domain"
)

// Glyph - символ легенды и цвет для отладочной отрисовки,
// упакованные в uint32:
//
//	[0:8]  - символ
//	[8:32] - RGB-цвет
type Glyph uint32

const (
	bitsChar   = 8
	bitsColor  = 24
	shiftColor = bitsChar
	maskChar   = (1 << bitsChar) - 1
	maskColor  = (1 << bitsColor) - 1
)

func MakeGlyph(colorRGB uint32, char byte) Glyph {
	return Glyph((colorRGB&maskColor)<<shiftColor | (uint32(char) & maskChar))
}

func (g Glyph) Char() byte       { return byte(g & maskChar) }
func (g Glyph) Color() uint32    { return uint32(g>>shiftColor) & maskColor }
func (g Glyph) HexColor() string { return fmt.Sprintf("#%06X", g.Color()) }

// Служебные символы карты.
const (
	GlyphFloor = '.'
	GlyphBlank = ' '
	GlyphWall  = '#'
	GlyphSpawn = 'S'
)

// glyphUnknown рисуется для типа, которого нет в легенде.
var glyphUnknown = MakeGlyph(0xFF00FF, '?')

type legendEntry struct {
	kind  enums.ObjectType
	data  int32
	glyph Glyph
}

// legend - символ уровня -> объект. Цифры 0..8 - выходы, цифра уходит
// в данные выхода (номер карты, 0 - следующая по кругу). Стрелки -
// ленты, данные - угол в градусах, ось y смотрит вниз.
var legend = func() map[byte]legendEntry {
	m := map[byte]legendEntry{
		'r': {kind: enums.ObjectKeyRed, glyph: MakeGlyph(0xFF3030, 'r')},
		'g': {kind: enums.ObjectKeyGreen, glyph: MakeGlyph(0x30FF30, 'g')},
		'b': {kind: enums.ObjectKeyBlue, glyph: MakeGlyph(0x3030FF, 'b')},
		'o': {kind: enums.ObjectBomb, glyph: MakeGlyph(0xFFA500, 'o')},
		'+': {kind: enums.ObjectHealth, glyph: MakeGlyph(0xFF8080, '+')},
		'$': {kind: enums.ObjectCash, glyph: MakeGlyph(0xFFD700, '$')},
		'h': {kind: enums.ObjectHeart, glyph: MakeGlyph(0xFF1493, 'h')},
		'N': {kind: enums.ObjectBugNest, glyph: MakeGlyph(0x8B4513, 'N')},
		'C': {kind: enums.ObjectChest, glyph: MakeGlyph(0xA0522D, 'C')},

		'D': {kind: enums.ObjectDoor, glyph: MakeGlyph(0xC0C0C0, 'D')},
		'R': {kind: enums.ObjectDoorRed, glyph: MakeGlyph(0xFF3030, 'R')},
		'G': {kind: enums.ObjectDoorGreen, glyph: MakeGlyph(0x30FF30, 'G')},
		'B': {kind: enums.ObjectDoorBlue, glyph: MakeGlyph(0x3030FF, 'B')},
		'H': {kind: enums.ObjectHiddenDoor, glyph: MakeGlyph(0x808080, 'H')},
		'F': {kind: enums.ObjectFalseWall, glyph: MakeGlyph(0x808080, 'F')},
		'=': {kind: enums.ObjectBarricade, glyph: MakeGlyph(0xDEB887, '=')},

		'u': {kind: enums.ObjectNPCBug, glyph: MakeGlyph(0x9ACD32, 'u')},
		's': {kind: enums.ObjectNPCSpider, glyph: MakeGlyph(0x9400D3, 's')},
		'm': {kind: enums.ObjectNPCMantis, glyph: MakeGlyph(0x00CED1, 'm')},
		'M': {kind: enums.ObjectNPCMercenary, glyph: MakeGlyph(0xDC143C, 'M')},
		'T': {kind: enums.ObjectNPCTrader, glyph: MakeGlyph(0x4169E1, 'T')},

		'>': {kind: enums.ObjectConveyor, data: 0, glyph: MakeGlyph(0x00FFFF, '>')},
		'v': {kind: enums.ObjectConveyor, data: 90, glyph: MakeGlyph(0x00FFFF, 'v')},
		'<': {kind: enums.ObjectConveyor, data: 180, glyph: MakeGlyph(0x00FFFF, '<')},
		'^': {kind: enums.ObjectConveyor, data: 270, glyph: MakeGlyph(0x00FFFF, '^')},
	}
	for d := byte(0); d <= 8; d++ {
		ch := '0' + d
		m[ch] = legendEntry{kind: enums.ObjectExitPoint, data: int32(d), glyph: MakeGlyph(0xFFFFFF, ch)}
	}
	return m
}()

// byType - обратная легенда для отрисовки: первый символ каждого типа.
var byType = func() map[enums.ObjectType]Glyph {
	m := map[enums.ObjectType]Glyph{
		enums.ObjectNone:      MakeGlyph(0x303030, GlyphFloor),
		enums.ObjectWall:      MakeGlyph(0x696969, GlyphWall),
		enums.ObjectNPCIntent: MakeGlyph(0x404040, '*'),
		enums.ObjectExitPoint: MakeGlyph(0xFFFFFF, '0'),
		enums.ObjectConveyor:  MakeGlyph(0x00FFFF, '>'),
	}
	for _, e := range legend {
		if _, ok := m[e.kind]; !ok {
			m[e.kind] = e.glyph
		}
	}
	return m
}()

// Lookup разбирает символ объекта. Стены, пол и точка появления
// объектами не являются.
func Lookup(ch byte) (enums.ObjectType, int32, bool) {
	e, ok := legend[ch]
	if !ok {
		return enums.ObjectNone, 0, false
	}
	return e.kind, e.data, true
}

// GlyphFor - как рисовать тип в отладочном виде.
func GlyphFor(kind enums.ObjectType) Glyph {
	if g, ok := byType[kind]; ok {
		return g
	}
	return glyphUnknown
}

// Render рисует сетку строками, сверху вниз.
func Render(g *domain.Grid) []string {
	rows := make([]string, g.Height())
	var sb strings.Builder
	for y := 0; y < g.Height(); y++ {
		sb.Reset()
		for x := 0; x < g.Width(); x++ {
			sb.WriteByte(GlyphFor(g.TypeAt(x, y)).Char())
		}
		rows[y] = sb.String()
	}
	return rows
}
