package dungeon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
)

func TestGlyphPacking(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		color uint32
		char  byte
		want  Glyph
		hex   string
	}{
		{"orange A", 0xFFA500, 'A', Glyph(0xFFA50041), "#FFA500"},
		{"black space", 0x000000, ' ', Glyph(0x00000020), "#000000"},
		{"color truncation", 0x12345678, 'x', Glyph(0x34567878), "#345678"},
		{"max char", 0x404040, 0xFF, Glyph(0x404040FF), "#404040"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := MakeGlyph(tt.color, tt.char)
			if g != tt.want {
				t.Fatalf("MakeGlyph() = 0x%08X, want 0x%08X", uint32(g), uint32(tt.want))
			}
			if g.Char() != tt.char {
				t.Errorf("Char() = %q, want %q", g.Char(), tt.char)
			}
			if g.HexColor() != tt.hex {
				t.Errorf("HexColor() = %s, want %s", g.HexColor(), tt.hex)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ch   byte
		kind enums.ObjectType
		data int32
		ok   bool
	}{
		{'D', enums.ObjectDoor, 0, true},
		{'F', enums.ObjectFalseWall, 0, true},
		{'3', enums.ObjectExitPoint, 3, true},
		{'v', enums.ObjectConveyor, 90, true},
		{'<', enums.ObjectConveyor, 180, true},
		{'N', enums.ObjectBugNest, 0, true},
		{'#', enums.ObjectNone, 0, false},
		{'S', enums.ObjectNone, 0, false},
		{'9', enums.ObjectNone, 0, false},
	}
	for _, tt := range tests {
		kind, data, ok := Lookup(tt.ch)
		if kind != tt.kind || data != tt.data || ok != tt.ok {
			t.Errorf("Lookup(%q) = %v, %d, %v; want %v, %d, %v", tt.ch, kind, data, ok, tt.kind, tt.data, tt.ok)
		}
	}
}

func TestDefaultLevels(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if set.IsCustom() {
		t.Error("embedded set reported as custom")
	}
	if set.Count() != 6 {
		t.Fatalf("Count() = %d, want 6", set.Count())
	}
	for _, id := range set.IDs() {
		l, err := set.Get(id)
		if err != nil {
			t.Fatalf("Get(%d): %v", id, err)
		}
		g := l.Geometry()
		for slot := 0; slot < 4; slot++ {
			cell, err := g.CellAt(l.SpawnPoint(slot))
			if err != nil {
				t.Fatalf("map %d slot %d spawn outside grid: %v", id, slot, err)
			}
			if !cell.IsEmpty() {
				t.Errorf("map %d slot %d spawns inside %v", id, slot, cell.Type)
			}
		}
	}

	if _, err := set.Get(42); !errors.Is(err, ErrLevelNotFound) {
		t.Errorf("Get(42) error = %v, want ErrLevelNotFound", err)
	}
}

func TestLevelContent(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	l, err := set.Get(1)
	if err != nil {
		t.Fatal(err)
	}

	if l.Spawn != types.Vec(3.5, 2.5) {
		t.Errorf("Spawn = %v, want (3.5, 2.5)", l.Spawn)
	}
	if l.Exit != types.Vec(19.5, 2.5) {
		t.Errorf("Exit = %v, want (19.5, 2.5)", l.Exit)
	}

	walls := Render(l.Geometry())
	if walls[0] != "########################" || walls[2] != "#......................#" {
		t.Errorf("wall rows = %q / %q", walls[0], walls[2])
	}

	objects := l.Objects()
	if got := objects.TypeAt(7, 2); got != enums.ObjectDoor {
		t.Errorf("object at (7,2) = %v, want DOOR", got)
	}
	// двойная дверь стоит вертикально
	if n := objects.CountCommonCells(7, 2, true); n != 1 {
		t.Errorf("horizontal run = %d, want 1", n)
	}
	if n := objects.CountCommonCells(7, 2, false); n != 2 {
		t.Errorf("vertical run = %d, want 2", n)
	}
	if !objects.IsException(7, 3) {
		t.Error("second door cell not marked")
	}
	if l.Objects().IsException(7, 3) {
		t.Error("Objects() copy shares the exception table")
	}
}

func TestDataOverride(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	l, err := set.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	objects := l.Objects()
	if c := objects.At(9, 3); c.Type != enums.ObjectConveyor || c.Data != 45 {
		t.Errorf("cell (9,3) = %v/%d, want CONVEYOR/45", c.Type, c.Data)
	}
	if c := objects.At(11, 3); c.Data != 90 {
		t.Errorf("cell (11,3) data = %d, want 90", c.Data)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{"empty set", "levels: []"},
		{"unknown glyph", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S0X#\", \"#####\"]"},
		{"ragged rows", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S0#\", \"#####\"]"},
		{"no spawn", "levels:\n  - id: 0\n    rows: [\"#####\", \"#.0.#\", \"#####\"]"},
		{"two spawns", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S0S#\", \"#####\"]"},
		{"no exit", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S..#\", \"#####\"]"},
		{"duplicate id", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S0.#\", \"#####\"]\n  - id: 0\n    rows: [\"#####\", \"#S0.#\", \"#####\"]"},
		{"data on empty cell", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S0.#\", \"#####\"]\n    data: [{x: 3, y: 1, value: 2}]"},
		{"data outside", "levels:\n  - id: 0\n    rows: [\"#####\", \"#S0.#\", \"#####\"]\n    data: [{x: 30, y: 1, value: 2}]"},
		{"unknown field", "levels:\n  - id: 0\n    floor: stone\n    rows: [\"#####\", \"#S0.#\", \"#####\"]"},
		{"not yaml", "levels: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), true)
			if !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("Parse() error = %v, want ErrInvalidLevel", err)
			}
		})
	}
}

func TestLoadCustomMapPacket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.yaml")
	doc := "levels:\n  - id: 0\n    name: box\n    rows: [\"#####\", \"#S.0#\", \"#####\"]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !set.IsCustom() {
		t.Error("file set not custom")
	}
	l, _ := set.Get(0)

	p := l.MapPacket(true)
	if !p.IsCustom || p.Width != 5 || p.Height != 3 || len(p.Cells) != 15 {
		t.Fatalf("MapPacket = custom %v %dx%d cells %d", p.IsCustom, p.Width, p.Height, len(p.Cells))
	}
	if p.Cell(0, 0) != enums.ObjectWall || p.Cell(2, 1) != enums.ObjectNone {
		t.Errorf("cells (0,0)=%v (2,1)=%v", p.Cell(0, 0), p.Cell(2, 1))
	}
	if p.ExitPoint != types.Vec(3.5, 1.5) {
		t.Errorf("ExitPoint = %v", p.ExitPoint)
	}

	g := GridFromMap(p)
	got := Render(g)
	want := []string{"#####", "#...#", "#####"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}

	if short := l.MapPacket(false); short.IsCustom || short.Map != 0 || short.Cells != nil {
		t.Errorf("built-in MapPacket carries cells: %+v", short)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
