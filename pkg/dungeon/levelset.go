package dungeon

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var defaultLevels []byte

//go:embed schema.json
var schemaJSON string

const schemaURL = "inhabited://levels.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func levelSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// LevelSet - набор карт, адресуемых номером.
type LevelSet struct {
	levels map[uint16]*Level
	ids    []uint16
	custom bool
}

type levelSetDoc struct {
	Levels []levelDoc `yaml:"levels"`
}

// Default - встроенный набор. Его карты клиент знает по номеру.
func Default() (*LevelSet, error) {
	return Parse(defaultLevels, false)
}

// Load читает набор из файла. Такие карты пересылаются клиентам целиком.
func Load(path string) (*LevelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read levels %s: %w", path, err)
	}
	set, err := Parse(data, true)
	if err != nil {
		return nil, fmt.Errorf("levels %s: %w", path, err)
	}
	return set, nil
}

// Parse проверяет документ схемой и собирает уровни.
func Parse(data []byte, custom bool) (*LevelSet, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var doc levelSetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode levels: %w", errors.Join(err, ErrInvalidLevel))
	}

	set := &LevelSet{levels: make(map[uint16]*Level, len(doc.Levels)), custom: custom}
	for _, ld := range doc.Levels {
		if _, dup := set.levels[ld.ID]; dup {
			return nil, fmt.Errorf("duplicate level id %d: %w", ld.ID, ErrInvalidLevel)
		}
		l, err := buildLevel(ld)
		if err != nil {
			return nil, err
		}
		set.levels[l.ID] = l
		set.ids = append(set.ids, l.ID)
	}
	slices.Sort(set.ids)
	return set, nil
}

// validate гоняет YAML через схему. Валидатор понимает только значения
// в форме encoding/json, поэтому документ перекладывается через JSON.
func validate(data []byte) error {
	s, err := levelSchema()
	if err != nil {
		return fmt.Errorf("compile level schema: %w", err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode levels: %w", errors.Join(err, ErrInvalidLevel))
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("levels to json: %w", errors.Join(err, ErrInvalidLevel))
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return fmt.Errorf("levels to json: %w", errors.Join(err, ErrInvalidLevel))
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("levels schema: %w", errors.Join(err, ErrInvalidLevel))
	}
	return nil
}

// Get возвращает карту по номеру.
func (s *LevelSet) Get(id uint16) (*Level, error) {
	l, ok := s.levels[id]
	if !ok {
		return nil, fmt.Errorf("map %d: %w", id, ErrLevelNotFound)
	}
	return l, nil
}

func (s *LevelSet) Has(id uint16) bool {
	_, ok := s.levels[id]
	return ok
}

func (s *LevelSet) Count() int { return len(s.ids) }

// IDs - номера карт по возрастанию.
func (s *LevelSet) IDs() []uint16 { return slices.Clone(s.ids) }

// IsCustom - набор загружен не из встроенных карт.
func (s *LevelSet) IsCustom() bool { return s.custom }
