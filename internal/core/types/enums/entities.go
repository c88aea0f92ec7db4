package enums

import "strings"

// ObjectType tags every grid occupant and world object. The numeric
// values are part of the wire format and must not be reordered.
type ObjectType int32

const (
	ObjectNone ObjectType = iota
	ObjectBomb
	ObjectHealth
	ObjectKeyRed
	ObjectKeyGreen
	ObjectKeyBlue

	ObjectWall
	ObjectExitPoint
	ObjectNPCIntent
	ObjectNPCSpider
	ObjectNPCMantis
	ObjectNPCBug
	ObjectNPCTrader
	ObjectNPCMercenary
	ObjectBugNest
	ObjectCash
	ObjectHeart
	ObjectDoor
	ObjectDoorRed
	ObjectDoorGreen
	ObjectDoorBlue
	ObjectHiddenDoor
	ObjectFalseWall
	ObjectBarricade

	// Container layer
	ObjectChest

	// Functional layer
	ObjectConveyor

	objectTypeCount
)

var objectTypeToString = map[ObjectType]string{
	ObjectNone:         "NONE",
	ObjectBomb:         "BOMB",
	ObjectHealth:       "HEALTH",
	ObjectKeyRed:       "KEY_RED",
	ObjectKeyGreen:     "KEY_GREEN",
	ObjectKeyBlue:      "KEY_BLUE",
	ObjectWall:         "WALL",
	ObjectExitPoint:    "EXIT_POINT",
	ObjectNPCIntent:    "NPC_INTENT",
	ObjectNPCSpider:    "NPC_SPIDER",
	ObjectNPCMantis:    "NPC_MANTIS",
	ObjectNPCBug:       "NPC_BUG",
	ObjectNPCTrader:    "NPC_TRADER",
	ObjectNPCMercenary: "NPC_MERCENARY",
	ObjectBugNest:      "BUG_NEST",
	ObjectCash:         "CASH",
	ObjectHeart:        "HEART",
	ObjectDoor:         "DOOR",
	ObjectDoorRed:      "DOOR_RED",
	ObjectDoorGreen:    "DOOR_GREEN",
	ObjectDoorBlue:     "DOOR_BLUE",
	ObjectHiddenDoor:   "HIDDEN_DOOR",
	ObjectFalseWall:    "FALSE_WALL",
	ObjectBarricade:    "BARRICADE",
	ObjectChest:        "CHEST",
	ObjectConveyor:     "CONVEYOR",
}

var objectTypeStringToType = func() map[string]ObjectType {
	m := make(map[string]ObjectType, len(objectTypeToString))
	for k, v := range objectTypeToString {
		m[v] = k
	}
	return m
}()

func (t ObjectType) String() string {
	if s, ok := objectTypeToString[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseObjectType converts a level-file name into an ObjectType.
func ParseObjectType(s string) (ObjectType, bool) {
	val, ok := objectTypeStringToType[strings.ToUpper(s)]
	return val, ok
}

// IsValid reports whether t is a known wire value.
func (t ObjectType) IsValid() bool { return t >= ObjectNone && t < objectTypeCount }

// IsNPC is true for the mobile monster kinds.
func (t ObjectType) IsNPC() bool {
	switch t {
	case ObjectNPCSpider, ObjectNPCMantis, ObjectNPCBug, ObjectNPCTrader, ObjectNPCMercenary:
		return true
	}
	return false
}

// IsDoor is true for every door variant that opens on activation.
func (t ObjectType) IsDoor() bool {
	switch t {
	case ObjectDoor, ObjectDoorRed, ObjectDoorGreen, ObjectDoorBlue, ObjectHiddenDoor:
		return true
	}
	return false
}

// IsRunType marks objects whose width is measured from contiguous level cells.
func (t ObjectType) IsRunType() bool {
	return t.IsDoor() || t == ObjectFalseWall
}

// ObjectLayer decides where an object is indexed on the server.
type ObjectLayer int32

const (
	LayerMain ObjectLayer = iota
	LayerContainer
	LayerFunctional
)

func (l ObjectLayer) String() string {
	switch l {
	case LayerMain:
		return "MAIN"
	case LayerContainer:
		return "CONTAINER"
	case LayerFunctional:
		return "FUNCTIONAL"
	}
	return "UNKNOWN"
}
