package enums

import "testing"

func TestParseObjectTypeRoundTrip(t *testing.T) {
	t.Parallel()

	for ot := ObjectNone; ot < objectTypeCount; ot++ {
		got, ok := ParseObjectType(ot.String())
		if !ok || got != ot {
			t.Errorf("ParseObjectType(%q) = %v,%v want %v", ot.String(), got, ok, ot)
		}
	}
	if _, ok := ParseObjectType("dragon"); ok {
		t.Error("unknown name parsed")
	}
}

func TestWireValuesAreStable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ot   ObjectType
		want int32
	}{
		{ObjectNone, 0},
		{ObjectWall, 6},
		{ObjectNPCIntent, 8},
		{ObjectNPCMercenary, 13},
		{ObjectBarricade, 23},
		{ObjectChest, 24},
		{ObjectConveyor, 25},
	}
	for _, tt := range tests {
		if int32(tt.ot) != tt.want {
			t.Errorf("%s = %d, want %d", tt.ot, int32(tt.ot), tt.want)
		}
	}
}

func TestBagItemsShareObjectValues(t *testing.T) {
	t.Parallel()

	for _, item := range []PlayerBagItem{BagBomb, BagHealth, BagKeyRed, BagKeyGreen, BagKeyBlue} {
		if BagItemFor(item.ObjectType()) != item {
			t.Errorf("%s does not round trip through ObjectType", item)
		}
	}
	if BagItemFor(ObjectCash) != BagLint {
		t.Error("cash must not occupy a bag slot")
	}
}
