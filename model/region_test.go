package model

import "testing"

func TestFullRegionNumberRoundTrip(t *testing.T) {
	cases := []struct {
		region, sub int
		key         string
	}{
		{12, 0, "12.00"},
		{12, 3, "12.03"},
		{7, 99, "7.99"},
	}
	for _, tc := range cases {
		full := FullRegionNumber(tc.region, tc.sub)
		r, s := SplitRegionNumber(full)
		if r != tc.region || s != tc.sub {
			t.Fatalf("SplitRegionNumber(%v) = %d,%d want %d,%d", full, r, s, tc.region, tc.sub)
		}
		if got := FormatRegionNumber(full); got != tc.key {
			t.Fatalf("FormatRegionNumber(%v) = %q, want %q", full, got, tc.key)
		}
	}
}

func TestElementTypeParse(t *testing.T) {
	typ, err := ParseElementType("relay")
	if err != nil || typ != ElementRelaySatellite {
		t.Fatalf("ParseElementType(relay) = %v, %v", typ, err)
	}
	if !typ.IsSpaceBased() {
		t.Fatalf("relay should be space based")
	}
	if ElementGroundStation.IsSpaceBased() {
		t.Fatalf("ground station should not be space based")
	}
	if _, err := ParseElementType("blimp"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
