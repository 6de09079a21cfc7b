package crs

import "testing"

func TestFromUserInputParsesEPSG(t *testing.T) {
	cases := []struct {
		in   string
		epsg int
	}{
		{"EPSG:4326", 4326},
		{"epsg:3857", 3857},
		{"4326", 4326},
	}
	for _, c := range cases {
		got, err := FromUserInput(c.in)
		if err != nil {
			t.Fatalf("FromUserInput(%q): %v", c.in, err)
		}
		epsg, ok := got.EPSG()
		if !ok || epsg != c.epsg {
			t.Fatalf("FromUserInput(%q): expected epsg %d, got %d (ok=%v)", c.in, c.epsg, epsg, ok)
		}
	}
}

func TestFromUserInputKeepsProjStringAsIs(t *testing.T) {
	got, err := FromUserInput("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.EPSG(); ok {
		t.Fatalf("proj string input should not resolve to an EPSG code")
	}
}

func TestEqualByEPSG(t *testing.T) {
	a := FromEPSG(4326)
	b, _ := FromUserInput("EPSG:4326")
	if !a.Equal(b) {
		t.Fatalf("expected equal CRS for same EPSG code")
	}
}

func TestIsLatLon(t *testing.T) {
	if !LatLon.IsLatLon() {
		t.Fatalf("LatLon must be lat/lon")
	}
	if FromEPSG(3857).IsLatLon() {
		t.Fatalf("3857 is not lat/lon")
	}
}

func TestBoundsRegistryKnownCRS(t *testing.T) {
	cases := []struct {
		epsg                         int
		left, bottom, right, top float64
	}{
		{4326, -180.0, -90.0, 180.0, 90.0},
		{3857, -180.0, -85.0511, 180.0, 85.0511},
		{3035, -10.67, 34.50, 31.55, 71.05},
	}
	for _, c := range cases {
		b, err := Bounds(FromEPSG(c.epsg))
		if err != nil {
			t.Fatalf("Bounds(EPSG:%d): %v", c.epsg, err)
		}
		if b.Left != c.left || b.Bottom != c.bottom || b.Right != c.right || b.Top != c.top {
			t.Fatalf("Bounds(EPSG:%d) = %v, want (%v,%v,%v,%v)", c.epsg, b, c.left, c.bottom, c.right, c.top)
		}
	}
}
