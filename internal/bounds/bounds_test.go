package bounds

import "testing"

func TestNewStrictRejectsDegenerate(t *testing.T) {
	if _, err := New(3, 0, 1, 1, true, ""); err == nil {
		t.Fatalf("expected error for left >= right")
	}
	if _, err := New(0, 3, 1, 1, true, ""); err == nil {
		t.Fatalf("expected error for bottom >= top")
	}
	if _, err := New(0, 0, 0, 0, false, ""); err != nil {
		t.Fatalf("non-strict mode should allow degenerate rectangle: %v", err)
	}
}

func TestSelfIntersectsAndIsSymmetric(t *testing.T) {
	b := MustNew(0, 0, 10, 10)
	if !b.Intersects(b) {
		t.Fatalf("bounds must always intersect themselves")
	}
	other := MustNew(5, 5, 20, 20)
	if b.Intersects(other) != other.Intersects(b) {
		t.Fatalf("intersects must be symmetric")
	}
}

func TestUnionIsNoOpWhenContained(t *testing.T) {
	a := MustNew(1, 2, 3, 4)
	b := MustNew(2, 2, 3, 3)
	if got := a.Union(b); !got.Equal(a) {
		t.Fatalf("Bounds(1,2,3,4) + Bounds(2,2,3,3) should equal Bounds(1,2,3,4), got %v", got)
	}
}

func TestEdgeTouchingIntersects(t *testing.T) {
	a := MustNew(0, 0, 1, 1)
	b := MustNew(1, 0, 2, 1)
	if !a.Intersects(b) {
		t.Fatalf("edge-touching rectangles must count as intersecting")
	}
}

func TestFromInputVariants(t *testing.T) {
	if _, err := FromInput([]float64{0, 0, 1, 1}, true); err != nil {
		t.Fatalf("slice input: %v", err)
	}
	if _, err := FromInput([]float64{0, 0, 1}, true); err == nil {
		t.Fatalf("expected wrong-arity error")
	}
	dict := map[string]float64{"left": 0, "bottom": 0, "right": 1, "top": 1}
	if _, err := FromInput(dict, true); err != nil {
		t.Fatalf("dict input: %v", err)
	}
	if _, err := FromInput("nope", true); err == nil {
		t.Fatalf("expected type error on unsupported input")
	}
}

type fakeGeometric struct{ l, b, r, t float64 }

func (f fakeGeometric) Bounds() (float64, float64, float64, float64) { return f.l, f.b, f.r, f.t }

func TestFromInputGeometric(t *testing.T) {
	got, err := FromInput(fakeGeometric{0, 0, 5, 5}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(MustNew(0, 0, 5, 5)) {
		t.Fatalf("expected bounds from Geometric, got %v", got)
	}
}

func TestRingIsClosed(t *testing.T) {
	b := MustNew(0, 0, 1, 1)
	ring := b.Ring()
	if ring[0] != ring[4] {
		t.Fatalf("ring must be closed (first == last)")
	}
}
