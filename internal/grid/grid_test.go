package grid

import (
	"testing"

	"github.com/joeblew999/geopyramid/internal/bounds"
)

func TestExtractSnapsToParentPixelGrid(t *testing.T) {
	g := FromBounds(bounds.MustNew(0, 0, 3, 3), 3, 3, "")
	sub := bounds.MustNew(0, 0, 0.4, 0.6)

	got := g.Extract(sub)

	if got.Width != 1 || got.Height != 1 {
		t.Fatalf("expected shape (1,1), got (%d,%d)", got.Height, got.Width)
	}
	want := bounds.MustNew(0, 0, 1, 1)
	if !got.Bounds.Equal(want) {
		t.Fatalf("expected bounds %v, got %v", want, got.Bounds)
	}
}

func TestExtractNeverFinerThanParent(t *testing.T) {
	g := FromBounds(bounds.MustNew(0, 0, 10, 10), 10, 10, "")
	sub := bounds.MustNew(1, 1, 9, 9)

	got := g.Extract(sub)

	if got.PixelX != g.PixelX || got.PixelY != g.PixelY {
		t.Fatalf("extracted grid pixel size must equal parent's")
	}
}

func TestExtractClipsToParentBounds(t *testing.T) {
	g := FromBounds(bounds.MustNew(0, 0, 10, 10), 10, 10, "")
	sub := bounds.MustNew(-5, -5, 3, 3)

	got := g.Extract(sub)

	if got.Bounds.Left < g.Bounds.Left || got.Bounds.Bottom < g.Bounds.Bottom {
		t.Fatalf("extracted grid must be clipped to parent bounds, got %v", got.Bounds)
	}
}
